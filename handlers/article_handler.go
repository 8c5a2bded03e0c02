package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/kamaubrian/nyumba_stays/utils"
)

func ListArticles(c *fiber.Ctx) error {
	var articles []models.Article
	if err := database.DB.Preload("Author").Where("published = ?", true).Order("created_at desc").Find(&articles).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch articles"})
	}
	return c.JSON(articles)
}

func GetArticleBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var article models.Article
	if err := database.DB.Preload("Author").Where("slug = ? AND published = ?", slug, true).First(&article).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Article not found"})
	}
	return c.JSON(article)
}

type CreateArticleRequest struct {
	Title     string `json:"title" validate:"required,min=5"`
	Body      string `json:"body" validate:"required,min=50"`
	Published bool   `json:"published"`
}

func CreateArticle(c *fiber.Ctx) error {
	authorID := currentUserID(c)

	var req CreateArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	article := models.Article{
		AuthorID:  authorID,
		Title:     req.Title,
		Slug:      utils.Slugify(req.Title),
		Body:      req.Body,
		Published: req.Published,
	}
	if err := database.DB.Create(&article).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create article"})
	}

	return c.Status(fiber.StatusCreated).JSON(article)
}

func UpdateArticle(c *fiber.Ctx) error {
	articleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid article ID"})
	}

	var article models.Article
	if err := database.DB.First(&article, "id = ?", articleID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Article not found"})
	}

	type Request struct {
		Title     *string `json:"title" validate:"omitempty,min=5"`
		Body      *string `json:"body" validate:"omitempty,min=50"`
		Published *bool   `json:"published"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Title != nil {
		article.Title = *req.Title
	}
	if req.Body != nil {
		article.Body = *req.Body
	}
	if req.Published != nil {
		article.Published = *req.Published
	}

	if err := database.DB.Save(&article).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update article"})
	}

	return c.JSON(article)
}
