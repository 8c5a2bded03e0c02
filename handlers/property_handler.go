package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/kamaubrian/nyumba_stays/utils"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

type CreatePropertyRequest struct {
	Title        string   `json:"title" validate:"required,min=5"`
	Description  string   `json:"description" validate:"required,min=20"`
	City         string   `json:"city" validate:"required"`
	Neighborhood *string  `json:"neighborhood"`
	Address      *string  `json:"address"`
	NightlyPrice float64  `json:"nightly_price" validate:"required,gt=0"`
	Currency     string   `json:"currency" validate:"omitempty,oneof=KES USD"`
	MaxGuests    int      `json:"max_guests" validate:"required,min=1,max=20"`
	Bedrooms     int      `json:"bedrooms" validate:"omitempty,min=0,max=20"`
	PhotoURLs    []string `json:"photo_urls" validate:"omitempty,dive,url"`
}

func CreateProperty(c *fiber.Ctx) error {
	hostID := currentUserID(c)

	var req CreatePropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	currency := req.Currency
	if currency == "" {
		currency = "KES"
	}

	photoJSON, _ := json.Marshal(req.PhotoURLs)

	property := models.Property{
		HostID:       hostID,
		Title:        req.Title,
		Slug:         utils.Slugify(req.Title),
		Description:  req.Description,
		City:         req.City,
		Neighborhood: req.Neighborhood,
		Address:      req.Address,
		NightlyPrice: req.NightlyPrice,
		Currency:     currency,
		MaxGuests:    req.MaxGuests,
		Bedrooms:     req.Bedrooms,
		PhotoURLs:    datatypes.JSON(photoJSON),
	}

	if err := database.DB.Create(&property).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create property"})
	}

	return c.Status(fiber.StatusCreated).JSON(property)
}

func ListProperties(c *fiber.Ctx) error {
	query := database.DB.Preload("Host").Where("published = ?", true)

	if city := c.Query("city"); city != "" {
		query = query.Where("LOWER(city) = LOWER(?)", city)
	}
	if guests := c.QueryInt("guests"); guests > 0 {
		query = query.Where("max_guests >= ?", guests)
	}

	var properties []models.Property
	if err := query.Order("created_at desc").Find(&properties).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch properties"})
	}

	return c.JSON(properties)
}

func GetPropertyBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var property models.Property
	if err := database.DB.Preload("Host").Where("slug = ?", slug).First(&property).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Property not found"})
	}

	var reviews []models.Review
	if err := database.DB.Preload("Author").Where("property_id = ?", property.ID).Order("created_at desc").Find(&reviews).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch reviews"})
	}

	averageRating := 0.0
	if len(reviews) > 0 {
		total := lo.SumBy(reviews, func(r models.Review) int { return r.Rating })
		averageRating = float64(total) / float64(len(reviews))
	}

	return c.JSON(fiber.Map{
		"property":       property,
		"reviews":        reviews,
		"average_rating": averageRating,
		"review_count":   len(reviews),
	})
}

func ListMyProperties(c *fiber.Ctx) error {
	hostID := currentUserID(c)

	var properties []models.Property
	if err := database.DB.Where("host_id = ?", hostID).Order("created_at desc").Find(&properties).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch properties"})
	}

	return c.JSON(properties)
}

func UpdateProperty(c *fiber.Ctx) error {
	hostID := currentUserID(c)
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid property ID"})
	}

	var property models.Property
	if err := database.DB.First(&property, "id = ?", propertyID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Property not found"})
	}
	if property.HostID != hostID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not own this property"})
	}

	type Request struct {
		Title        *string  `json:"title" validate:"omitempty,min=5"`
		Description  *string  `json:"description" validate:"omitempty,min=20"`
		NightlyPrice *float64 `json:"nightly_price" validate:"omitempty,gt=0"`
		MaxGuests    *int     `json:"max_guests" validate:"omitempty,min=1,max=20"`
		Bedrooms     *int     `json:"bedrooms" validate:"omitempty,min=0,max=20"`
		PhotoURLs    []string `json:"photo_urls" validate:"omitempty,dive,url"`
		Published    *bool    `json:"published"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Title != nil {
		property.Title = *req.Title
	}
	if req.Description != nil {
		property.Description = *req.Description
	}
	if req.NightlyPrice != nil {
		property.NightlyPrice = *req.NightlyPrice
	}
	if req.MaxGuests != nil {
		property.MaxGuests = *req.MaxGuests
	}
	if req.Bedrooms != nil {
		property.Bedrooms = *req.Bedrooms
	}
	if req.PhotoURLs != nil {
		photoJSON, _ := json.Marshal(req.PhotoURLs)
		property.PhotoURLs = datatypes.JSON(photoJSON)
	}
	if req.Published != nil {
		property.Published = *req.Published
	}

	if err := database.DB.Save(&property).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update property"})
	}

	return c.JSON(property)
}
