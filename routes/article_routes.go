package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaubrian/nyumba_stays/handlers"
	"github.com/kamaubrian/nyumba_stays/middleware"
)

func ArticleRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	articles := api.Group("/articles")
	articles.Get("", handlers.ListArticles)
	articles.Get("/:slug", handlers.GetArticleBySlug)

	admin := api.Group("/admin/articles", middleware.Protected(), middleware.AdminRequired())
	admin.Post("", handlers.CreateArticle)
	admin.Patch("/:id", handlers.UpdateArticle)
}
