package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kamaubrian/nyumba_stays/database"
	"github.com/kamaubrian/nyumba_stays/handlers"
	"github.com/kamaubrian/nyumba_stays/jobs"
	"github.com/kamaubrian/nyumba_stays/messaging"
	"github.com/kamaubrian/nyumba_stays/notifications"
	"github.com/kamaubrian/nyumba_stays/payments"
	"github.com/kamaubrian/nyumba_stays/queue"
	"github.com/kamaubrian/nyumba_stays/realtime"
	"github.com/kamaubrian/nyumba_stays/routes"
	"github.com/kamaubrian/nyumba_stays/services"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	go services.FetchRates()
	go payments.GetKcbAccessToken()

	c := cron.New()
	c.AddFunc("0 * * * *", jobs.SendCheckInReminders)
	c.AddFunc("*/15 * * * *", jobs.ExpireUnpaidBookings)
	c.AddFunc("0 */6 * * *", func() { services.FetchRates() })
	go c.Start()
	log.Println("✅ Cron jobs scheduled successfully.")

	// Messaging core: store, topic registry, channel, and the async
	// notification pipeline behind it.
	store := messaging.NewGormStore(database.DB)
	topics := realtime.NewTopicRegistry()
	renderer := realtime.NewTemplateRenderer()

	var enqueuer realtime.NotificationEnqueuer
	queueClient, err := queue.NewClientFromEnv()
	if err != nil {
		log.Printf("⚠️ Notification queue disabled: %v", err)
	} else {
		enqueuer = queueClient
		defer queueClient.Close()
	}

	channel := realtime.NewChannel(store, realtime.ParticipantGate{}, topics, renderer, enqueuer)
	handlers.InitMessaging(store, channel, renderer, enqueuer)

	if queueClient != nil {
		dispatcher := notifications.NewDispatcher(store, notifications.ConfiguredEmailSender{}, notifications.NoopPushSender{}, topics, renderer)
		worker, err := queue.NewWorkerFromEnv(dispatcher)
		if err != nil {
			log.Printf("⚠️ Notification worker disabled: %v", err)
		} else {
			workerCtx, cancelWorker := context.WithCancel(context.Background())
			defer cancelWorker()
			go func() {
				if err := worker.Run(workerCtx); err != nil {
					log.Printf("🔥 Notification worker stopped: %v", err)
				}
			}()
		}
	}

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "Nyumba Stays",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		PassLocalsToViews: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Africa/Nairobi",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Nyumba Stays API",
		})
	})

	routes.PublicRoutes(app)
	routes.AuthRoutes(app)
	routes.ProfileRoutes(app)
	routes.PropertyRoutes(app)
	routes.BookingRoutes(app)
	routes.PaymentRoutes(app)
	routes.ReviewRoutes(app)
	routes.ArticleRoutes(app)
	routes.UploadRoutes(app)
	routes.MessagingRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	if err := app.Listen(":8080"); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
