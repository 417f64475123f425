package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formlock/formlock-backend/internal/application"
	"github.com/formlock/formlock-backend/internal/application/commands"
	"github.com/formlock/formlock-backend/internal/application/pipeline"
	"github.com/formlock/formlock-backend/internal/application/query"
	"github.com/formlock/formlock-backend/internal/infra/config"
	"github.com/formlock/formlock-backend/internal/infra/db/repo"
	"github.com/formlock/formlock-backend/internal/infra/render"
	"github.com/formlock/formlock-backend/internal/presentation/rest"
	"github.com/formlock/formlock-backend/internal/presentation/scheduler"
	"github.com/formlock/formlock-backend/pkg/db"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Init() {
	// DB
	dbConfig := db.NewConfig()
	pool, err := pgxpool.New(context.Background(), dbConfig.GetDSN())
	if err != nil {
		log.Panicf("failed to create pool: %v", err)
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Panicf("failed to connect to db: %v", err)
	}
	uowFactory := db.NewUoWFactory(pool)

	// Configs
	renderConfig := config.NewRenderConfig()
	webhookConfig := config.NewWebhookConfig()
	linkConfig := config.NewLinkConfig()

	// Repos
	store := repo.NewStore(uowFactory)
	deliveries := repo.NewDeliveryRepo(uowFactory)

	// Rendering
	cache := render.NewCache(renderConfig.CacheDir, renderConfig.CacheTTL)
	queue := render.NewQueue(renderConfig, cache, render.NewClient(renderConfig), store.SubmissionRepo)

	// Delivery
	dispatcher := pipeline.NewWebhookDispatcher(deliveries, webhookConfig)
	submissionPipeline := pipeline.NewSubmissionPipeline(store, queue, dispatcher)
	go submissionPipeline.Start()

	sweeper := scheduler.NewCacheSweeper(scheduler.NewSweepConfig(), cache)
	if err = sweeper.Start(); err != nil {
		log.Panicf("failed to start cache sweeper: %v", err)
	}

	handlers := &application.Handlers{
		CreateSubmissionLink: commands.NewCreateSubmissionLink(linkConfig, store.FormRepo, store.SubmissionRepo),
		StartSubmission:      commands.NewStartSubmission(store.SubmissionRepo),
		SubmitSubmission:     commands.NewSubmitSubmission(store.SubmissionRepo, submissionPipeline),
		RecordEntrance:       commands.NewRecordEntrance(store.EntranceRepo),
		GetSubmissionPDF:     query.NewGetSubmissionPDF(store.SubmissionRepo, queue),
		GetTimeline:          query.NewGetTimeline(store, deliveries),
	}
	handler := rest.NewServer(handlers)
	app := fiber.New(fiber.Config{
		IdleTimeout: 5 * time.Second,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	rest.RegisterHandlers(app, handler)

	go func() {
		if err := app.Listen(":8080"); err != nil {
			log.Panic(err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	_ = <-c
	fmt.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	submissionPipeline.Stop()
	sweeper.Stop()

	fmt.Println("Running cleanup tasks...")

	uowFactory.Pool.Close()
	fmt.Println("Fiber was successfully shutdown.")
}
