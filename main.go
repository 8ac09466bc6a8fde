package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/sorahane/guildserver/api/rest"
	"github.com/sorahane/guildserver/audit"
	"github.com/sorahane/guildserver/cache"
	"github.com/sorahane/guildserver/config"
	"github.com/sorahane/guildserver/db"
	"github.com/sorahane/guildserver/guild"
	mw "github.com/sorahane/guildserver/middleware"
	"github.com/sorahane/guildserver/model"
	"github.com/sorahane/guildserver/notify"
	"github.com/sorahane/guildserver/relation"
	"github.com/sorahane/guildserver/scheduler"
	"github.com/sorahane/guildserver/task"
	"github.com/sorahane/guildserver/territory"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin and event endpoints are disabled")
	}

	// ---- Database ----
	store, err := db.NewStore(cfg.Database, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer store.Close()

	gdb, err := store.DB(context.Background())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(gdb, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Notifier ----
	notifier := notify.NewPubSubNotifier(pubsub, sched, cfg.Notify.Channel, cfg.Notify.FlushDelay, logger)

	// ---- Services ----
	guildSvc := guild.NewService(store, cfg.Guild, cfg.Guild.ThresholdFunc(), notifier, logger)
	territorySvc := territory.NewService(store, cfg.Guild, territory.NopAuthorizer{}, notifier, logger)
	relationSvc := relation.NewService(store, cfg.War, notifier, logger)
	taskSvc := task.NewService(store, cfg.Task, guildSvc, task.DefaultDefinitions, notifier, logger)

	// ---- Periodic Scheduler Tasks ----
	sched.Every("war.advance", cfg.War.AdvanceInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := relationSvc.AdvanceWars(ctx, time.Now()); err != nil {
			logger.Error("war advance tick failed", zap.Error(err))
		}
	})
	sched.Every("task.generate", cfg.Task.GenerateInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := taskSvc.GenerateAll(ctx); err != nil {
			logger.Error("task generation tick failed", zap.Error(err))
		}
	})
	sched.Every("task.expire", cfg.Task.ExpireInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := taskSvc.PruneExpired(ctx); err != nil {
			logger.Error("task expiry tick failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(store, c, cfg.Security, logger)
	guildH := apirest.NewGuildHandler(store, guildSvc, auditSvc)
	terrH := apirest.NewTerritoryHandler(guildSvc, territorySvc, auditSvc)
	relH := apirest.NewRelationHandler(guildSvc, relationSvc, auditSvc)
	taskH := apirest.NewTaskHandler(taskSvc)
	eventH := apirest.NewEventHandler(guildSvc, relationSvc, taskSvc)
	adminH := apirest.NewAdminHandler(guildSvc, relationSvc, taskSvc, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)

		guildsG := api.Group("/guilds")
		guildsG.Use(mw.Auth(cfg.Security, c))
		guildsG.POST("", guildH.Create)
		guildsG.GET("", guildH.List)
		guildsG.GET("/:id", guildH.Detail)
		guildsG.DELETE("/:id", guildH.Disband)
		guildsG.POST("/:id/apply", guildH.Apply)
		guildsG.GET("/:id/requests", guildH.ListRequests)
		guildsG.POST("/requests/:rid/accept", guildH.ResolveRequest(true))
		guildsG.POST("/requests/:rid/reject", guildH.ResolveRequest(false))
		guildsG.POST("/leave", guildH.Leave)
		guildsG.DELETE("/:id/members/:pid", guildH.Kick)
		guildsG.PUT("/:id/members/:pid/role", guildH.SetRole)
		guildsG.PUT("/:id/announcement", guildH.SetAnnouncement)
		guildsG.PUT("/:id/public", guildH.SetPublic)
		guildsG.POST("/:id/bank/deposit", guildH.Deposit)
		guildsG.POST("/:id/bank/withdraw", guildH.Withdraw)
		guildsG.GET("/:id/territory", terrH.Claims)
		guildsG.GET("/:id/allies", relH.Allies)
		guildsG.GET("/:id/wars", relH.Wars)
		guildsG.GET("/:id/tasks", taskH.Active)
		guildsG.POST("/:id/tasks", taskH.Generate)

		terrG := api.Group("/territory")
		terrG.Use(mw.Auth(cfg.Security, c))
		terrG.POST("/claim", terrH.Claim)
		terrG.POST("/unclaim", terrH.Unclaim)
		terrG.GET("/owner", terrH.Owner)
		terrG.GET("/permission", terrH.Permission)
		terrG.POST("/move", terrH.Move)

		relG := api.Group("/relations")
		relG.Use(mw.Auth(cfg.Security, c))
		relG.POST("/alliances/requests", relH.SubmitAlliance)
		relG.GET("/alliances/requests", relH.ListAllianceRequests)
		relG.POST("/alliances/requests/:rid/accept", relH.ResolveAlliance(true))
		relG.POST("/alliances/requests/:rid/reject", relH.ResolveAlliance(false))
		relG.DELETE("/alliances/:gid", relH.DissolveAlliance)
		relG.POST("/wars", relH.DeclareWar)
		relG.GET("/wars/:wid", relH.GetWar)
		relG.GET("/wars/:wid/kills", relH.Kills)
		relG.POST("/wars/:wid/ceasefire", relH.SubmitCeasefire)
		relG.POST("/ceasefires/:rid/accept", relH.ResolveCeasefire(true))
		relG.POST("/ceasefires/:rid/reject", relH.ResolveCeasefire(false))

		// Server-to-server event ingest from the game server.
		eventsG := api.Group("/events")
		eventsG.Use(mw.AdminKey(cfg.Server.AdminKey))
		eventsG.POST("/kill", eventH.Kill)
		eventsG.POST("/progress", eventH.Progress)
		eventsG.GET("/candamage", eventH.CanDamage)

		adminG := api.Group("/admin")
		adminG.Use(mw.AdminKey(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/wars/advance", adminH.AdvanceWars)
		adminG.POST("/guilds/:id/exp", adminH.AddExperience)
		adminG.POST("/tasks/generate", adminH.GenerateTasks)
		adminG.POST("/tasks/prune", adminH.PruneTasks)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
