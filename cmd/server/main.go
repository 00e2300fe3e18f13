package main

import (
	"log"

	"github.com/stevengranter/wilderquest-sub001/internal/config"
	"github.com/stevengranter/wilderquest-sub001/internal/database"
	"github.com/stevengranter/wilderquest-sub001/internal/handlers"
	"github.com/stevengranter/wilderquest-sub001/internal/middleware"
	"github.com/stevengranter/wilderquest-sub001/internal/services"
	"github.com/stevengranter/wilderquest-sub001/internal/ws"

	_ "github.com/stevengranter/wilderquest-sub001/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           WilderQuest Share API
// @version         1.0
// @description     Shared quests: owners invite guests to jointly or competitively mark taxa as found, with live event fanout to all viewers.
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewBroadcaster()

	authService := services.NewAuthService(db, cfg.JWTSecret)
	lifecycleService := services.NewLifecycleService(db, hub)
	shareService := services.NewShareService(db)
	progressService := services.NewProgressService(db, hub, shareService)
	questService := services.NewQuestService(db, lifecycleService, hub)
	questShareService := services.NewQuestShareService(db, lifecycleService, shareService, progressService)

	authHandler := handlers.NewAuthHandler(authService)
	questHandler := handlers.NewQuestHandler(questService, lifecycleService, questShareService)
	shareHandler := handlers.NewShareHandler(shareService, questShareService)
	wsHandler := handlers.NewWSHandler(hub, authService, shareService, questService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws/quest/:id", wsHandler.HandleQuestSocket)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		quests := api.Group("/quests")
		quests.Use(middleware.JWTAuth(authService))
		{
			quests.POST("", questHandler.CreateQuest)
			quests.GET("", questHandler.ListQuests)
			quests.GET("/:id", questHandler.GetQuest)
			quests.PUT("/:id", questHandler.UpdateQuest)
			quests.POST("/:id/status", questHandler.UpdateStatus)
			quests.POST("/:id/observations", questHandler.RecordObservation)
			quests.GET("/:id/progress", questHandler.GetProgress)
			quests.GET("/:id/progress/detailed", questHandler.GetDetailedProgress)
			quests.GET("/:id/leaderboard", questHandler.GetLeaderboard)
			quests.POST("/:id/shares", shareHandler.CreateShare)
			quests.GET("/:id/shares", shareHandler.ListShares)
		}

		sharesAdmin := api.Group("/shares")
		sharesAdmin.Use(middleware.JWTAuth(authService))
		{
			sharesAdmin.DELETE("/:id", shareHandler.DeleteShare)
		}

		// Token-authenticated guest surface; no JWT required.
		share := api.Group("/share")
		{
			share.GET("/:token", shareHandler.ResolveShare)
			share.POST("/:token/observations", shareHandler.RecordShareObservation)
			share.GET("/:token/progress", shareHandler.GetShareProgress)
			share.GET("/:token/leaderboard", shareHandler.GetShareLeaderboard)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
