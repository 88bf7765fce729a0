package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guildest/guildest/internal/gateway/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "gateway-service",
		})
	})

	eventHandler := handler.NewEventHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		events := v1.Group("/events")
		{
			// POST /api/v1/events/message - Ingest a chat message event
			events.POST("/message", eventHandler.HandleMessage)

			// POST /api/v1/events/message_delete - Record a deletion
			events.POST("/message_delete", eventHandler.HandleMessageDelete)
		}

		guilds := v1.Group("/guilds")
		{
			// GET /api/v1/guilds/:guild_id/leaderboard - Most active users
			guilds.GET("/:guild_id/leaderboard", eventHandler.GetLeaderboard)

			// GET /api/v1/guilds/:guild_id/users/:user_id - One user's stats
			guilds.GET("/:guild_id/users/:user_id", eventHandler.GetUserStats)
		}
	}

	return r
}
