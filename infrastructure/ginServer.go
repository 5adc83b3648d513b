package infrastructure

import (
	"fmt"
	"net/http"
	"os"
	"time"

	apperrors "facemark.io/application/appErrors"
	"facemark.io/application/controller"
	"facemark.io/infrastructure/logger"
	middlewares "facemark.io/infrastructure/middleware"
	ratelimit "facemark.io/infrastructure/ratelimit"
	webRoutev1 "facemark.io/infrastructure/routes/ginRouter/web/v1"
	server_response "facemark.io/infrastructure/serverResponse"
	startup "facemark.io/infrastructure/startUp"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type ginServer struct{}

func (s *ginServer) Start() {
	startup.StartServices()
	defer startup.CleanUpServices()

	server := gin.Default()
	origins := []string{"http://localhost:5174"}
	corsConfig := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	server.Use(cors.New(corsConfig))
	server.Use(ratelimit.TokenBucketPerIP())

	routerV1 := server.Group("/api").Group("/v1")
	routerV1.Use(middlewares.OpsAuthMiddleware())
	{
		webRoutev1.AttendanceRouter(routerV1)
	}

	server.GET("/health", controller.GetHealth)

	server.GET("/ping", func(ctx *gin.Context) {
		server_response.Responder.Respond(ctx, http.StatusOK, "pong!", nil, nil)
	})

	server.NoRoute(func(ctx *gin.Context) {
		apperrors.NotFoundError(ctx, fmt.Sprintf("%s %s does not exist", ctx.Request.Method, ctx.Request.URL))
	})

	gin_mode := os.Getenv("GIN_MODE")
	port := os.Getenv("PORT")
	if gin_mode == "debug" || gin_mode == "release" {
		logger.Info(fmt.Sprintf("Server starting on PORT %s", port))
		server.Run(fmt.Sprintf(":%s", port))
	} else {
		panic(fmt.Sprintf("invalid gin mode used - %s", gin_mode))
	}
}
