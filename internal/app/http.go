package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/evlasenko/go-todo-app/internal/config"
	"github.com/evlasenko/go-todo-app/internal/delivery/http/v1"
	"github.com/evlasenko/go-todo-app/internal/models"
	"github.com/evlasenko/go-todo-app/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	cfg := config.Global()

	tokens := services.NewTokenManager(
		cfg.JWT.Issuer,
		[]byte(cfg.JWT.SigningKey),
		cfg.JWT.TokenTTL,
	)
	authService := services.NewAuthService(
		globalLogger,
		globalPostgresPool,
		tokens,
		cfg.Password,
	)
	todoService := services.NewTodoService(globalLogger, globalPostgresPool)
	adminService := services.NewAdminService(globalLogger, globalPostgresPool)

	v1Handler := v1.New(globalLogger, authService, todoService, adminService)
	router = router.Group("/api")

	authRouter := router.Group("/auth")
	authRouter.POST("/register", v1Handler.HandleRegister)
	authRouter.POST("/login", v1Handler.HandleLogin)
	authRouter.GET("/me", v1Handler.HandleAuthMiddleware, v1Handler.HandleGetMe)

	todoRouter := router.Group("/todos", v1Handler.HandleAuthMiddleware)
	todoRouter.POST("", v1Handler.HandleCreateTodo)
	todoRouter.GET("", v1Handler.HandleGetTodos)
	todoRouter.GET("/:id", v1Handler.HandleGetTodo)
	todoRouter.PUT("/:id", v1Handler.HandleUpdateTodo)
	todoRouter.DELETE("/:id", v1Handler.HandleDeleteTodo)

	adminRouter := router.Group("/admin",
		v1Handler.HandleAuthMiddleware,
		v1Handler.RequireRoles(models.RoleAdmin))
	adminRouter.GET("/users", v1Handler.HandleListUsers)
	adminRouter.GET("/users/:id", v1Handler.HandleGetUser)
	adminRouter.PATCH("/users/:id/role", v1Handler.HandleSetUserRole)
	adminRouter.GET("/stats", v1Handler.HandleGetStats)
	adminRouter.GET("/todos", v1Handler.HandleListAllTodos)
}
