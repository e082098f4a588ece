// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	"escpos-service/internal/handler"
	"escpos-service/internal/middleware"
	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config         *config.Config
	logger         *zap.Logger
	db             handler.DatabaseChecker
	profileService *service.ProfileService
	printerService *service.PrinterService
	printService     *service.PrintService
	discoveryService *service.DiscoveryService
	eventBus         *service.EventBus
}

// NewRouter creates a new router instance. db is nil when persistence is disabled.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db handler.DatabaseChecker,
	profileService *service.ProfileService,
	printerService *service.PrinterService,
	printService *service.PrintService,
	discoveryService *service.DiscoveryService,
	eventBus *service.EventBus,
) *Router {
	return &Router{
		config:         config,
		logger:         logger,
		db:             db,
		profileService: profileService,
		printerService: printerService,
		printService:     printService,
		discoveryService: discoveryService,
		eventBus:         eventBus,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	r.addMiddleware(router)
	r.addRoutes(router)
	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))
	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.config, r.profileService.Version, r.logger)
	profileHandler := handler.NewProfileHandler(r.profileService, r.logger)
	printerHandler := handler.NewPrinterHandler(r.printerService, r.logger)
	jobHandler := handler.NewJobHandler(r.printService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.eventBus, r.config.Security.AllowedOrigins, r.logger)

	healthHandler.RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	profileHandler.RegisterRoutes(apiV1)
	printerHandler.RegisterRoutes(apiV1)
	discoveryHandler.RegisterRoutes(apiV1)

	jobs := apiV1.Group("")
	jobs.Use(middleware.BodyLimitMiddleware(r.config.Security.MaxJobBytes))
	jobHandler.RegisterRoutes(jobs)

	wsHandler.RegisterRoutes(router.Group("/ws"))

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
