package publishing

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/config"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/database"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/exports"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/router"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

// Manager coordinates the publishing services and their HTTP routers
type Manager struct {
	db       *gorm.DB
	calendar service.Calendar

	Catalog     *service.CatalogService
	Manuscripts *service.ManuscriptService
	Pipeline    *service.PipelineService
	Reports     *service.ReportService
	Dispatcher  *service.Dispatcher

	manuscriptRouter *router.ManuscriptRouter
	bookRouter       *router.BookRouter
	catalogRouter    *router.CatalogRouter
	reportRouter     *router.ReportRouter
	exportHandler    *exports.HTTPHandler
}

// NewManager wires the services. exportService may be nil when exports are disabled.
func NewManager(db *gorm.DB, calendar service.Calendar, exportService *exports.ExportService) *Manager {
	catalog := service.NewCatalogService(db)
	tasks := service.NewTaskProgressStore()
	manuscripts := service.NewManuscriptService(db, catalog, tasks, calendar)
	pipeline := service.NewPipelineService(db, tasks, calendar)

	dispatcher := service.NewDispatcher(manuscripts, pipeline, catalog)

	m := &Manager{
		db:          db,
		calendar:    calendar,
		Catalog:     catalog,
		Manuscripts: manuscripts,
		Pipeline:    pipeline,
		Dispatcher:  dispatcher,
	}

	m.manuscriptRouter = router.NewManuscriptRouter(manuscripts, dispatcher)
	m.bookRouter = router.NewBookRouter(pipeline, dispatcher)
	m.catalogRouter = router.NewCatalogRouter(catalog, dispatcher)
	m.EnableExports(exportService)
	return m
}

// EnableExports rebuilds the report service around exportService. A nil service
// disables report export.
func (m *Manager) EnableExports(exportService *exports.ExportService) {
	var exporter service.ReportExporter
	m.exportHandler = nil
	if exportService != nil {
		exporter = exportService
		m.exportHandler = exports.NewHTTPHandler(exportService)
	}
	m.Reports = service.NewReportService(m.db, m.Catalog, m.calendar, exporter)
	m.reportRouter = router.NewReportRouter(m.Reports)
}

// SeedCatalog loads the stage catalog from a YAML file when the catalog is empty.
func (m *Manager) SeedCatalog(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	stages, err := service.LoadCatalogSeedFile(path)
	if err != nil {
		return err
	}
	n, err := m.Catalog.Seed(ctx, stages)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("stage catalog seeded", "file", path, "stages", n)
	}
	return nil
}

// NewEngine builds the gin engine with CORS, compression and all publishing routes.
func (m *Manager) NewEngine(cfg *config.Config, tokens auth.TokenService) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	m.RegisterRoutes(engine, tokens)
	return engine
}

// RegisterRoutes mounts the API under /api/v1. Every route except /healthz requires a
// bearer token; mutating routes additionally require a capability.
func (m *Manager) RegisterRoutes(engine *gin.Engine, tokens auth.TokenService) {
	engine.GET("/healthz", m.handleHealth)

	api := engine.Group("/api/v1")
	api.Use(auth.Middleware(tokens))
	need := auth.RequireCapability

	manuscripts := api.Group("/manuscripts")
	manuscripts.GET("", m.manuscriptRouter.HandleListManuscripts)
	manuscripts.GET("/:id", m.manuscriptRouter.HandleGetManuscript)
	manuscripts.POST("", need(auth.CanSubmit), m.manuscriptRouter.HandleCreateManuscript)
	manuscripts.PUT("/:id", need(auth.CanSubmit), m.manuscriptRouter.HandleUpdateManuscript)
	manuscripts.POST("/:id/submit", need(auth.CanSubmit), m.manuscriptRouter.HandleSubmitManuscript)
	manuscripts.POST("/:id/approve", need(auth.CanApprove), m.manuscriptRouter.HandleApproveManuscript)
	manuscripts.POST("/:id/reject", need(auth.CanReject), m.manuscriptRouter.HandleRejectManuscript)
	manuscripts.POST("/:id/archive", need(auth.CanApprove), m.manuscriptRouter.HandleArchiveManuscript)

	books := api.Group("/books")
	books.GET("", m.bookRouter.HandleListBooks)
	books.GET("/:id", m.bookRouter.HandleGetPipeline)
	books.POST("/:id/print-date", need(auth.CanAdvance), m.bookRouter.HandleRecordPrintDate)
	books.POST("/:id/cancel", need(auth.CanApprove), m.bookRouter.HandleCancelBook)
	books.DELETE("/:id", need(auth.CanManageCatalog), m.bookRouter.HandleDeleteBook)

	tasks := api.Group("/tasks")
	tasks.POST("/:id/advance", need(auth.CanAdvance), m.bookRouter.HandleAdvanceTask)
	tasks.PUT("/:id", need(auth.CanAdvance), m.bookRouter.HandleAssignTask)

	catalog := api.Group("/catalog")
	catalog.GET("", m.catalogRouter.HandleGetCatalog)
	catalog.POST("", need(auth.CanManageCatalog), m.catalogRouter.HandleAddStage)
	catalog.PUT("/order", need(auth.CanReorderCatalog), m.catalogRouter.HandleReorderCatalog)
	catalog.PUT("/:id", need(auth.CanManageCatalog), m.catalogRouter.HandleUpdateStage)
	catalog.DELETE("/:id", need(auth.CanManageCatalog), m.catalogRouter.HandleDeleteStage)

	reports := api.Group("/reports", need(auth.CanViewReports))
	reports.GET("", m.reportRouter.HandleGetReport)
	reports.POST("/export", m.reportRouter.HandleExportReport)
	if m.exportHandler != nil {
		reports.GET("/exports/:key", m.exportHandler.Download)
	}
}

func (m *Manager) handleHealth(c *gin.Context) {
	if err := database.HealthCheck(m.db); err != nil {
		slog.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
