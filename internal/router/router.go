package router

import (
	"time"

	"tradecore/internal/config"
	"tradecore/internal/handler"
	"tradecore/internal/middleware"
	"tradecore/internal/repository"
	"tradecore/internal/service"
	"tradecore/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	dealRepo := repository.NewDealRepository(db)
	historyRepo := repository.NewDealHistoryRepository(db)
	documentRepo := repository.NewDealDocumentRepository(db)
	companyRepo := repository.NewCompanyRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	access := service.NewAccessResolver(dealRepo)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	dealSvc := service.NewDealService(dealRepo, historyRepo, documentRepo, companyRepo, access, dispatcher)
	documentSvc := service.NewDocumentService(documentRepo, access)

	// ── Handlers ─────────────────────────────────────────────────────────────
	dealsH := handler.NewDealsHandler(dealSvc)
	documentsH := handler.NewDocumentsHandler(documentSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes — every deal operation is gated on the authenticated
	// company; buyer/seller resolution happens in the service layer.
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		deals := v1.Group("/deals")
		{
			deals.POST("", dealsH.Create)
			deals.GET("/:id", dealsH.Get)
			deals.PUT("/:id", dealsH.Update)
			deals.DELETE("/:id", dealsH.Delete)

			deals.POST("/:id/versions", dealsH.CreateVersion)
			deals.DELETE("/:id/versions/last", dealsH.DeleteLastVersion)

			deals.POST("/:id/propose", dealsH.Propose)
			deals.POST("/:id/accept", dealsH.Accept)
			deals.POST("/:id/reject", dealsH.Reject)

			deals.GET("/:id/history", dealsH.History)

			deals.GET("/:id/documents/:doc_type", documentsH.Get)
			deals.PUT("/:id/documents/:doc_type", documentsH.Save)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
