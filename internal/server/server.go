package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dairylink/creditledger/internal/catalog"
	catalogdomain "github.com/dairylink/creditledger/internal/catalog/domain"
	"github.com/dairylink/creditledger/internal/config"
	"github.com/dairylink/creditledger/internal/creditengine"
	enginedomain "github.com/dairylink/creditledger/internal/creditengine/domain"
	"github.com/dairylink/creditledger/internal/creditprofile"
	profiledomain "github.com/dairylink/creditledger/internal/creditprofile/domain"
	"github.com/dairylink/creditledger/internal/creditrequest"
	requestdomain "github.com/dairylink/creditledger/internal/creditrequest/domain"
	"github.com/dairylink/creditledger/internal/identity"
	identitydomain "github.com/dairylink/creditledger/internal/identity/domain"
	"github.com/dairylink/creditledger/internal/receivables"
	"github.com/dairylink/creditledger/internal/scheduler"
)

var Module = fx.Module("http.server",
	identity.Module,
	receivables.Module,
	catalog.Module,
	creditprofile.Module,
	creditengine.Module,
	creditrequest.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	profileSvc profiledomain.Service
	processor  enginedomain.Processor
	requestSvc requestdomain.Service
	catalogSvc catalogdomain.Service
	identity   identitydomain.Resolver
	sweeper    *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	ProfileSvc profiledomain.Service
	Processor  enginedomain.Processor
	RequestSvc requestdomain.Service
	CatalogSvc catalogdomain.Service
	Identity   identitydomain.Resolver
	Sweeper    *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log,
		profileSvc: p.ProfileSvc,
		processor:  p.Processor,
		requestSvc: p.RequestSvc,
		catalogSvc: p.CatalogSvc,
		identity:   p.Identity,
		sweeper:    p.Sweeper,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Farmer credit ledger --------
	credit := api.Group("/farmers/:id/credit")
	credit.GET("/eligibility", s.CheckEligibility)
	credit.GET("/transactions", s.ListCreditTransactions)
	credit.POST("/grant", s.GrantCredit)
	credit.POST("/use", s.UseCredit)
	credit.POST("/repay", s.RepayCredit)
	credit.POST("/adjust", s.AdjustCreditLimit)
	credit.POST("/freeze", s.FreezeCredit)
	credit.POST("/unfreeze", s.UnfreezeCredit)
	credit.POST("/settle", s.SettleCredit)

	// -------- Credit requests --------
	api.POST("/credit-requests", s.CreateCreditRequest)
	api.GET("/credit-requests", s.ListCreditRequests)
	api.GET("/credit-requests/:id", s.GetCreditRequestByID)
	api.POST("/credit-requests/:id/approve", s.ApproveCreditRequest)
	api.POST("/credit-requests/:id/reject", s.RejectCreditRequest)

	// -------- Catalog --------
	api.GET("/catalog/credit-eligible", s.ListCreditEligibleCatalog)
	api.POST("/catalog/products", s.CreateProduct)
	api.GET("/catalog/products/:id", s.GetProductByID)
	api.PATCH("/catalog/products/:id", s.UpdateProduct)
	api.GET("/catalog/products/:id/packaging-options", s.ListPackagingOptions)
	api.POST("/catalog/packaging-options", s.CreatePackagingOption)
	api.DELETE("/catalog/packaging-options/:id", s.DeletePackagingOption)

	// -------- Operations --------
	api.POST("/admin/settlements/run", s.RunSettlementSweep)
}
