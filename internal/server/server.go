// Package server exposes the voucher engine to the browser front-end as a
// JSON API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bizbooks/voucherd/internal/config"
	"github.com/bizbooks/voucherd/internal/drafts"
	"github.com/bizbooks/voucherd/internal/voucher/service"
)

// Server wires the gin engine to the voucher service and draft registry.
type Server struct {
	engine   *gin.Engine
	svc      *service.Service
	registry *drafts.Registry
	log      *zap.Logger
}

// NewEngine builds the gin engine with recovery, request IDs and error
// translation installed.
func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware())
	engine.Use(ErrorHandlingMiddleware(log))
	return engine
}

type ServerParams struct {
	fx.In

	Engine   *gin.Engine
	Service  *service.Service
	Registry *drafts.Registry
	Log      *zap.Logger
	PromReg  *prometheus.Registry
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:   p.Engine,
		svc:      p.Service,
		registry: p.Registry,
		log:      p.Log.Named("http.server"),
	}
	s.registerRoutes(p.PromReg)
	return s
}

func (s *Server) registerRoutes(promReg *prometheus.Registry) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1")
	v1.GET("/companies", s.listCompanies)
	v1.GET("/companies/:companyID/ledgers", s.listLedgers)
	v1.GET("/vouchers/:type", s.listVouchers)
	v1.GET("/vouchers/:type/:id", s.getVoucher)

	v1.POST("/drafts", s.createDraft)
	v1.GET("/drafts/:draftID", s.getDraft)
	v1.DELETE("/drafts/:draftID", s.discardDraft)
	v1.PATCH("/drafts/:draftID", s.updateDraftField)
	v1.POST("/drafts/:draftID/lines", s.addLine)
	v1.DELETE("/drafts/:draftID/lines/:index", s.removeLine)
	v1.PATCH("/drafts/:draftID/lines/:index", s.updateLine)
	v1.GET("/drafts/:draftID/totals", s.draftTotals)
	v1.POST("/drafts/:draftID/validate", s.validateDraft)
	v1.POST("/drafts/:draftID/submit", s.submitDraft)
	v1.POST("/drafts/:draftID/post", s.postDraft)
	v1.POST("/drafts/:draftID/unpost", s.unpostDraft)
	v1.POST("/drafts/:draftID/delete-voucher", s.deleteVoucher)
}

// RequestIDMiddleware tags every request for correlation with upstream calls.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module wires the HTTP facade.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)
