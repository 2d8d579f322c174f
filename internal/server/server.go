package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/srithedesigner/credmatrix-backend/internal/activity"
	"github.com/srithedesigner/credmatrix-backend/internal/audit"
	auditdomain "github.com/srithedesigner/credmatrix-backend/internal/audit/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/auth"
	authdomain "github.com/srithedesigner/credmatrix-backend/internal/auth/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/auth/session"
	"github.com/srithedesigner/credmatrix-backend/internal/authorization"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	"github.com/srithedesigner/credmatrix-backend/internal/document"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/entity"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/ledger"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/observability"
	obsmiddleware "github.com/srithedesigner/credmatrix-backend/internal/observability/logger"
	obsmetrics "github.com/srithedesigner/credmatrix-backend/internal/observability/metrics"
	obstracing "github.com/srithedesigner/credmatrix-backend/internal/observability/tracing"
	"github.com/srithedesigner/credmatrix-backend/internal/otp"
	otpdomain "github.com/srithedesigner/credmatrix-backend/internal/otp/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/payment"
	paymentdomain "github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/providers"
	"github.com/srithedesigner/credmatrix-backend/internal/ratelimit"
	"github.com/srithedesigner/credmatrix-backend/internal/report"
	reportdomain "github.com/srithedesigner/credmatrix-backend/internal/report/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/signup"
	signupdomain "github.com/srithedesigner/credmatrix-backend/internal/signup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	providers.Module,
	ratelimit.Module,
	authorization.Module,
	audit.Module,
	auth.Module,
	otp.Module,
	entity.Module,
	signup.Module,
	ledger.Module,
	activity.Module,
	document.Module,
	report.Module,
	payment.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// jsonFieldName reports validation failures by their wire name.
func jsonFieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	sessions *session.Manager

	authSvc     authdomain.Service
	otpSvc      otpdomain.Service
	signupSvc   signupdomain.Service
	entitySvc   entitydomain.Service
	ledgerSvc   ledgerdomain.Service
	reportSvc   reportdomain.Service
	documentSvc documentdomain.Service
	paymentSvc  paymentdomain.Service
	auditSvc    auditdomain.Service
	authzSvc    authorization.Service
}

type ServerParams struct {
	fx.In

	Engine   *gin.Engine
	Config   config.Config
	Log      *zap.Logger
	Sessions *session.Manager

	AuthSvc     authdomain.Service
	OTPSvc      otpdomain.Service
	SignupSvc   signupdomain.Service
	EntitySvc   entitydomain.Service
	LedgerSvc   ledgerdomain.Service
	ReportSvc   reportdomain.Service
	DocumentSvc documentdomain.Service
	PaymentSvc  paymentdomain.Service
	AuditSvc    auditdomain.Service
	AuthzSvc    authorization.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Engine,
		cfg:         p.Config,
		log:         p.Log.Named("http.server"),
		sessions:    p.Sessions,
		authSvc:     p.AuthSvc,
		otpSvc:      p.OTPSvc,
		signupSvc:   p.SignupSvc,
		entitySvc:   p.EntitySvc,
		ledgerSvc:   p.LedgerSvc,
		reportSvc:   p.ReportSvc,
		documentSvc: p.DocumentSvc,
		paymentSvc:  p.PaymentSvc,
		auditSvc:    p.AuditSvc,
		authzSvc:    p.AuthzSvc,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAuthRoutes()
	s.RegisterAPIRoutes()
	s.RegisterAdminRoutes()
}

func (s *Server) RegisterAuthRoutes() {
	group := s.engine.Group("/auth")
	group.POST("/otp", s.SendOTP)
	group.POST("/signup", s.Signup)
	group.POST("/login", s.Login)
	group.POST("/refresh", s.Refresh)
	group.POST("/logout", s.Logout)
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("")
	api.Use(s.AuthRequired())

	api.GET("/me", s.authorize(authorization.ObjectProfile, authorization.ActionProfileView), s.Me)

	reports := api.Group("/reports")
	reports.POST("", s.authorize(authorization.ObjectReport, authorization.ActionReportCreate), s.InitiateReport)
	reports.GET("", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.ListReports)
	reports.GET("/:id", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.GetReport)
	reports.PATCH("/:id", s.authorize(authorization.ObjectReport, authorization.ActionReportUpdate), s.EditReport)
	reports.POST("/:id/cancel", s.authorize(authorization.ObjectReport, authorization.ActionReportCancel), s.CancelReport)
	reports.GET("/:id/activities", s.authorize(authorization.ObjectReport, authorization.ActionReportView), s.ListReportActivities)
	reports.GET("/:id/documents", s.authorize(authorization.ObjectDocument, authorization.ActionDocumentView), s.ListReportDocuments)

	documents := api.Group("/documents")
	documents.POST("/upload-url", s.authorize(authorization.ObjectDocument, authorization.ActionDocumentUpload), s.RequestUpload)
	documents.POST("/:id/confirm", s.authorize(authorization.ObjectDocument, authorization.ActionDocumentUpload), s.ConfirmUpload)
	documents.GET("/:id/download-url", s.authorize(authorization.ObjectDocument, authorization.ActionDocumentDownload), s.DownloadURL)

	api.GET("/credits", s.authorize(authorization.ObjectCredits, authorization.ActionCreditsView), s.GetCredits)

	payments := api.Group("/payments")
	payments.POST("/orders", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.CreatePaymentOrder)
	payments.POST("/verify", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentVerify), s.VerifyPayment)
	payments.GET("/:order_id/receipt", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.PaymentReceipt)
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())
	admin.POST("/entities/:id/credits", s.authorize(authorization.ObjectEntity, authorization.ActionEntityGrantCredits), s.GrantCredits)
	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func corsHandler(cfg config.Config, h http.Handler) http.Handler {
	origins := cfg.CORSAllowedOrigins
	allowAll := len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !allowAll,
		MaxAge:           600,
	}).Handler(h)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           corsHandler(cfg, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
