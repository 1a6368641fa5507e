// Package server assembles repositories, services and handlers into the
// HTTP engine served by cmd/api.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/crowdfund/internal/config"
	"github.com/nimasrn/crowdfund/internal/handlers"
	"github.com/nimasrn/crowdfund/internal/idempotency"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/internal/services"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"github.com/nimasrn/crowdfund/pkg/prom"
	"github.com/nimasrn/crowdfund/pkg/redis"
)

const requestTimeout = 30 * time.Second

// PaymentGateway is the part of the mobile-money client the services use.
type PaymentGateway interface {
	services.ChargeGateway
	services.SubaccountCreator
}

type Deps struct {
	Config    *config.Config
	DB        *pg.DB
	Redis     redis.RedisAdapter
	Store     services.Store
	Gateway   PaymentGateway
	Verifier  services.IdentityVerifier
	Tokens    services.TokenManager
	Publisher services.Publisher
	// UploadsDir is served under /uploads when files are stored locally.
	UploadsDir string
}

// Services exposes the wired services for binaries that need them outside
// the HTTP layer.
type Services struct {
	Users         *services.UserService
	Campaigns     *services.CampaignService
	Payments      *services.PaymentService
	Withdrawals   *services.WithdrawalService
	Content       *services.ContentService
	Settings      *services.SettingsService
	Templates     *services.TemplateService
	Dashboard     *services.DashboardService
	Notifications *services.NotificationService
}

func NewServices(d Deps) (*Services, error) {
	if d.Config == nil || d.DB == nil || d.Redis == nil {
		return nil, errors.New("server: config, db and redis are required")
	}
	cfg := d.Config

	users := repository.NewUserRepository(d.DB)
	campaigns := repository.NewCampaignRepository(d.DB)
	payments := repository.NewPaymentRepository(d.DB)
	withdrawals := repository.NewWithdrawalRepository(d.DB)
	comments := repository.NewCommentRepository(d.DB)
	updates := repository.NewCampaignUpdateRepository(d.DB)
	settingsRepo := repository.NewSettingsRepository(d.DB)
	templates := repository.NewEmailTemplateRepository(d.DB)

	notifications := services.NewNotificationService(templates, d.Publisher, cfg.AppBaseUrl)
	settings := services.NewSettingsService(settingsRepo, d.Redis, cfg.AppCurrency)
	webhookGuard := idempotency.NewService(d.Redis, idempotency.WebhookConfig())

	return &Services{
		Users:         services.NewUserService(users, d.Verifier, d.Tokens, d.Store, notifications, cfg.AdminEmailList()),
		Campaigns:     services.NewCampaignService(campaigns, users, settings, d.Store, d.Gateway, notifications, cfg.AppCurrency),
		Payments:      services.NewPaymentService(payments, campaigns, users, d.DB, settings, d.Gateway, webhookGuard, notifications, cfg.GatewayWebhookSecret),
		Withdrawals:   services.NewWithdrawalService(withdrawals, campaigns, users, d.DB, notifications),
		Content:       services.NewContentService(comments, updates, campaigns),
		Settings:      settings,
		Templates:     services.NewTemplateService(templates, users, payments, notifications),
		Dashboard:     services.NewDashboardService(users, campaigns, payments, withdrawals),
		Notifications: notifications,
	}, nil
}

// New builds the engine with every route and middleware registered.
func New(d Deps) (*xhttp.Engine, *Services, error) {
	svc, err := NewServices(d)
	if err != nil {
		return nil, nil, err
	}
	cfg := d.Config

	opt := xhttp.DefaultServerOption()
	opt.ReadTimeout = time.Duration(cfg.HttpServerReadTimeout) * time.Second
	opt.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeout) * time.Second
	opt.ReadBufferSize = cfg.HttpServerReadBufferSize
	opt.WriteBufferSize = cfg.HttpServerWriteBufferSize
	opt.MaxRequestBodySize = cfg.HttpMaxRequestBodySize

	s := xhttp.NewServer(opt)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware(prom.ObserveRequest))
	s.Use(xhttp.CORSMiddleware(cfg.AppBaseUrl))
	s.Use(xhttp.TimeoutMiddleware(requestTimeout))

	mw := handlers.NewMiddleware(svc.Users, d.Redis, cfg.RateLimitRequests, cfg.RateLimitWindow)

	g := s.Router.Group(cfg.HttpBaseRequestUrl)
	handlers.RegisterAuthRoutes(g, handlers.NewAuthHandler(svc.Users), mw)
	handlers.RegisterCampaignRoutes(g, handlers.NewCampaignHandler(svc.Campaigns), mw)
	handlers.RegisterPaymentRoutes(g, handlers.NewPaymentHandler(svc.Payments), mw)
	handlers.RegisterWithdrawalRoutes(g, handlers.NewWithdrawalHandler(svc.Withdrawals), mw)
	handlers.RegisterContentRoutes(g, handlers.NewContentHandler(svc.Content), mw)
	handlers.RegisterSettingsRoutes(g, handlers.NewSettingsHandler(svc.Settings), mw)
	handlers.RegisterTemplateRoutes(g, handlers.NewTemplateHandler(svc.Templates), mw)
	handlers.RegisterDashboardRoutes(g, handlers.NewDashboardHandler(svc.Dashboard), mw)
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(map[string]handlers.Checker{
		"database": d.DB,
		"redis": handlers.CheckFunc(func(ctx context.Context) error {
			return d.Redis.Client().Ping(ctx).Err()
		}),
	}))

	pages, err := handlers.NewPageHandler(svc.Campaigns, svc.Settings, cfg.AppBaseUrl)
	if err != nil {
		return nil, nil, err
	}
	handlers.RegisterPageRoutes(s.Router, pages)

	if d.UploadsDir != "" {
		s.Router.ServeFiles("/uploads/{filepath:*}", d.UploadsDir)
	}

	return s, svc, nil
}
