package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/api/handler"
	"github.com/open-apime/zapdash/internal/api/middleware"
	"github.com/open-apime/zapdash/internal/app"
	"github.com/open-apime/zapdash/internal/config"
	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/logger"
	"github.com/open-apime/zapdash/internal/notify"
	"github.com/open-apime/zapdash/internal/onboarding"
	"github.com/open-apime/zapdash/internal/server"
	"github.com/open-apime/zapdash/internal/service/admin"
	"github.com/open-apime/zapdash/internal/service/auth"
	"github.com/open-apime/zapdash/internal/service/campaign"
	"github.com/open-apime/zapdash/internal/service/instance"
	"github.com/open-apime/zapdash/internal/service/profile"
	"github.com/open-apime/zapdash/internal/storage/factory"
)

func main() {
	cfg := config.Load()

	logr, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logr.Sync()

	logr.Info("iniciando aplicação",
		zap.String("env", cfg.App.Env),
		zap.String("version", config.Version),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Storage.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := factory.NewRepositories(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("storage", zap.Error(err))
	}

	gw := gateway.NewClient(cfg.Gateway, logr)
	feed := notify.NewFeed(notify.DefaultCapacity)

	var webhook *onboarding.Client
	if cfg.Onboarding.WebhookURL != "" {
		webhook = onboarding.NewClient(cfg.Onboarding.WebhookURL, time.Duration(cfg.Onboarding.TimeoutSeconds)*time.Second, logr)
	}
	dispatcher := onboarding.NewDispatcher(repos.OnboardingQueue, webhook, logr, cfg.Onboarding.Workers)
	dispatcher.Start(context.Background())

	logr.Debug("inicializando serviços")
	controller := instance.NewController(instance.Deps{
		Gateway:    gw,
		Profiles:   repos.Profiles,
		Locker:     repos.Locker,
		Guard:      repos.Guard,
		Onboarding: dispatcher,
		Notifier:   feed,
	}, instance.OptionsFromConfig(cfg.Instance), logr)
	campaignService := campaign.NewService(gw, controller, feed, campaign.OptionsFromConfig(cfg.Campaign), logr)
	adminService := admin.NewService(gw, repos.Profiles, time.Duration(cfg.Admin.RestartRefreshSeconds)*time.Second, logr)
	authService := auth.NewService(repos.Users, repos.Profiles, cfg.JWT.Secret, cfg.JWT.TTL(), logr)
	profileService := profile.NewService(repos.Profiles, controller, adminService, logr)

	if err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logr.Error("erro ao garantir administrador inicial", zap.Error(err))
	}

	router := server.NewRouter(server.Options{
		Env:          cfg.App.Env,
		AllowOrigins: cfg.CORS.AllowOrigins,
		Logger:       logr,
		Tokens:       authService,
		Profiles:     repos.Profiles,

		HealthHandler:   handler.NewHealthHandler(repos),
		AuthHandler:     handler.NewAuthHandler(authService, controller, cfg.App.Env == "production"),
		MeHandler:       handler.NewMeHandler(profileService, feed),
		InstanceHandler: handler.NewInstanceHandler(controller),
		CampaignHandler: handler.NewCampaignHandler(campaignService),
		AdminHandler:    handler.NewAdminHandler(adminService),

		RateLimit: middleware.RateLimitOption{
			Enabled:  cfg.RateLimit.Enabled,
			Requests: cfg.RateLimit.Requests,
			Window:   time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			Prefix:   cfg.RateLimit.Prefix,
			Limiter:  repos.RateLimiter,
			Logger:   logr,
		},
		IPRateLimit: middleware.IPRateLimitOption{
			Enabled:        cfg.IPRateLimit.Enabled,
			Requests:       cfg.IPRateLimit.Requests,
			Window:         time.Duration(cfg.IPRateLimit.WindowSeconds) * time.Second,
			Limiter:        repos.RateLimiter,
			Logger:         logr,
			SkipPrivateIPs: cfg.IPRateLimit.SkipPrivateIPs,
		},
	})

	application := app.New(cfg, logr, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(context.Background())
	}()

	select {
	case <-ctx.Done():
		logr.Info("sinal de encerramento recebido")
	case err := <-errCh:
		if err != nil {
			logr.Error("servidor finalizado com erro", zap.Error(err))
		}
	}

	logr.Info("iniciando shutdown graceful")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logr.Error("erro ao encerrar servidor", zap.Error(err))
	} else {
		logr.Info("servidor encerrado")
	}

	controller.Shutdown()
	campaignService.Shutdown()
	logr.Info("fluxos de QR code e disparos encerrados")

	dispatcher.Stop()

	if err := repos.Close(); err != nil {
		logr.Warn("erro ao fechar repositórios", zap.Error(err))
	} else {
		logr.Info("banco e Redis fechados")
	}
}
