package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	analyticsapp "github.com/marketplace/backend/internal/application/analytics"
	catalogapp "github.com/marketplace/backend/internal/application/catalog"
	checkoutapp "github.com/marketplace/backend/internal/application/checkout"
	identityapp "github.com/marketplace/backend/internal/application/identity"
	paymentapp "github.com/marketplace/backend/internal/application/payment"
	settingsapp "github.com/marketplace/backend/internal/application/settings"
	vendorapp "github.com/marketplace/backend/internal/application/vendor"
	walletapp "github.com/marketplace/backend/internal/application/wallet"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/cache"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/event"
	"github.com/marketplace/backend/internal/infrastructure/invoice"
	"github.com/marketplace/backend/internal/infrastructure/payment"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"github.com/marketplace/backend/internal/infrastructure/realtime"
	"github.com/marketplace/backend/internal/infrastructure/scheduler"
	"github.com/marketplace/backend/internal/infrastructure/storage"
	"github.com/marketplace/backend/internal/infrastructure/strategy"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// services holds everything the HTTP layer and the background workers use
type services struct {
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	stores    *cache.Stores
	bus       *event.InMemoryEventBus
	hub       *realtime.Hub
	bridge    *realtime.PGBridge
	pgPool    *pgxpool.Pool
	gateways  *payment.GatewayRegistry
	invoices  *invoice.ChromeRenderer
	scheduler *scheduler.Scheduler

	auth      *identityapp.AuthService
	products  *catalogapp.ProductService
	vendors   *vendorapp.VendorService
	checkout  *checkoutapp.CheckoutService
	payments  *paymentapp.PaymentService
	wallets   *walletapp.WalletService
	settings  *settingsapp.SettingsService
	analytics *analyticsapp.AnalyticsService
}

// buildGateways registers every configured gateway. Gateways that are
// configured but disabled stay resolvable so late callbacks still settle.
func buildGateways(cfg config.PaymentConfig, log *zap.Logger) (*payment.GatewayRegistry, error) {
	registry := payment.NewGatewayRegistry()
	opts := payment.ClientOptions{Timeout: cfg.Timeout, RetryCount: cfg.RetryCount}

	if cfg.PayPal.ClientID != "" {
		gw, err := payment.NewPayPalAdapter(&payment.PayPalConfig{
			BaseURL:      cfg.PayPal.BaseURL,
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			WebhookID:    cfg.PayPal.WebhookID,
			BrandName:    cfg.PayPal.BrandName,
		}, opts)
		if err != nil {
			return nil, fmt.Errorf("paypal: %w", err)
		}
		registry.Register(gw, cfg.PayPal.Enabled)
	}
	if cfg.IVeri.ApplicationID != "" {
		gw, err := payment.NewIVeriAdapter(&payment.IVeriConfig{
			BaseURL:                 cfg.IVeri.BaseURL,
			ApplicationID:           cfg.IVeri.ApplicationID,
			CertificateID:           cfg.IVeri.CertificateID,
			Mode:                    cfg.IVeri.Mode,
			MerchantReferencePrefix: cfg.IVeri.MerchantReferencePrefix,
		}, opts)
		if err != nil {
			return nil, fmt.Errorf("iveri: %w", err)
		}
		registry.Register(gw, cfg.IVeri.Enabled)
	}
	if cfg.Paynow.IntegrationID != "" {
		gw, err := payment.NewPaynowAdapter(&payment.PaynowConfig{
			BaseURL:        cfg.Paynow.BaseURL,
			IntegrationID:  cfg.Paynow.IntegrationID,
			IntegrationKey: cfg.Paynow.IntegrationKey,
			AuthEmail:      cfg.Paynow.AuthEmail,
		}, opts)
		if err != nil {
			return nil, fmt.Errorf("paynow: %w", err)
		}
		registry.Register(gw, cfg.Paynow.Enabled)
	}

	log.Info("Payment gateways registered", zap.Any("enabled", registry.ListGateways()))
	return registry, nil
}

func buildServices(ctx context.Context, cfg *config.Config, db *persistence.Database, providers *telemetry.Providers, log *zap.Logger) (*services, error) {
	s := &services{}
	repos := persistence.NewRepositories(db.DB)

	stores, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).CreateStores()
	if err != nil {
		return nil, err
	}
	s.stores = stores

	s.jwt = auth.NewJWTService(cfg.JWT)
	if stores.Client != nil {
		s.blacklist = auth.NewRedisTokenBlacklist(stores.Client, "")
	} else {
		s.blacklist = auth.NewInMemoryTokenBlacklist()
	}

	strategies, err := strategy.NewRegistryWithDefaults("")
	if err != nil {
		return nil, fmt.Errorf("strategies: %w", err)
	}

	var images catalogapp.ObjectStorage
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		images = s3
	}

	if s.gateways, err = buildGateways(cfg.Payment, log); err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewBusinessMetrics(providers.Meter.Meter("marketplace"))
	if err != nil {
		return nil, fmt.Errorf("business metrics: %w", err)
	}

	// Event fan-out: realtime hub, the cross-instance bridge and wallet crediting
	s.bus = event.NewInMemoryEventBus(log)
	s.hub = realtime.NewHub(realtime.WithBufferSize(cfg.Realtime.BufferSize), realtime.WithLogger(log))
	s.bus.Subscribe(s.hub)

	if cfg.Realtime.NotifyEnabled {
		s.pgPool, err = pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("realtime pool: %w", err)
		}
		serializer := event.NewEventSerializer()
		event.RegisterMarketplaceEvents(serializer)
		host, _ := os.Hostname()
		origin := fmt.Sprintf("%s-%d", host, os.Getpid())
		s.bridge = realtime.NewPGBridge(s.pgPool, nil, cfg.Realtime.Channel, origin, serializer, s.hub, log)
		s.bus.Subscribe(s.bridge)
	}

	s.settings = settingsapp.NewSettingsService(repos.Settings, strategies, log)
	s.auth = identityapp.NewAuthService(repos.Profiles, repos.Vendors, s.jwt, s.blacklist, log)
	s.products = catalogapp.NewProductService(repos.Products, repos.Vendors, repos.Settings, strategies, images, log)
	s.vendors = vendorapp.NewVendorService(repos.Vendors, repos.Profiles, repos.Wallets, repos.Settings, log)
	s.wallets = walletapp.NewWalletService(repos.Wallets, repos.Commissions, repos.Payouts, repos.Orders, repos.Vendors, repos.Settings, log)
	s.payments = paymentapp.NewPaymentService(repos.Payments, repos.Orders, repos.Checkout, s.gateways, stores.Idempotency,
		paymentapp.Config{CallbackBaseURL: cfg.App.PublicURL}, log)
	s.checkout = checkoutapp.NewCheckoutService(repos.Products, repos.Vendors, repos.Orders, repos.Settings, repos.Checkout,
		strategies, s.auth, s.payments, log)
	s.analytics = analyticsapp.NewAnalyticsService(repos.Orders, repos.Vendors, repos.Commissions, repos.Settings, stores.Visits, log)

	s.settings.SetEventPublisher(s.bus)
	s.auth.SetEventPublisher(s.bus)
	s.products.SetEventPublisher(s.bus)
	s.vendors.SetEventPublisher(s.bus)
	s.wallets.SetEventPublisher(s.bus)
	s.payments.SetEventPublisher(s.bus)
	s.checkout.SetEventPublisher(s.bus)
	s.checkout.SetMetrics(metrics)
	s.payments.SetMetrics(metrics)

	walletCredits := walletapp.NewOrderEventHandler(s.wallets, repos.Orders, log)
	s.bus.Subscribe(event.NewIdempotentHandler("wallet-credits", walletCredits, stores.Idempotency, log), walletCredits.EventTypes()...)

	if cfg.Invoice.Enabled {
		s.invoices, err = invoice.NewChromeRenderer(invoice.Config{
			RemoteURL:       cfg.Invoice.ChromeURL,
			Timeout:         cfg.Invoice.Timeout,
			Locale:          cfg.Invoice.Locale,
			MarketplaceName: cfg.Invoice.MarketplaceName,
			Logger:          log,
		})
		if err != nil {
			return nil, fmt.Errorf("invoice renderer: %w", err)
		}
		s.checkout.SetInvoiceRenderer(s.invoices)
	}

	if cfg.Scheduler.Enabled {
		s.scheduler = scheduler.NewScheduler(scheduler.Config{JobTimeout: cfg.Scheduler.JobTimeout},
			scheduler.NewJobRunRepository(db.DB), log)
		if err := scheduler.RegisterMarketplaceJobs(s.scheduler, scheduler.MarketplaceJobs{
			PaymentPollSchedule:   cfg.Scheduler.PaymentPollSchedule,
			PayoutReleaseSchedule: cfg.Scheduler.PayoutReleaseSchedule,
			StaleOrderSchedule:    cfg.Scheduler.StaleOrderSchedule,
			WalletCreditSchedule:  cfg.Scheduler.WalletCreditSchedule,
			StaleOrderAfter:       cfg.Scheduler.StaleOrderAfter,
			BatchSize:             cfg.Scheduler.BatchSize,
			Payments:              s.payments,
			Payouts:               s.wallets,
			Orders:                s.checkout,
			Credits:               s.wallets,
		}); err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
	}

	return s, nil
}

// handlers builds the HTTP handlers over the services
func (s *services) handlers(cfg *config.Config, version string, log *zap.Logger) router.Handlers {
	return router.Handlers{
		Auth:      handler.NewAuthHandler(s.auth),
		Product:   handler.NewProductHandler(s.products),
		Vendor:    handler.NewVendorHandler(s.vendors),
		Checkout:  handler.NewCheckoutHandler(s.checkout),
		Payment:   handler.NewPaymentHandler(s.payments, log),
		Wallet:    handler.NewWalletHandler(s.wallets),
		Settings:  handler.NewSettingsHandler(s.settings),
		Analytics: handler.NewAnalyticsHandler(s.analytics),
		Realtime: handler.NewRealtimeHandler(s.hub,
			handler.WithRealtimeLogger(log),
			handler.WithRealtimeHeartbeat(cfg.Realtime.HeartbeatInterval),
			handler.WithRealtimeMaxClients(cfg.Realtime.MaxClients)),
		System: handler.NewSystemHandler(cfg.App.Name, version, s.gateways, s.hub),
	}
}

// close releases the services in reverse dependency order
func (s *services) close(ctx context.Context, log *zap.Logger) {
	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			log.Warn("Scheduler stop", zap.Error(err))
		}
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.bus != nil {
		_ = s.bus.Stop(ctx)
	}
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.invoices != nil {
		_ = s.invoices.Close()
	}
	if s.stores != nil {
		if err := s.stores.Close(); err != nil {
			log.Warn("Cache close", zap.Error(err))
		}
	}
}
