// Command storefront runs the headless storefront client: it signs in,
// keeps the session alive, and keeps the header badges consistent with
// the hosted backend. It exists to exercise the client core end to end
// against a real project.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trademart/storefront/internal/auth"
	"github.com/trademart/storefront/internal/cart"
	"github.com/trademart/storefront/internal/catalog"
	"github.com/trademart/storefront/internal/config"
	"github.com/trademart/storefront/internal/notifications"
	"github.com/trademart/storefront/internal/session"
	"github.com/trademart/storefront/internal/store"
	"github.com/trademart/storefront/internal/view"
	"github.com/trademart/storefront/supabase/client"
)

func main() {
	var (
		configPath = flag.String("config", "config/storefront.yaml", "Path to configuration file")
		envFile    = flag.String("env", ".env", "Path to .env with SUPABASE_URL and SUPABASE_ANON_KEY")
		email      = flag.String("email", "", "Sign in with this email (password from STOREFRONT_PASSWORD)")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("load env (%s): %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := buildLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	supa, err := client.NewResilient(client.ResilientConfig{
		Config: client.Config{
			URL:    cfg.Supabase.URL,
			APIKey: cfg.Supabase.AnonKey,
		},
		RetryConfig:          client.DefaultRetryConfig(),
		CircuitBreakerConfig: client.DefaultCircuitBreakerConfig(),
		RequestsPerSecond:    cfg.Supabase.RequestsPerSecond,
	})
	if err != nil {
		log.Fatalf("create supabase client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authSvc := auth.NewSupabaseService(supa, logger.Named("auth"))
	defer authSvc.Close()

	dataStore := store.NewSupabaseStore(supa)

	manager := session.NewManager(authSvc, dataStore, logger.Named("session"))
	defer manager.Close()
	manager.Start(ctx)

	guard := session.NewGuard(manager, "/login", func(target string) {
		logger.Info("route guard redirect", zap.String("target", target))
	})
	defer guard.Close()

	catalogSvc := catalog.NewService(dataStore, logger.Named("catalog"))
	cartSvc := cart.NewService(dataStore, manager, logger.Named("cart"))
	notifSvc := notifications.NewService(dataStore, manager, logger.Named("notifications"))

	cartBadge := view.NewBadge(manager, view.CounterFunc(cartSvc.Count))
	defer cartBadge.Close()
	notifBadge := view.NewBadge(manager, view.CounterFunc(notifSvc.UnreadCount))
	defer notifBadge.Close()
	dropdown := view.NewCartDropdown(cartSvc, cartBadge)

	if *email != "" {
		result := manager.Login(ctx, *email, os.Getenv("STOREFRONT_PASSWORD"))
		if !result.Success {
			logger.Fatal("login failed", zap.String("message", result.Message))
		}
		logger.Info("signed in", zap.String("email", *email))
	}

	if cfg.Realtime.Enabled {
		if err := attachRealtime(ctx, cfg, manager, notifBadge, logger); err != nil {
			logger.Warn("realtime unavailable, badges refresh lazily", zap.Error(err))
		}
	}

	cartBadge.Refresh(ctx)
	notifBadge.Refresh(ctx)
	dropdown.Open(ctx)

	featured := catalogSvc.FeaturedProducts(ctx, 6)
	logger.Info("storefront ready",
		zap.Bool("authenticated", manager.IsAuthenticated()),
		zap.Int("cart_badge", cartBadge.Count()),
		zap.Int("unread_badge", notifBadge.Count()),
		zap.Float64("cart_subtotal", cart.Round2(dropdown.Subtotal())),
		zap.Int("featured_products", len(featured)),
	)

	<-ctx.Done()
	fmt.Println("shutting down")
}

// attachRealtime subscribes the notification badge to row changes so it
// refreshes without waiting for the next dropdown open. The badge still
// re-derives its count by querying; the event is only a nudge.
func attachRealtime(ctx context.Context, cfg *config.Config, manager *session.Manager, badge *view.Badge, logger *zap.Logger) error {
	userID, ok := manager.CurrentUserID()
	if !ok {
		return fmt.Errorf("realtime needs a signed-in user")
	}

	rt := client.NewRealtimeClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	if err := rt.Connect(ctx); err != nil {
		return err
	}

	_, err := rt.SubscribeToPostgresChanges(ctx, client.PostgresChangesConfig{
		Table:  store.CollectionNotifications,
		Filter: "user_id=eq." + userID,
	}, func(event *client.RealtimeEvent) {
		logger.Debug("notification change", zap.String("event", event.Event))
		badge.Refresh(context.Background())
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		rt.Disconnect()
	}()
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	return cfg.Build()
}
