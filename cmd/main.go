package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/Vovarama1992/synaplink-bot/internal/ai"
	"github.com/Vovarama1992/synaplink-bot/internal/bot"
	"github.com/Vovarama1992/synaplink-bot/internal/config"
	"github.com/Vovarama1992/synaplink-bot/internal/httpapi"
	"github.com/Vovarama1992/synaplink-bot/internal/lead"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
	"github.com/Vovarama1992/synaplink-bot/internal/notify"
	"github.com/Vovarama1992/synaplink-bot/internal/store"
	"github.com/Vovarama1992/synaplink-bot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("production").Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("bot stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	kv, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Assistant ---
	detector := lead.Default()
	conv := ai.NewConversation(
		ai.NewOpenAIBackend(cfg),
		store.Namespace(kv, "thread"),
		detector,
		ai.PollConfigFrom(cfg),
		log,
	)

	// --- Telegram ---
	tg, err := telegram.New(cfg, log)
	if err != nil {
		return err
	}

	var notifiers []bot.Notifier
	if cfg.GetWorkingChatID() != "" {
		notifiers = append(notifiers, tg)
	}
	if url := cfg.GetNotifyWebhookURL(); url != "" {
		notifiers = append(notifiers, notify.NewWebhook(url, cfg.GetNotifyWebhookToken(), log))
	}

	svc := bot.NewService(
		bot.NewSessionStore(store.Namespace(kv, "session")),
		conv,
		detector,
		tg,
		notify.Multi(log, notifiers...),
		bot.Options{
			WorkingChatID: cfg.GetWorkingChatID(),
			LogoSource:    cfg.GetLogoImageURL(),
			ChecklistURL:  cfg.GetChecklistURL(),
		},
		log,
	)
	dispatcher := telegram.NewDispatcher(svc, tg, log)

	// --- Router ---
	var mount func(chi.Router)
	if cfg.GetTelegramMode() == config.ModeWebhook {
		webhook := telegram.NewHandler(dispatcher, cfg.GetTelegramWebhookSecret(), log)
		mount = func(r chi.Router) { telegram.RegisterRoutes(r, webhook) }
	}
	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           httpapi.NewRouter(detector, log, mount),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(ctx) })

	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr, "mode", cfg.GetTelegramMode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.GetTelegramMode() == config.ModeWebhook {
		if err := tg.SetWebhook(ctx, cfg.GetTelegramWebhookURL(), cfg.GetTelegramWebhookSecret()); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
	} else {
		g.Go(func() error { return tg.Poll(ctx, dispatcher) })
	}

	return g.Wait()
}

// openStore picks the key-value backend for sessions and thread handles.
func openStore(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (store.KV, func(), error) {
	switch cfg.GetStoreBackend() {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.GetDatabaseURL())
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("store ready", "backend", config.BackendPostgres)
		return pg, func() { _ = db.Close() }, nil

	case config.BackendRedis:
		client, err := store.DialRedis(ctx, cfg.GetRedisURL())
		if err != nil {
			return nil, nil, err
		}
		log.Info("store ready", "backend", config.BackendRedis)
		return store.NewRedis(client), func() { _ = client.Close() }, nil

	default:
		log.Info("store ready", "backend", config.BackendMemory)
		return store.NewMemory(), func() {}, nil
	}
}
