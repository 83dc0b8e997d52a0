// Package main is the entry point for the task form bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/taskform-bot/internal/config"
	"github.com/capitalize-ai/taskform-bot/internal/handler"
	"github.com/capitalize-ai/taskform-bot/internal/model"
	natsclient "github.com/capitalize-ai/taskform-bot/internal/nats"
	"github.com/capitalize-ai/taskform-bot/internal/service"
	"github.com/capitalize-ai/taskform-bot/internal/session"
	"github.com/capitalize-ai/taskform-bot/internal/storage"
	"github.com/capitalize-ai/taskform-bot/internal/transport"
	"github.com/capitalize-ai/taskform-bot/internal/transport/telegram"
	"github.com/capitalize-ai/taskform-bot/internal/transport/webchat"
	"github.com/capitalize-ai/taskform-bot/pkg/logger"
	"github.com/capitalize-ai/taskform-bot/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("task bot stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("starting task bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "taskform-bot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	store, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()

	// Optional task event publishing.
	var (
		publisher service.EventPublisher
		natsConn  handler.ConnectionChecker
	)
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure task stream: %w", err)
		}
		publisher = streamManager
		natsConn = natsClient
	}

	// Registered after the store and NATS defers so that, on the way out, the
	// pollers finish their in-flight turns before either is closed.
	var pollers sync.WaitGroup
	defer pollers.Wait()

	outbox := webchat.NewOutbox(cfg.WebchatMaxPending)
	router := transport.NewRouter(outbox)

	var tg *telegram.Channel
	if cfg.TelegramBotToken != "" {
		tg = telegram.NewChannel(telegram.Config{
			BotToken:       cfg.TelegramBotToken,
			PollInterval:   cfg.TelegramPollInterval,
			TimeoutSeconds: cfg.TelegramPollTimeout,
			APIRoot:        cfg.TelegramAPIRoot,
		}, log)
		router.Register(tg)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, telegram channel disabled")
	}

	dispatcher := service.NewDispatcher(session.NewStore(), store, router, publisher, log)

	srv := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: handler.NewRouter(handler.RouterConfig{
			Health:            handler.NewHealthHandler(store, natsConn),
			Messages:          handler.NewMessageHandler(dispatcher, outbox, log),
			Tasks:             handler.NewTaskHandler(store, log),
			Logger:            log,
			JWTSecret:         cfg.JWTSecret,
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
		}),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if tg != nil {
		pollers.Add(1)
		go func() {
			defer pollers.Done()
			if err := tg.Start(ctx, handleWithResend(dispatcher)); err != nil {
				errCh <- fmt.Errorf("telegram channel: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("task bot stopped")
	return nil
}

// handleWithResend retries undelivered replies once without re-running the
// transition.
func handleWithResend(d *service.Dispatcher) telegram.Handler {
	return func(ctx context.Context, event *model.InboundEvent) error {
		err := d.Handle(ctx, event)
		var sendErr *service.SendError
		if errors.As(err, &sendErr) {
			return d.Resend(ctx, sendErr)
		}
		return err
	}
}
