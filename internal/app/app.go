package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	"github.com/armistcxy/url-shorten/internal/adapter/repository/cache"
	"github.com/armistcxy/url-shorten/internal/allocator"
	"github.com/armistcxy/url-shorten/internal/config"
	"github.com/armistcxy/url-shorten/internal/usecase"

	delivery "github.com/armistcxy/url-shorten/internal/adapter/delivery/http"
)

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	store, closeStore, err := OpenStore(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeStore()

	urlUseCase, err := NewURLUseCase(cfg, store, logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, urlUseCase),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			"addr", server.Addr,
			"storage", cfg.Storage.Driver,
			"cache", cfg.Cache.Driver,
		)

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// NewURLUseCase wires the configured allocator and retry policy around store.
func NewURLUseCase(cfg *config.Config, store cache.Store, logger *slog.Logger) (*usecase.URLUseCase, error) {
	var opts []allocator.Option
	if cfg.Allocator.Alphabet != "" {
		opts = append(opts, allocator.WithAlphabet(cfg.Allocator.Alphabet))
	}

	alloc, err := allocator.New(cfg.Allocator.Length, opts...)
	if err != nil {
		return nil, err
	}

	return usecase.NewURLUseCase(store, alloc,
		usecase.WithMaxAttempts(cfg.Allocator.MaxAttempts),
		usecase.WithRetry(cfg.Storage.MaxRetries, cfg.Storage.RetryInterval),
		usecase.WithLogger(logger),
	), nil
}
