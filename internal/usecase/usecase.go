package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/armistcxy/url-shorten/internal/entity"
)

const (
	defaultMaxAttempts   = 2
	defaultMaxRetries    = 3
	defaultRetryInterval = 50 * time.Millisecond
	maxRetryInterval     = time.Second
)

type urlRepository interface {
	Insert(ctx context.Context, id, originalURL string) (*entity.URL, error)
	Put(ctx context.Context, id, originalURL string) (*entity.URL, error)
	Get(ctx context.Context, id string) (*entity.URL, error)
}

type idAllocator interface {
	Next() (string, error)
}

type Option func(*URLUseCase)

// WithMaxAttempts sets how many identifiers Shorten tries before giving up
// with entity.ErrAllocationExhausted.
func WithMaxAttempts(n int) Option {
	return func(uc *URLUseCase) {
		uc.maxAttempts = n
	}
}

// WithRetry sets how often a store call failing with entity.ErrStoreUnavailable
// is retried, and the first backoff interval.
func WithRetry(maxRetries int, interval time.Duration) Option {
	return func(uc *URLUseCase) {
		uc.maxRetries = maxRetries
		uc.retryInterval = interval
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(uc *URLUseCase) {
		uc.logger = logger
	}
}

type URLUseCase struct {
	urlRepo       urlRepository
	allocator     idAllocator
	maxAttempts   int
	maxRetries    int
	retryInterval time.Duration
	logger        *slog.Logger
}

func NewURLUseCase(urlRepo urlRepository, allocator idAllocator, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:       urlRepo,
		allocator:     allocator,
		maxAttempts:   defaultMaxAttempts,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Shorten binds originalURL to a fresh identifier. The store's unique insert
// decides whether an identifier is free; on a collision a new one is drawn.
func (uc *URLUseCase) Shorten(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.Shorten"

	if err := validateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for attempt := 1; attempt <= uc.maxAttempts; attempt++ {
		id, err := uc.allocator.Next()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to allocate identifier: %w", op, err)
		}

		url, err := uc.retry(ctx, func() (*entity.URL, error) {
			return uc.urlRepo.Insert(ctx, id, originalURL)
		})
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, entity.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		uc.logger.WarnContext(ctx, "identifier collision",
			slog.String("id", id),
			slog.Int("attempt", attempt),
		)
	}

	uc.logger.ErrorContext(ctx, "identifier allocation exhausted",
		slog.Int("attempts", uc.maxAttempts),
	)

	return nil, fmt.Errorf("%s: %w", op, entity.ErrAllocationExhausted)
}

func (uc *URLUseCase) Resolve(ctx context.Context, id string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.Resolve"

	if id == "" {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	url, err := uc.retry(ctx, func() (*entity.URL, error) {
		return uc.urlRepo.Get(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve identifier: %w", op, err)
	}

	return url, nil
}

// Register binds a caller-chosen identifier. Registering the same pair again
// succeeds and returns the stored record.
func (uc *URLUseCase) Register(ctx context.Context, id, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.Register"

	if id == "" {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidID)
	}
	if err := validateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := uc.retry(ctx, func() (*entity.URL, error) {
		return uc.urlRepo.Put(ctx, id, originalURL)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to register url: %w", op, err)
	}

	return url, nil
}

// retry runs fn again while it fails with entity.ErrStoreUnavailable, up to
// maxRetries extra times with exponential backoff. If ctx ends while the store
// is down, the result still carries entity.ErrStoreUnavailable.
func (uc *URLUseCase) retry(ctx context.Context, fn func() (*entity.URL, error)) (*entity.URL, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = uc.retryInterval
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(uc.maxRetries, 0))), ctx)

	var lastErr error

	url, err := backoff.RetryNotifyWithData(func() (*entity.URL, error) {
		url, err := fn()
		lastErr = err
		if err != nil && !errors.Is(err, entity.ErrStoreUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return url, err
	}, policy, func(err error, next time.Duration) {
		uc.logger.WarnContext(ctx, "store unavailable, retrying",
			slog.Any("err", err),
			slog.Duration("backoff", next),
		)
	})
	if err != nil && !errors.Is(err, entity.ErrStoreUnavailable) && errors.Is(lastErr, entity.ErrStoreUnavailable) {
		return nil, fmt.Errorf("%w: %w", lastErr, err)
	}

	return url, err
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return entity.ErrInvalidURL
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return entity.ErrInvalidURL
	}

	return nil
}
