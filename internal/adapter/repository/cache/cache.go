// Package cache puts a read-through cache in front of a URL store.
//
// Only resolved records are cached. A missing identifier is always looked up
// in the store, so a record created through another instance is visible as
// soon as its insert returns.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/armistcxy/url-shorten/internal/entity"
)

// ErrMiss is returned by a Cache that holds no entry for the identifier.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, id string) (*entity.URL, error)
	Set(ctx context.Context, url *entity.URL) error
}

type Store interface {
	Insert(ctx context.Context, id, originalURL string) (*entity.URL, error)
	Put(ctx context.Context, id, originalURL string) (*entity.URL, error)
	Get(ctx context.Context, id string) (*entity.URL, error)
}

// Repository decorates a Store with a Cache. Cache failures are logged and
// never returned to the caller.
type Repository struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

func NewRepository(store Store, cache Cache, logger *slog.Logger) *Repository {
	return &Repository{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "cache")),
	}
}

func (r *Repository) Insert(ctx context.Context, id, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.cache.Repository.Insert"

	url, err := r.store.Insert(ctx, id, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.set(ctx, url)

	return url, nil
}

func (r *Repository) Put(ctx context.Context, id, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.cache.Repository.Put"

	url, err := r.store.Put(ctx, id, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.set(ctx, url)

	return url, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*entity.URL, error) {
	const op = "adapter.repository.cache.Repository.Get"

	url, err := r.cache.Get(ctx, id)
	switch {
	case err == nil:
		return url, nil
	case !errors.Is(err, ErrMiss):
		r.logger.WarnContext(ctx, "cache lookup failed",
			slog.String("id", id),
			slog.Any("err", err),
		)
	}

	url, err = r.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.set(ctx, url)

	return url, nil
}

func (r *Repository) set(ctx context.Context, url *entity.URL) {
	if err := r.cache.Set(ctx, url); err != nil {
		r.logger.WarnContext(ctx, "cache update failed",
			slog.String("id", url.ID),
			slog.Any("err", err),
		)
	}
}
