// Package bolt stores URLs in an embedded bbolt file, for single-node
// deployments that do not run Postgres.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/armistcxy/url-shorten/internal/entity"
)

var urlsBucket = []byte("urls")

// timestampSize is the width of the created_at prefix of every stored value.
const timestampSize = 8

var errCorruptValue = errors.New("corrupt value")

// Open opens (or creates) the database file at path and makes sure the urls
// bucket exists. bbolt holds an exclusive file lock, so a second process
// blocks until timeout expires.
func Open(path string, timeout time.Duration) (*bolt.DB, error) {
	const op = "adapter.repository.bolt.Open"

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrStoreUnavailable, err)
		}
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(urlsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to create bucket: %w", op, err)
	}

	return db, nil
}

// URLRepository keeps one key per identifier in the urls bucket. Writers are
// serialized by bbolt's single read-write transaction, which is what makes the
// existence check and the put atomic.
type URLRepository struct {
	db      *bolt.DB
	timeout time.Duration
	now     func() time.Time
}

// NewURLRepository bounds every call by timeout. A zero timeout leaves only
// the caller's deadline.
func NewURLRepository(db *bolt.DB, timeout time.Duration) *URLRepository {
	return &URLRepository{
		db:      db,
		timeout: timeout,
		now:     time.Now,
	}
}

func (r *URLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// wait runs tx in the background and gives up when ctx ends. bbolt has no way
// to abandon a call blocked on the writer lock, so tx must check ctx itself
// before it changes anything.
func wait(ctx context.Context, tx func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- tx()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctxErr(ctx)
	}
}

func (r *URLRepository) Insert(ctx context.Context, id, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.bolt.URLRepository.Insert"

	url, err := r.put(ctx, id, originalURL, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

// Put is the idempotent variant of Insert: replaying an existing pair returns
// the stored record.
func (r *URLRepository) Put(ctx context.Context, id, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.bolt.URLRepository.Put"

	url, err := r.put(ctx, id, originalURL, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) put(ctx context.Context, id, originalURL string, strict bool) (*entity.URL, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	var url *entity.URL

	err := wait(ctx, func() error {
		return r.db.Update(func(tx *bolt.Tx) error {
			if err := ctxErr(ctx); err != nil {
				return err
			}

			b := tx.Bucket(urlsBucket)

			if v := b.Get([]byte(id)); v != nil {
				existing, err := decode(id, v)
				if err != nil {
					return err
				}
				if strict || existing.OriginalURL != originalURL {
					return entity.ErrAlreadyExists
				}
				url = existing
				return nil
			}

			url = &entity.URL{
				ID:          id,
				OriginalURL: originalURL,
				CreatedAt:   r.now().UTC(),
			}
			return b.Put([]byte(id), encode(url))
		})
	})
	if err != nil {
		return nil, err
	}

	return url, nil
}

func (r *URLRepository) Get(ctx context.Context, id string) (*entity.URL, error) {
	const op = "adapter.repository.bolt.URLRepository.Get"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := ctxErr(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var url *entity.URL

	err := wait(ctx, func() error {
		return r.db.View(func(tx *bolt.Tx) error {
			v := tx.Bucket(urlsBucket).Get([]byte(id))
			if v == nil {
				return entity.ErrURLNotFound
			}

			var err error
			url, err = decode(id, v)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
	}
	return nil
}

func encode(url *entity.URL) []byte {
	v := make([]byte, timestampSize+len(url.OriginalURL))
	binary.BigEndian.PutUint64(v, uint64(url.CreatedAt.UnixNano()))
	copy(v[timestampSize:], url.OriginalURL)
	return v
}

// decode copies out of v, which is only valid for the life of the transaction.
func decode(id string, v []byte) (*entity.URL, error) {
	if len(v) < timestampSize {
		return nil, fmt.Errorf("%w for id %q", errCorruptValue, id)
	}

	return &entity.URL{
		ID:          id,
		OriginalURL: string(v[timestampSize:]),
		CreatedAt:   time.Unix(0, int64(binary.BigEndian.Uint64(v))).UTC(),
	}, nil
}
