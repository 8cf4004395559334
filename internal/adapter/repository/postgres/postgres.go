package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/armistcxy/url-shorten/internal/entity"

	pg "github.com/armistcxy/url-shorten/pkg/postgres"
)

type urlDB struct {
	ID          string    `db:"id"`
	OriginalURL string    `db:"original_url"`
	CreatedAt   time.Time `db:"created_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:          u.ID,
		OriginalURL: u.OriginalURL,
		CreatedAt:   u.CreatedAt,
	}
}

type recordDB struct {
	ID          string `db:"id"`
	OriginalURL string `db:"original_url"`
}

// URLRepository stores URLs in the urls table. Uniqueness of identifiers is
// enforced by the table's primary key, so several service instances can share
// one database.
type URLRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewURLRepository returns a repository whose operations are bounded by
// timeout. A zero timeout leaves the caller's context untouched.
func NewURLRepository(db *sqlx.DB, timeout time.Duration) *URLRepository {
	return &URLRepository{
		db:      db,
		timeout: timeout,
	}
}

func (r *URLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// wrapErr marks err as entity.ErrStoreUnavailable when the database could not
// answer or ctx ended first, including drivers that report an ended context
// with their own error.
func wrapErr(ctx context.Context, op, msg string, err error) error {
	if pg.IsUnavailable(err) || ctx.Err() != nil {
		return fmt.Errorf("%s: %w: %w", op, entity.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %s: %w", op, msg, err)
}

// Insert binds id to originalURL. It fails with entity.ErrAlreadyExists if the
// id is taken, whatever URL it is bound to.
func (r *URLRepository) Insert(ctx context.Context, id, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Insert"
	const query = `INSERT INTO urls (id, original_url) VALUES ($1, $2) RETURNING id, original_url, created_at`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, id, originalURL); err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrAlreadyExists)
		}

		return nil, wrapErr(ctx, op, "failed to insert into urls table", err)
	}

	return url.toEntity(), nil
}

// Put binds id to originalURL unless the pair already exists, in which case
// the stored record is returned unchanged. A different URL under the same id
// yields entity.ErrAlreadyExists.
func (r *URLRepository) Put(ctx context.Context, id, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Put"
	const query = `INSERT INTO urls (id, original_url) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, original_url, created_at`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	err := r.db.GetContext(ctx, &url, query, id, originalURL)
	if err == nil {
		return url.toEntity(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapErr(ctx, op, "failed to insert into urls table", err)
	}

	existing, err := r.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load conflicting row: %w", op, err)
	}
	if existing.OriginalURL != originalURL {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrAlreadyExists)
	}

	return existing.toEntity(), nil
}

func (r *URLRepository) Get(ctx context.Context, id string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Get"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	url, err := r.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) get(ctx context.Context, id string) (*urlDB, error) {
	const op = "adapter.repository.postgres.URLRepository.get"
	const query = `SELECT id, original_url, created_at FROM urls WHERE id = $1`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrURLNotFound
		}

		return nil, wrapErr(ctx, op, "failed to get row from urls table", err)
	}

	return &url, nil
}

// Upsert loads records in one statement, overwriting the URL of ids that
// already exist. Within a batch the last record for an id wins. It returns the
// number of rows written.
func (r *URLRepository) Upsert(ctx context.Context, records []entity.Record) (int64, error) {
	const op = "adapter.repository.postgres.URLRepository.Upsert"

	rows := dedupe(records)
	if len(rows) == 0 {
		return 0, nil
	}

	query, args := upsertQuery(rows)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, wrapErr(ctx, op, "failed to upsert into urls table", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return n, nil
}

func upsertQuery(rows []recordDB) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(rows)*2)

	sb.WriteString(`INSERT INTO urls (id, original_url) VALUES `)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?)")
		args = append(args, row.ID, row.OriginalURL)
	}
	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET original_url = EXCLUDED.original_url`)

	return sb.String(), args
}

// dedupe keeps the last record per id, preserving first-seen order, since a
// single ON CONFLICT DO UPDATE statement cannot touch the same row twice.
func dedupe(records []entity.Record) []recordDB {
	index := make(map[string]int, len(records))
	rows := make([]recordDB, 0, len(records))

	for _, rec := range records {
		if i, ok := index[rec.ID]; ok {
			rows[i].OriginalURL = rec.OriginalURL
			continue
		}
		index[rec.ID] = len(rows)
		rows = append(rows, recordDB{ID: rec.ID, OriginalURL: rec.OriginalURL})
	}

	return rows
}
