package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reposift/reposift/internal/domain"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FingerprintRepository persists processed-repository fingerprints. Each
// (org, repo) row is owned by exactly one ingest worker per run, so writes
// never contend.
type FingerprintRepository struct {
	db dbtx
}

func NewFingerprintRepository(pool *pgxpool.Pool) *FingerprintRepository {
	return &FingerprintRepository{db: pool}
}

func NewFingerprintRepositoryWithTx(tx pgx.Tx) *FingerprintRepository {
	return &FingerprintRepository{db: tx}
}

func (r *FingerprintRepository) Get(ctx context.Context, org, repo string) (domain.Fingerprint, error) {
	var fp domain.Fingerprint
	err := r.db.QueryRow(ctx,
		`SELECT org, repo, pushed_at, processed_at, status
		 FROM fingerprints WHERE org = $1 AND repo = $2`,
		org, repo,
	).Scan(&fp.Org, &fp.Repo, &fp.PushedAt, &fp.ProcessedAt, &fp.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Fingerprint{}, domain.ErrFingerprintNotFound
		}
		return domain.Fingerprint{}, err
	}
	return fp, nil
}

func (r *FingerprintRepository) Upsert(ctx context.Context, fp domain.Fingerprint) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO fingerprints (org, repo, pushed_at, processed_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (org, repo) DO UPDATE SET
		   pushed_at = EXCLUDED.pushed_at,
		   processed_at = EXCLUDED.processed_at,
		   status = EXCLUDED.status`,
		fp.Org, fp.Repo, fp.PushedAt, fp.ProcessedAt, fp.Status,
	)
	return err
}

func (r *FingerprintRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fingerprints`).Scan(&n)
	return n, err
}
