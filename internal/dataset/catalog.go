package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlCuts is the catalog schema. Idempotent; applied on every startup.
const ddlCuts = `
CREATE TABLE IF NOT EXISTS splice_cuts (
    id                       BIGSERIAL         PRIMARY KEY,
    source_audio             TEXT              NOT NULL,
    cut_id                   INTEGER           NOT NULL,
    is_usable                BOOLEAN           NOT NULL,
    cut_word_ids             BIGINT[]          NOT NULL,
    cut_text                 TEXT              NOT NULL DEFAULT '',
    marked_up_text           TEXT              NOT NULL DEFAULT '',
    context_start_s          DOUBLE PRECISION  NOT NULL,
    context_end_s            DOUBLE PRECISION  NOT NULL,
    natural_start_s          DOUBLE PRECISION  NOT NULL,
    natural_end_s            DOUBLE PRECISION  NOT NULL,
    backward_start_s         DOUBLE PRECISION  NOT NULL,
    backward_end_s           DOUBLE PRECISION  NOT NULL,
    backward_invasion_factor DOUBLE PRECISION  NOT NULL,
    forward_start_s          DOUBLE PRECISION  NOT NULL,
    forward_end_s            DOUBLE PRECISION  NOT NULL,
    forward_invasion_factor  DOUBLE PRECISION  NOT NULL,
    output_dir               TEXT              NOT NULL,
    created_at               TIMESTAMPTZ       NOT NULL DEFAULT now(),
    UNIQUE (source_audio, cut_id)
);

CREATE INDEX IF NOT EXISTS idx_splice_cuts_source
    ON splice_cuts (source_audio);

CREATE INDEX IF NOT EXISTS idx_splice_cuts_usable
    ON splice_cuts (is_usable);
`

// CutRecord is one catalog row.
type CutRecord struct {
	SourceAudio string
	CutID       int
	IsUsable    bool
	CutWordIDs  []int64
	CutText     string
	OutputDir   string
	CreatedAt   time.Time
}

// Catalog mirrors dataset metadata into PostgreSQL so large corpora can be
// filtered and sampled with SQL instead of walking the output tree. All
// operations are safe for concurrent use.
type Catalog struct {
	pool *pgxpool.Pool
}

// NewCatalog connects to the database at dsn and ensures the schema exists.
func NewCatalog(ctx context.Context, dsn string) (*Catalog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("dataset catalog: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dataset catalog: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlCuts); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dataset catalog: migrate: %w", err)
	}
	return &Catalog{pool: pool}, nil
}

// Close releases the connection pool. Call via defer once the catalog is no
// longer needed.
func (c *Catalog) Close() {
	c.pool.Close()
}

// Ping probes database connectivity. Used by the readiness endpoint.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Record upserts md into the catalog. Re-running a recording overwrites its
// previous rows so the catalog tracks the files on disk.
func (c *Catalog) Record(ctx context.Context, md *Metadata, outputDir string) error {
	const q = `
		INSERT INTO splice_cuts
		    (source_audio, cut_id, is_usable, cut_word_ids, cut_text, marked_up_text,
		     context_start_s, context_end_s,
		     natural_start_s, natural_end_s,
		     backward_start_s, backward_end_s, backward_invasion_factor,
		     forward_start_s, forward_end_s, forward_invasion_factor,
		     output_dir)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (source_audio, cut_id) DO UPDATE SET
		    is_usable                = EXCLUDED.is_usable,
		    cut_word_ids             = EXCLUDED.cut_word_ids,
		    cut_text                 = EXCLUDED.cut_text,
		    marked_up_text           = EXCLUDED.marked_up_text,
		    context_start_s          = EXCLUDED.context_start_s,
		    context_end_s            = EXCLUDED.context_end_s,
		    natural_start_s          = EXCLUDED.natural_start_s,
		    natural_end_s            = EXCLUDED.natural_end_s,
		    backward_start_s         = EXCLUDED.backward_start_s,
		    backward_end_s           = EXCLUDED.backward_end_s,
		    backward_invasion_factor = EXCLUDED.backward_invasion_factor,
		    forward_start_s          = EXCLUDED.forward_start_s,
		    forward_end_s            = EXCLUDED.forward_end_s,
		    forward_invasion_factor  = EXCLUDED.forward_invasion_factor,
		    output_dir               = EXCLUDED.output_dir,
		    created_at               = now()`

	_, err := c.pool.Exec(ctx, q,
		md.SourceAudio,
		md.CutID,
		md.IsUsable,
		md.CutWordIDs,
		md.CutText,
		md.MarkedUpText,
		md.Context.StartS,
		md.Context.EndS,
		md.Cuts.Natural.StartS,
		md.Cuts.Natural.EndS,
		md.Cuts.BackwardInvasion.StartS,
		md.Cuts.BackwardInvasion.EndS,
		md.Cuts.BackwardInvasion.InvasionFactor,
		md.Cuts.ForwardInvasion.StartS,
		md.Cuts.ForwardInvasion.EndS,
		md.Cuts.ForwardInvasion.InvasionFactor,
		outputDir,
	)
	if err != nil {
		return fmt.Errorf("dataset catalog: record cut %d: %w", md.CutID, err)
	}
	return nil
}

// BySource returns all catalog rows for the named recording, ordered by
// cut number.
func (c *Catalog) BySource(ctx context.Context, source string) ([]CutRecord, error) {
	const q = `
		SELECT source_audio, cut_id, is_usable, cut_word_ids, cut_text, output_dir, created_at
		FROM   splice_cuts
		WHERE  source_audio = $1
		ORDER  BY cut_id`

	rows, err := c.pool.Query(ctx, q, source)
	if err != nil {
		return nil, fmt.Errorf("dataset catalog: by source: %w", err)
	}
	return collectCuts(rows)
}

// Usable returns up to limit usable rows across all recordings, newest
// first. A limit of zero means no limit.
func (c *Catalog) Usable(ctx context.Context, limit int) ([]CutRecord, error) {
	q := `
		SELECT source_audio, cut_id, is_usable, cut_word_ids, cut_text, output_dir, created_at
		FROM   splice_cuts
		WHERE  is_usable
		ORDER  BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += "\nLIMIT $1"
		args = append(args, limit)
	}

	rows, err := c.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("dataset catalog: usable: %w", err)
	}
	return collectCuts(rows)
}

// collectCuts scans pgx rows into CutRecord values.
func collectCuts(rows pgx.Rows) ([]CutRecord, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CutRecord, error) {
		var r CutRecord
		err := row.Scan(
			&r.SourceAudio,
			&r.CutID,
			&r.IsUsable,
			&r.CutWordIDs,
			&r.CutText,
			&r.OutputDir,
			&r.CreatedAt,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset catalog: scan rows: %w", err)
	}
	if records == nil {
		records = []CutRecord{}
	}
	return records, nil
}
