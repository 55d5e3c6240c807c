// Package registry records training runs and their held-out metrics in a SQL
// database. The sqlite driver is the default; postgres works with the same schema.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"effpred/pkg/model"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Run is one training run.
type Run struct {
	ID            string  `db:"id" json:"id"`
	SchemaVersion string  `db:"schema_version" json:"schema_version"`
	ModelKind     string  `db:"model_kind" json:"model_kind"`
	TrainRows     int     `db:"train_rows" json:"train_rows"`
	TestRows      int     `db:"test_rows" json:"test_rows"`
	Accuracy      float64 `db:"accuracy" json:"accuracy"`
	Precision     float64 `db:"weighted_precision" json:"precision"`
	Recall        float64 `db:"weighted_recall" json:"recall"`
	F1            float64 `db:"weighted_f1" json:"f1"`
	CreatedUnix   int64   `db:"created_unix" json:"created_unix"`
}

func (r Run) CreatedAt() time.Time { return time.Unix(r.CreatedUnix, 0).UTC() }

// NewRun summarizes an evaluation report.
func NewRun(schemaVersion, kind string, rep *model.Report) Run {
	return Run{
		ID:            uuid.NewString(),
		SchemaVersion: schemaVersion,
		ModelKind:     kind,
		TrainRows:     rep.TrainRows,
		TestRows:      rep.TestRows,
		Accuracy:      rep.Accuracy,
		Precision:     rep.Precision,
		Recall:        rep.Recall,
		F1:            rep.F1,
		CreatedUnix:   time.Now().Unix(),
	}
}

type RunRecorder interface {
	Record(ctx context.Context, run Run) error
}

type Registry struct {
	db *sqlx.DB
}

var _ RunRecorder = (*Registry)(nil)

// Open connects to the database and creates the runs table if needed.
func Open(ctx context.Context, driver, dsn string) (*Registry, error) {
	switch driver {
	case "sqlite":
		if dir := filepath.Dir(dsn); dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create registry directory: %w", err)
			}
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported registry driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to registry: %w", err)
	}
	if driver == "sqlite" {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	r := &Registry{db: db}
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS runs (
			id                 TEXT PRIMARY KEY,
			schema_version     TEXT NOT NULL,
			model_kind         TEXT NOT NULL,
			train_rows         INTEGER NOT NULL,
			test_rows          INTEGER NOT NULL,
			accuracy           DOUBLE PRECISION NOT NULL,
			weighted_precision DOUBLE PRECISION NOT NULL,
			weighted_recall    DOUBLE PRECISION NOT NULL,
			weighted_f1        DOUBLE PRECISION NOT NULL,
			created_unix       BIGINT NOT NULL
		)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to migrate registry: %w", err)
	}
	return nil
}

// Record stores a run. Missing ID and creation time are filled in.
func (r *Registry) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedUnix == 0 {
		run.CreatedUnix = time.Now().Unix()
	}
	const query = `
		INSERT INTO runs (
			id, schema_version, model_kind,
			train_rows, test_rows,
			accuracy, weighted_precision, weighted_recall, weighted_f1,
			created_unix
		) VALUES (
			:id, :schema_version, :model_kind,
			:train_rows, :test_rows,
			:accuracy, :weighted_precision, :weighted_recall, :weighted_f1,
			:created_unix
		)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

const selectRuns = `
	SELECT id, schema_version, model_kind, train_rows, test_rows,
	       accuracy, weighted_precision, weighted_recall, weighted_f1, created_unix
	FROM runs`

// Recent returns up to limit runs, newest first.
func (r *Registry) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	query := r.db.Rebind(selectRuns + ` ORDER BY created_unix DESC, id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	return runs, nil
}

func (r *Registry) Get(ctx context.Context, id string) (Run, error) {
	var run Run
	if err := r.db.GetContext(ctx, &run, r.db.Rebind(selectRuns+` WHERE id = ?`), id); err != nil {
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

func (r *Registry) Close() error { return r.db.Close() }
