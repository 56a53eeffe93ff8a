package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLRecorder persists the audit trail to SQLite or PostgreSQL.
type SQLRecorder struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
	mu     sync.Mutex
	log    *zap.Logger
}

// NewSQLRecorder opens (or creates) the database and runs migrations. driver
// is "sqlite" or "postgres".
func NewSQLRecorder(ctx context.Context, driver, dsn string, log *zap.Logger) (*SQLRecorder, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case "sqlite":
		placeholder = sq.Question
	case "postgres":
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// WAL lets readers query the audit tables while the bot writes.
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	r := &SQLRecorder{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		log:    log.Named("recorder"),
	}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("recorder opened", zap.String("driver", driver))
	return r, nil
}

func (r *SQLRecorder) migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.driver == "postgres" {
		id = "SERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS report_runs (
			id          ` + id + `,
			run_id      TEXT NOT NULL,
			kind        TEXT NOT NULL,
			run_trigger TEXT NOT NULL,
			chat_id     BIGINT,
			stage       TEXT NOT NULL,
			images      INTEGER NOT NULL DEFAULT 0,
			error       TEXT,
			started_at  BIGINT NOT NULL,
			finished_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_runs_kind ON report_runs(kind, started_at)`,

		`CREATE TABLE IF NOT EXISTS trade_notifications (
			id         ` + id + `,
			timestamp  BIGINT NOT NULL,
			bot        TEXT NOT NULL,
			trade_ts   BIGINT NOT NULL,
			side       TEXT NOT NULL,
			pair       TEXT NOT NULL,
			amount     TEXT NOT NULL,
			price      TEXT NOT NULL,
			delivered  BOOLEAN NOT NULL,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_notifications_bot ON trade_notifications(bot, trade_ts)`,
	}

	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLRecorder) RecordReportRun(ctx context.Context, run *ReportRun) error {
	query, args, err := r.sb.Insert("report_runs").
		Columns("run_id", "kind", "run_trigger", "chat_id", "stage", "images", "error", "started_at", "finished_at").
		Values(run.ID, run.Kind, run.Trigger, run.ChatID, run.Stage, run.Images, run.Error,
			run.StartedAt.Unix(), run.FinishedAt.Unix()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *SQLRecorder) RecordTradeNotification(ctx context.Context, n *TradeNotification) error {
	query, args, err := r.sb.Insert("trade_notifications").
		Columns("timestamp", "bot", "trade_ts", "side", "pair", "amount", "price", "delivered", "error").
		Values(time.Now().Unix(), n.Bot, int64(n.Timestamp), n.Side, n.Pair,
			n.Amount.String(), n.Price.String(), n.Delivered, n.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// LastReportRun returns the most recently started run of kind.
func (r *SQLRecorder) LastReportRun(ctx context.Context, kind string) (optional.Option[ReportRun], error) {
	query, args, err := r.sb.
		Select("run_id", "kind", "run_trigger", "chat_id", "stage", "images", "error", "started_at", "finished_at").
		From("report_runs").
		Where(sq.Eq{"kind": kind}).
		OrderBy("started_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return optional.None[ReportRun](), fmt.Errorf("build select: %w", err)
	}

	var (
		run               ReportRun
		chatID            sql.NullInt64
		errText           sql.NullString
		started, finished int64
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&run.ID, &run.Kind, &run.Trigger, &chatID, &run.Stage, &run.Images, &errText, &started, &finished)
	if err == sql.ErrNoRows {
		return optional.None[ReportRun](), nil
	}
	if err != nil {
		return optional.None[ReportRun](), fmt.Errorf("query last report run: %w", err)
	}
	run.ChatID = chatID.Int64
	run.Error = errText.String
	run.StartedAt = time.Unix(started, 0)
	run.FinishedAt = time.Unix(finished, 0)
	return optional.Some(run), nil
}

func (r *SQLRecorder) Close() error {
	r.log.Info("closing recorder")
	return r.db.Close()
}
