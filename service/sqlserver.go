package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"bookdesk/config"
	"bookdesk/logging"
	"bookdesk/models"
	"bookdesk/validation"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// OpenPool opens the read-only reporting pool. The caller owns the pool.
func OpenPool(ctx context.Context, cfg config.SQLConfig, logger *zap.Logger) (*sql.DB, error) {
	if !cfg.HasDatastore() {
		return nil, models.NewAppError(models.CodeDatastoreNotConfigured, "The reporting database is not configured.", nil)
	}

	db, err := sql.Open(cfg.Driver, buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		// The replica may come up after us; queries will fail per step until it does.
		logging.OrNop(logger).Warn("reporting database ping failed", zap.String("driver", cfg.Driver), zap.Error(err))
	}
	return db, nil
}

func buildConnectionString(cfg config.SQLConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	if cfg.Driver == "pgx" {
		sslmode := "disable"
		if cfg.Encrypt {
			sslmode = "require"
		}
		return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
			cfg.Server, cfg.Port, cfg.Database, cfg.UserID, cfg.Password, sslmode)
	}

	connStr := fmt.Sprintf("server=%s;port=%s;database=%s;app name=bookdesk;ApplicationIntent=ReadOnly",
		cfg.Server, cfg.Port, cfg.Database)
	if cfg.UserID != "" {
		connStr += fmt.Sprintf(";user id=%s;password=%s", cfg.UserID, cfg.Password)
	} else {
		connStr += ";trusted_connection=true"
	}
	if cfg.Encrypt {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	} else {
		connStr += ";encrypt=false"
	}
	return connStr
}

// Executor runs validated read-only statements with a row cap.
type Executor struct {
	db      Queryer
	timeout time.Duration
	logger  *zap.Logger
}

func NewExecutor(db Queryer, timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Executor{db: db, timeout: timeout, logger: logging.OrNop(logger).Named("sql")}
}

// Execute validates statement, runs it on the executor's Queryer and returns
// at most rowCap rows. The Queryer is never closed here.
//
// The statement runs detached from ctx's cancellation, bounded only by the
// executor timeout, so a dispatched statement finishes before a cancellation
// is reported.
func (e *Executor) Execute(ctx context.Context, statement string, rowCap int, args ...any) (*models.SQLExecutionResult, error) {
	return e.ExecuteOn(ctx, e.db, statement, rowCap, args...)
}

// ExecuteOn is Execute against a caller-supplied connection.
func (e *Executor) ExecuteOn(ctx context.Context, q Queryer, statement string, rowCap int, args ...any) (*models.SQLExecutionResult, error) {
	if q == nil {
		return nil, models.NewAppError(models.CodeDatastoreNotConfigured, "The reporting database is not configured.", nil)
	}
	if err := validation.ValidateSQL(statement); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rowCap < 1 {
		rowCap = 1
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	start := time.Now()
	result, err := scanRows(runCtx, q, statement, rowCap, args)
	e.logger.Debug("statement finished",
		zap.String("sql", statement),
		zap.Int("rows", rowCount(result)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRows(ctx context.Context, q Queryer, statement string, rowCap int, args []any) (*models.SQLExecutionResult, error) {
	rows, err := q.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &models.SQLExecutionResult{Columns: columns, Rows: []map[string]any{}}
	for len(result.Rows) < rowCap && rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// normalizeValue makes driver values JSON friendly.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}

func rowCount(r *models.SQLExecutionResult) int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}
