package connectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"estate-cms/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrFeedDisabled is returned when no legacy feed DSN is configured.
var ErrFeedDisabled = errors.New("legacy listings feed is not configured")

// LegacyFeed reads listing rows out of the legacy Postgres system so they can
// be imported as content items. Read-only; this side never writes back.
type LegacyFeed interface {
	FetchRows(ctx context.Context, table string, limit int64) ([]map[string]interface{}, error)
	TestConnection(ctx context.Context) error
	Close() error
}

type LegacyFeedImpl struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLegacyFeed opens the feed connection when a DSN is configured. Without a
// DSN the feed stays disabled and every call returns ErrFeedDisabled; the rest
// of the system runs fine without it.
func NewLegacyFeed(cfg *config.Config, logger *zap.Logger) (LegacyFeed, error) {
	if cfg.LegacyFeedDSN == "" {
		logger.Info("legacy listings feed disabled, no DSN configured")
		return &disabledFeed{}, nil
	}

	db, err := sql.Open("postgres", cfg.LegacyFeedDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy feed connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	return &LegacyFeedImpl{db: db, logger: logger}, nil
}

// allowed feed tables; the table name is interpolated into the query, so it
// must come from this closed set, never from user input.
var feedTables = map[string]string{
	"projects":   "legacy_projects",
	"properties": "legacy_properties",
	"plots":      "legacy_plots",
	"buildings":  "legacy_buildings",
}

// FeedTable maps a collection name to its legacy table, if one exists.
func FeedTable(collection string) (string, bool) {
	table, ok := feedTables[collection]
	return table, ok
}

func (f *LegacyFeedImpl) FetchRows(ctx context.Context, table string, limit int64) ([]map[string]interface{}, error) {
	valid := false
	for _, t := range feedTables {
		if t == table {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unknown feed table %q", table)
	}
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY updated_at DESC LIMIT $1", table)
	rows, err := f.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("legacy feed query failed: %w", err)
	}
	defer rows.Close()

	return rowsToMaps(rows)
}

func (f *LegacyFeedImpl) TestConnection(ctx context.Context) error {
	return f.db.PingContext(ctx)
}

func (f *LegacyFeedImpl) Close() error {
	return f.db.Close()
}

func rowsToMaps(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type disabledFeed struct{}

func (disabledFeed) FetchRows(ctx context.Context, table string, limit int64) ([]map[string]interface{}, error) {
	return nil, ErrFeedDisabled
}

func (disabledFeed) TestConnection(ctx context.Context) error { return ErrFeedDisabled }

func (disabledFeed) Close() error { return nil }
