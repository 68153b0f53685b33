// Package warehouse owns the canonical bonus tables: creation, schema
// evolution, batch writes with append or atomic-replace semantics, and the
// consolidated bonus reads used by the advisory layer.
package warehouse

import (
	"context"
	"fmt"

	"github.com/consultia/bonusx/pkg/db/clickhouse"
	"github.com/consultia/bonusx/pkg/db/models/report"
	"github.com/consultia/bonusx/pkg/utils"
	"go.uber.org/zap"
)

// Mode selects the write semantics for a table.
type Mode int

const (
	// Append adds rows to the production table in one batch.
	Append Mode = iota
	// Replace stages the batch and swaps it in atomically; readers never
	// observe a partially replaced table.
	Replace
)

func (m Mode) String() string {
	if m == Replace {
		return "replace"
	}
	return "append"
}

// Batch is the subset of the driver batch the writer needs. Narrowed so
// tests can fake inserts without a live ClickHouse.
type Batch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

// Conn is the database surface the writer runs on. clickhouse.Client is
// wrapped to satisfy it; tests substitute a recording fake.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Select(ctx context.Context, dest any, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string) (Batch, error)
	Ping(ctx context.Context) error
	Close() error
}

// DB represents the bonus warehouse database and provides methods to manage
// and query its tables.
type DB struct {
	Conn
	Name   string
	Logger *zap.Logger
}

// chConn adapts clickhouse.Client to the Conn interface (PrepareBatch
// return types differ).
type chConn struct {
	client clickhouse.Client
}

func (c chConn) Exec(ctx context.Context, query string, args ...any) error {
	return c.client.Exec(ctx, query, args...)
}

func (c chConn) Select(ctx context.Context, dest any, query string, args ...any) error {
	return c.client.Select(ctx, dest, query, args...)
}

func (c chConn) PrepareBatch(ctx context.Context, query string) (Batch, error) {
	return c.client.PrepareBatch(ctx, query)
}

func (c chConn) Ping(ctx context.Context) error { return c.client.Ping(ctx) }

func (c chConn) Close() error { return c.client.Close() }

// New connects to ClickHouse and initializes the warehouse database for the
// given component ("sync" writes, "query" reads).
func New(ctx context.Context, logger *zap.Logger, component string) (*DB, error) {
	name := clickhouse.SanitizeName(defaultDatabaseName())
	poolConfig := clickhouse.GetPoolConfigForComponent(component)

	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", component),
	), name, poolConfig)
	if err != nil {
		return nil, err
	}

	db := &DB{
		Conn:   chConn{client: client},
		Name:   name,
		Logger: client.Logger,
	}

	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// NewWithConn builds a DB over an existing connection. Used by tests.
func NewWithConn(conn Conn, name string, logger *zap.Logger) *DB {
	return &DB{Conn: conn, Name: name, Logger: logger}
}

// InitializeDB ensures the database and every warehouse table (plus staging
// twins) exist, and evolves schemas by adding any model columns missing from
// older deployments. Existing columns are never dropped or retyped.
func (db *DB) InitializeDB(ctx context.Context) error {
	query := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s ENGINE = Atomic", db.Name)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create database %s: %w", db.Name, err)
	}

	for _, table := range report.Tables() {
		if err := db.initTable(ctx, table); err != nil {
			return err
		}
	}

	db.Logger.Info("Warehouse initialized", zap.String("database", db.Name))
	return nil
}

// initTable creates the production table and, for bonus source tables, the
// staging twin used by replace-mode writes.
func (db *DB) initTable(ctx context.Context, table report.Table) error {
	schemaSQL := report.ColumnsToSchemaSQL(table.Columns)

	engine := clickhouse.MergeTree
	if table.Name == report.BonusTableName {
		// The bonus computation upserts result rows; the latest computed_at wins.
		engine = clickhouse.ReplacingMergeTree + "(computed_at)"
	}

	names := []string{table.Name, table.StagingName()}
	if table.Name == report.BonusTableName {
		// Read-only here, never staged.
		names = names[:1]
	}

	for _, name := range names {
		query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY %s
	`, db.Name, name, schemaSQL, engine, table.OrderBy)
		if err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}

		if err := db.ensureColumns(ctx, name, table.Columns); err != nil {
			return err
		}
	}

	return nil
}

// ensureColumns adds any model columns absent from an existing table.
// New fields appearing in normalized rows are tolerated, not rejected.
func (db *DB) ensureColumns(ctx context.Context, tableName string, columns []report.ColumnDef) error {
	for _, col := range columns {
		if err := col.Validate(); err != nil {
			return err
		}
		query := fmt.Sprintf(`ALTER TABLE "%s"."%s" ADD COLUMN IF NOT EXISTS %s`,
			db.Name, tableName, col.SQL())
		if err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("ensure column %s.%s: %w", tableName, col.Name, err)
		}
	}
	return nil
}

// appendInto batch-inserts rows into the named table.
func (db *DB) appendInto(ctx context.Context, tableName string, columns []report.ColumnDef, appendRows func(Batch) error) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (%s) VALUES`,
		db.Name, tableName, joinNames(columns))
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch Batch) {
		_ = batch.Abort()
	}(batch)

	if err := appendRows(batch); err != nil {
		return err
	}

	return batch.Send()
}

// replaceInto loads rows into the staging twin and swaps it with production.
// EXCHANGE TABLES is atomic on Atomic-engine databases, so readers observe
// either the old table or the new one, never a mix. Any failure before the
// swap leaves production untouched.
func (db *DB) replaceInto(ctx context.Context, table report.Table, appendRows func(Batch) error) error {
	staging := table.StagingName()

	truncate := fmt.Sprintf(`TRUNCATE TABLE "%s"."%s"`, db.Name, staging)
	if err := db.Exec(ctx, truncate); err != nil {
		return fmt.Errorf("truncate %s: %w", staging, err)
	}

	if err := db.appendInto(ctx, staging, table.Columns, appendRows); err != nil {
		return fmt.Errorf("stage %s: %w", table.Name, err)
	}

	swap := fmt.Sprintf(`EXCHANGE TABLES "%s"."%s" AND "%s"."%s"`,
		db.Name, table.Name, db.Name, staging)
	if err := db.Exec(ctx, swap); err != nil {
		return fmt.Errorf("swap %s: %w", table.Name, err)
	}

	// The retired rows now sit under the staging name; clear them so the
	// next run stages into an empty table. Non-critical if it fails.
	if err := db.Exec(ctx, truncate); err != nil {
		db.Logger.Warn("Failed to clear retired staging data",
			zap.String("table", staging),
			zap.Error(err))
	}

	return nil
}

func joinNames(columns []report.ColumnDef) string {
	names := report.ColumnsToNameList(columns)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func defaultDatabaseName() string {
	return utils.Env("WAREHOUSE_DB", "bonus_warehouse")
}
