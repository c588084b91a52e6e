package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/ports"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// sqlite stores timestamps as fixed width UTC text so that ordering by the
// column is chronological.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var sortColumns = map[string]string{
	ports.SortCreatedAt:   "created_at",
	ports.SortID:          "id",
	ports.SortPrice:       "price",
	ports.SortDescription: "description",
	ports.SortCategory:    "category",
}

var _ ports.TransactionRepository = (*SQLRepository)(nil)

type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
}

// NewSQLiteRepository opens (creating if needed) the database file and
// applies migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return Open(DialectSQLite, dbPath, logger)
}

// NewPostgresRepository connects to dsn and applies migrations.
func NewPostgresRepository(dsn string, logger *log.Logger) (*SQLRepository, error) {
	return Open(DialectPostgres, dsn, logger)
}

func Open(d Dialect, dsn string, logger *log.Logger) (*SQLRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == DialectSQLite {
		// a single writer avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		dialect: d,
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) List(ctx context.Context, q ports.ListQuery) ([]core.Transaction, error) {
	q = q.Normalize()

	var (
		where []string
		args  []any
	)
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		lower := r.dialect.lowerFunc()
		where = append(where, fmt.Sprintf(`(%[1]s(description) LIKE ? ESCAPE '\' OR %[1]s(category) LIKE ? ESCAPE '\')`, lower))
		args = append(args, pattern, pattern)
	}

	query := "SELECT id, description, type, price, category, created_at FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	dir := "ASC"
	if q.Order == ports.OrderDesc {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", sortColumns[q.Sort], dir, dir)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	r.logger.DebugContext(ctx, "Listed transactions", log.FieldCount, len(out), log.FieldQuery, q.Search)
	return out, nil
}

func (r *SQLRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		r.rebind("SELECT id, description, type, price, category, created_at FROM transactions WHERE id = ?"), id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func (r *SQLRepository) Create(ctx context.Context, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if nt.CreatedAt.IsZero() {
		nt.CreatedAt = time.Now()
	}
	nt.CreatedAt = nt.CreatedAt.UTC()

	var id int64
	err := r.db.QueryRowContext(ctx,
		r.rebind("INSERT INTO transactions (description, type, price, category, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id"),
		nt.Description, string(nt.Type), nt.Price, nt.Category, r.timeValue(nt.CreatedAt),
	).Scan(&id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	tx := nt.Materialize(id)
	r.logger.InfoContext(ctx, "Transaction saved",
		log.FieldTxID, tx.ID,
		log.FieldTxType, tx.Type,
		log.FieldPrice, tx.Price)
	return tx, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM transactions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id)
	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLRepository) timeValue(t time.Time) any {
	if r.dialect == DialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		txType  string
		created timeColumn
	)
	if err := row.Scan(&tx.ID, &tx.Description, &txType, &tx.Price, &tx.Category, &created); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(txType)
	tx.CreatedAt = created.Time
	return tx, nil
}

// timeColumn scans timestamps stored natively (postgres) or as text (sqlite).
type timeColumn struct {
	time.Time
}

func (t *timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timeColumn) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
