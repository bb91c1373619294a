// Package postgres implements the destination store using pgx v5. Customer
// batches go through a COPY into a temp table followed by an upsert; the
// card set is replaced wholesale (truncate + COPY) inside one transaction.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cardpipe/internal/records"
)

// Config holds Postgres repository configuration.
type Config struct {
	// DSN is the connection string for pgxpool.
	DSN string

	// ConnectTimeout bounds pool creation and the initial ping.
	ConnectTimeout time.Duration
}

const (
	customerTable = "public.clientes"
	cardTable     = "public.tarjetas"
)

// customerColumns is the COPY/INSERT order for the customer table; the six
// trailing flags arrive as Y/N strings and are stored as booleans.
var customerColumns = []string{
	"cod_cliente", "nombre", "apellido1", "apellido2",
	"dni", "correo", "telefono",
	"dni_ok", "dni_ko", "telefono_ok", "telefono_ko", "correo_ok", "correo_ko",
}

var flagColumns = map[string]bool{
	"dni_ok": true, "dni_ko": true,
	"telefono_ok": true, "telefono_ko": true,
	"correo_ok": true, "correo_ko": true,
}

// cardColumns is the COPY order for the card table. The raw card number has
// no column here by design.
var cardColumns = []string{
	"cod_cliente", "fecha_exp", "numero_tarjeta_masked", "numero_tarjeta_hash",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS public.clientes (
    cod_cliente  VARCHAR(10) PRIMARY KEY,
    nombre       VARCHAR(100),
    apellido1    VARCHAR(100),
    apellido2    VARCHAR(100),
    dni          VARCHAR(20),
    correo       VARCHAR(150),
    telefono     VARCHAR(30),
    dni_ok       BOOLEAN,
    dni_ko       BOOLEAN,
    telefono_ok  BOOLEAN,
    telefono_ko  BOOLEAN,
    correo_ok    BOOLEAN,
    correo_ko    BOOLEAN
);

CREATE TABLE IF NOT EXISTS public.tarjetas (
    cod_cliente           VARCHAR(10) PRIMARY KEY,
    fecha_exp             VARCHAR(7),
    numero_tarjeta_masked VARCHAR(25),
    numero_tarjeta_hash   VARCHAR(80) NOT NULL,
    CONSTRAINT fk_tarjetas_cliente
        FOREIGN KEY (cod_cliente) REFERENCES public.clientes (cod_cliente)
        ON UPDATE CASCADE ON DELETE CASCADE
);`

// Repository is the pgx-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection within the
// configured timeout.
func New(ctx context.Context, cfg Config) (*Repository, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(cctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Close releases the pool.
func (r *Repository) Close() { r.pool.Close() }

// EnsureSchema creates the destination tables when missing, so a dropped
// table reappears on the next run.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertCustomers loads one cleaned customer batch: COPY into a temp table,
// then INSERT ... ON CONFLICT (cod_cliente) DO UPDATE overwriting every
// non-key column. Runs in its own transaction.
func (r *Repository) UpsertCustomers(ctx context.Context, recs []records.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tmp := "tmp_clientes"
	create := fmt.Sprintf(
		"CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WHERE false",
		pgIdent(tmp), strings.Join(mapIdent(customerColumns), ","), pgFQN(customerTable),
	)
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}

	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		row := make([]any, len(customerColumns))
		for j, c := range customerColumns {
			if flagColumns[c] {
				row[j] = ynToBool(rec[c])
			} else {
				row[j] = rec[c]
			}
		}
		rows = append(rows, row)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{tmp}, customerColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into temp: %w", err)
	}

	cols := strings.Join(mapIdent(customerColumns), ",")
	upsert := fmt.Sprintf(
		`INSERT INTO %s (%s)
		 SELECT %s FROM %s
		 ON CONFLICT (cod_cliente) DO UPDATE SET %s`,
		pgFQN(customerTable), cols, cols, pgIdent(tmp),
		strings.Join(updateColumns(customerColumns[1:]), ", "),
	)
	if _, err := tx.Exec(ctx, upsert); err != nil {
		return 0, fmt.Errorf("upsert clientes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// CustomerIDs returns the ids currently present in the customer table.
func (r *Repository) CustomerIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, "SELECT cod_cliente FROM "+pgFQN(customerTable))
	if err != nil {
		return nil, fmt.Errorf("select cod_cliente: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cod_cliente: %w", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cod_cliente: %w", err)
	}
	return out, nil
}

// ReplaceCards truncates the card table and COPYs the consolidated rows in
// a single transaction, so a failed bulk insert rolls the truncate back
// instead of leaving the card set empty.
func (r *Repository) ReplaceCards(ctx context.Context, recs []records.Record) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "TRUNCATE "+pgFQN(cardTable)); err != nil {
		return 0, fmt.Errorf("truncate tarjetas: %w", err)
	}

	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		row := make([]any, len(cardColumns))
		for j, c := range cardColumns {
			row[j] = rec[c]
		}
		rows = append(rows, row)
	}
	n, err := tx.CopyFrom(ctx, splitFQN(cardTable), cardColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy tarjetas: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// ynToBool converts the CSV flag representation to a nullable boolean.
func ynToBool(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "TRUE", "T", "1":
		return true
	case "N", "FALSE", "F", "0":
		return false
	}
	return nil
}

// updateColumns generates "col = EXCLUDED.col" fragments for the upsert.
func updateColumns(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(c), pgIdent(c)))
	}
	return out
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.clientes" to
// "public"."clientes".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}

// splitFQN converts "schema.table" into a pgx.Identifier.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
