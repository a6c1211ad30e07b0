package catalog

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// PostgresSource reads products from a table with the storefront catalog
// columns (id, name, description, price_usd_units, price_usd_nanos).
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSource connects to dsn and reads from table.
func NewPostgresSource(ctx context.Context, dsn, table string) (*PostgresSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid catalog table name %q", table)
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse catalog dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}
	return &PostgresSource{pool: pool, table: table}, nil
}

func (s *PostgresSource) Fetch(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, name, description, price_usd_units, price_usd_nanos FROM "+s.table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			p     Product
			units int64
			nanos int32
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &units, &nanos); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.PriceUSD = float64(units) + float64(nanos)/1e9
		products = append(products, p)
	}
	return products, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}
