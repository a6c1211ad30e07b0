package orderlog

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Protocol-Lattice/boutique-agents/src/order"
)

// DefaultTable holds orders in Postgres.
const DefaultTable = "boutique_orders"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresLog stores orders in a table it creates on connect.
type PostgresLog struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresLog connects to dsn and ensures table exists.
func NewPostgresLog(ctx context.Context, dsn, table string) (*PostgresLog, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid order table name %q", table)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	l := &PostgresLog{pool: pool, table: table}
	if err := l.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *PostgresLog) ensureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
                CREATE TABLE IF NOT EXISTS `+l.table+` (
                        seq         BIGSERIAL PRIMARY KEY,
                        order_id    TEXT NOT NULL,
                        tracking_id TEXT NOT NULL,
                        product_id  TEXT NOT NULL,
                        quantity    INTEGER NOT NULL,
                        total_paid  DOUBLE PRECISION NOT NULL,
                        status      TEXT NOT NULL,
                        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
                );
        `)
	if err != nil {
		return fmt.Errorf("create %s: %w", l.table, err)
	}
	return nil
}

func (l *PostgresLog) Append(ctx context.Context, o order.Order) error {
	_, err := l.pool.Exec(ctx,
		"INSERT INTO "+l.table+" (order_id, tracking_id, product_id, quantity, total_paid, status) VALUES ($1, $2, $3, $4, $5, $6)",
		o.OrderID, o.TrackingID, o.ProductID, o.Quantity, o.TotalPaid, string(o.Status))
	return err
}

func (l *PostgresLog) All(ctx context.Context) ([]order.Order, error) {
	rows, err := l.pool.Query(ctx,
		"SELECT order_id, tracking_id, product_id, quantity, total_paid, status FROM "+l.table+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var (
			o      order.Order
			status string
		)
		if err := rows.Scan(&o.OrderID, &o.TrackingID, &o.ProductID, &o.Quantity, &o.TotalPaid, &status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = order.Status(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (l *PostgresLog) Close(context.Context) error {
	l.pool.Close()
	return nil
}
