package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresCatalog reads the service catalog from the services table.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog creates a catalog backed by Postgres.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

// ByIDs resolves ids against the services table, preserving request
// order and silently dropping unknown ids.
func (c *PostgresCatalog) ByIDs(ctx context.Context, ids []int) ([]Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, gender, base_price::text
		FROM services
		WHERE id = ANY($1)
	`

	rows, err := c.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]Service)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read services: %w", err)
	}

	result := make([]Service, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// List returns services available for the given gender.
func (c *PostgresCatalog) List(ctx context.Context, gender string) ([]Service, error) {
	query := `
		SELECT id, name, gender, base_price::text
		FROM services
		ORDER BY id
	`
	args := []interface{}{}

	if gender != "" {
		query = `
			SELECT id, name, gender, base_price::text
			FROM services
			WHERE gender = $1 OR gender = 'both'
			ORDER BY id
		`
		args = append(args, gender)
	}

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read services: %w", err)
	}

	return services, nil
}

func scanService(row pgx.Row) (Service, error) {
	var (
		s     Service
		price string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Gender, &price); err != nil {
		return Service{}, fmt.Errorf("failed to scan service: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Service{}, fmt.Errorf("invalid base_price for service %d: %w", s.ID, err)
	}
	s.BasePrice = d
	return s, nil
}

var _ Catalog = (*PostgresCatalog)(nil)
