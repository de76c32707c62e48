package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.PriceStore = (*PricesRepository)(nil)

type PricesRepository struct {
	sqldb sqldb
}

func NewPricesRepository(sqldb sqldb) PricesRepository {
	return PricesRepository{sqldb}
}

func (r PricesRepository) GetCurrentPrice(
	ctx context.Context, productID string,
) (domain.CurrentPrice, error) {
	const op = "PricesRepository.GetCurrentPrice"

	query := r.sqldb.Rebind(`
		SELECT product_id, current_price
		FROM current_prices
		WHERE product_id = ?;`)

	var v domain.CurrentPrice
	err := r.sqldb.QueryRowContext(ctx, query, productID).Scan(
		&v.ProductID, &v.CurrentPrice,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CurrentPrice{}, fmt.Errorf(
				"%s: price of %q: %w", op, productID, domain.ErrNotFound,
			)
		}
		return domain.CurrentPrice{}, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// CompareAndSetPrice relies on a single UPDATE statement being atomic.
// Prices are compared as numbers, so "100.00" matches "100".
func (r PricesRepository) CompareAndSetPrice(
	ctx context.Context, productID string, expected, newPrice decimal.Decimal,
) error {
	const op = "PricesRepository.CompareAndSetPrice"

	query := r.sqldb.Rebind(`
		UPDATE current_prices
		SET current_price = ?
		WHERE product_id = ?
			AND CAST(current_price AS NUMERIC) = CAST(? AS NUMERIC);`)

	res, err := r.sqldb.ExecContext(ctx, query, newPrice, productID, expected)
	if err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		return nil
	}

	exists, err := r.exists(ctx, productID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf(
			"%s: price of %q: %w", op, productID, domain.ErrNotFound,
		)
	}
	return fmt.Errorf(
		"%s: price of %q is no longer %s: %w",
		op, productID, expected, domain.ErrConflict,
	)
}

func (r PricesRepository) SetPrice(
	ctx context.Context, productID string, price decimal.Decimal,
) error {
	const op = "PricesRepository.SetPrice"

	query := r.sqldb.Rebind(`
		INSERT INTO current_prices (product_id, current_price)
		VALUES (?, ?)
		ON CONFLICT (product_id) DO UPDATE SET
			current_price = EXCLUDED.current_price;`)

	if _, err := r.sqldb.ExecContext(ctx, query, productID, price); err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}
	return nil
}

func (r PricesRepository) exists(
	ctx context.Context, productID string,
) (bool, error) {
	query := r.sqldb.Rebind(
		`SELECT COUNT(*) FROM current_prices WHERE product_id = ?;`,
	)
	var n int
	if err := r.sqldb.QueryRowContext(ctx, query, productID).Scan(&n); err != nil {
		return false, err
	}
	return n != 0, nil
}
