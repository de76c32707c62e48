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

var _ port.CustomerStore = (*CustomersRepository)(nil)

type CustomersRepository struct {
	sqldb sqldb
}

func NewCustomersRepository(sqldb sqldb) CustomersRepository {
	return CustomersRepository{sqldb}
}

func (r CustomersRepository) GetCustomer(
	ctx context.Context, customerID string,
) (domain.Customer, error) {
	const op = "CustomersRepository.GetCustomer"

	query := r.sqldb.Rebind(`
		SELECT customer_id, loyalty_level, total_spent
		FROM customers
		WHERE customer_id = ?;`)

	var (
		v     domain.Customer
		level string
	)
	err := r.sqldb.QueryRowContext(ctx, query, customerID).Scan(
		&v.CustomerID, &level, &v.TotalSpent,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, fmt.Errorf(
				"%s: customer %q: %w", op, customerID, domain.ErrNotFound,
			)
		}
		return domain.Customer{}, fmt.Errorf("%s: %w", op, err)
	}
	v.LoyaltyLevel = domain.LoyaltyLevel(level)
	return v, nil
}

func (r CustomersRepository) SetSpending(
	ctx context.Context,
	customerID string,
	totalSpent decimal.Decimal,
	level domain.LoyaltyLevel,
) error {
	const op = "CustomersRepository.SetSpending"

	query := r.sqldb.Rebind(`
		UPDATE customers SET total_spent = ?, loyalty_level = ?
		WHERE customer_id = ?;`)

	res, err := r.sqldb.ExecContext(
		ctx, query, totalSpent, string(level), customerID,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}
	if err := requireOneRow(res); err != nil {
		return fmt.Errorf("%s: customer %q: %w", op, customerID, err)
	}
	return nil
}
