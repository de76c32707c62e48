package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
)

var _ port.ProductStore = (*ProductsRepository)(nil)

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

func (r ProductsRepository) GetProduct(
	ctx context.Context, productID string,
) (domain.Product, error) {
	const op = "ProductsRepository.GetProduct"

	query := r.sqldb.Rebind(`
		SELECT product_id, base_price, demand, stock
		FROM products
		WHERE product_id = ?;`)

	var v domain.Product
	err := r.sqldb.QueryRowContext(ctx, query, productID).Scan(
		&v.ProductID, &v.BasePrice, &v.Demand, &v.Stock,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf(
				"%s: product %q: %w", op, productID, domain.ErrNotFound,
			)
		}
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (r ProductsRepository) SetInventory(
	ctx context.Context, productID string, demand, stock int64,
) error {
	const op = "ProductsRepository.SetInventory"

	query := r.sqldb.Rebind(`
		UPDATE products SET demand = ?, stock = ?
		WHERE product_id = ?;`)

	res, err := r.sqldb.ExecContext(ctx, query, demand, stock, productID)
	if err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}
	if err := requireOneRow(res); err != nil {
		return fmt.Errorf("%s: product %q: %w", op, productID, err)
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
