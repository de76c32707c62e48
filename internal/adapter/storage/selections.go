package storage

import (
	"context"
	"fmt"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
)

var _ port.SelectionStore = (*SelectionsRepository)(nil)

type SelectionsRepository struct {
	sqldb sqldb
}

func NewSelectionsRepository(sqldb sqldb) SelectionsRepository {
	return SelectionsRepository{sqldb}
}

func (r SelectionsRepository) AppendSelection(
	ctx context.Context, s domain.PurchaseSelection,
) error {
	const op = "SelectionsRepository.AppendSelection"

	query := r.sqldb.Rebind(`
		INSERT INTO purchase_selections (selection_id, customer_id, product_id)
		VALUES (?, ?, ?);`)

	_, err := r.sqldb.ExecContext(
		ctx, query, s.SelectionID, s.CustomerID, s.ProductID,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}
	return nil
}

func (r SelectionsRepository) RemoveSelection(
	ctx context.Context, selectionID string,
) error {
	const op = "SelectionsRepository.RemoveSelection"

	query := r.sqldb.Rebind(
		`DELETE FROM purchase_selections WHERE selection_id = ?;`,
	)
	if _, err := r.sqldb.ExecContext(ctx, query, selectionID); err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}
	return nil
}
