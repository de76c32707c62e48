package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
)

const compensationTimeout = 5 * time.Second

// RecordInventory stores the new demand and stock of a product and emits
// the MODIFY change record that drives [Service.ApplyInventoryChange].
//
// When the record cannot be emitted the previous demand and stock are put
// back, so a failed call leaves the product as it was.
func (s Service) RecordInventory(
	ctx context.Context, productID string, demand, stock int64,
) (domain.Product, error) {
	const op = "Service.RecordInventory"

	if productID == "" || demand < 0 || stock < 0 {
		return domain.Product{}, fmt.Errorf(
			"%s: product %q with demand %d and stock %d: %w",
			op, productID, demand, stock, domain.ErrValidation,
		)
	}

	previous, err := s.stores.Products.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	err = s.stores.Products.SetInventory(ctx, productID, demand, stock)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	product := previous
	product.Demand, product.Stock = demand, stock

	if err := s.changeStream.PublishInventoryModified(ctx, product); err != nil {
		s.restoreInventory(ctx, previous)
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.With("op", op).Info(
		"inventory recorded",
		"productID", productID, "demand", demand, "stock", stock,
	)
	return product, nil
}

// RecordSelection appends a purchase selection and emits the INSERT change
// record that drives [Service.ProcessPurchase]. The selection is removed
// again when the record cannot be emitted.
func (s Service) RecordSelection(
	ctx context.Context, customerID, productID string,
) (domain.PurchaseSelection, error) {
	const op = "Service.RecordSelection"

	if customerID == "" || productID == "" {
		return domain.PurchaseSelection{}, fmt.Errorf(
			"%s: customerID and productID are required: %w",
			op, domain.ErrValidation,
		)
	}

	sel := domain.PurchaseSelection{
		SelectionID: s.newID(),
		CustomerID:  customerID,
		ProductID:   productID,
	}

	if err := s.stores.Selections.AppendSelection(ctx, sel); err != nil {
		return domain.PurchaseSelection{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.changeStream.PublishSelectionInserted(ctx, sel); err != nil {
		s.removeSelection(ctx, sel.SelectionID)
		return domain.PurchaseSelection{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.With("op", op).Info(
		"selection recorded",
		"selectionID", sel.SelectionID,
		"customerID", customerID,
		"productID", productID,
	)
	return sel, nil
}

// restoreInventory still runs when ctx is already canceled.
func (s Service) restoreInventory(ctx context.Context, p domain.Product) {
	const op = "Service.restoreInventory"

	ctx, cancel := compensationContext(ctx)
	defer cancel()

	err := s.stores.Products.SetInventory(ctx, p.ProductID, p.Demand, p.Stock)
	if err != nil {
		slog.With("op", op).Error(
			"failed to restore inventory", "productID", p.ProductID, "err", err,
		)
	}
}

func (s Service) removeSelection(ctx context.Context, selectionID string) {
	const op = "Service.removeSelection"

	ctx, cancel := compensationContext(ctx)
	defer cancel()

	if err := s.stores.Selections.RemoveSelection(ctx, selectionID); err != nil {
		slog.With("op", op).Error(
			"failed to remove selection", "selectionID", selectionID, "err", err,
		)
	}
}

func compensationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}
