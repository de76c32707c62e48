package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/shopspring/decimal"
)

// A PriceRule computes the next price of a product from its current price.
type PriceRule func(current decimal.Decimal) (decimal.Decimal, error)

// A Coordinator runs the optimistic price update of a single product:
// it fetches the current price, applies a rule and writes the result
// only if nobody changed the price in between.
//
// There are no retries. A lost race is reported with [domain.ErrConflict]
// and the stored price stays as the winner wrote it.
type Coordinator struct {
	prices port.PriceStore
}

func NewCoordinator(prices port.PriceStore) Coordinator {
	if prices == nil {
		panic("NewCoordinator: price store is nil") // develop mistake
	}
	return Coordinator{prices}
}

func (c Coordinator) Update(
	ctx context.Context, productID string, rule PriceRule,
) (domain.PriceUpdate, error) {
	const op = "Coordinator.Update"
	log := slog.With("op", op, "productID", productID)

	if err := ctx.Err(); err != nil {
		return domain.PriceUpdate{}, fmt.Errorf("%s: %w", op, err)
	}

	current, err := c.prices.GetCurrentPrice(ctx, productID)
	if err != nil {
		return domain.PriceUpdate{}, fmt.Errorf("%s: %w", op, err)
	}

	newPrice, err := rule(current.CurrentPrice)
	if err != nil {
		return domain.PriceUpdate{}, fmt.Errorf("%s: %w", op, err)
	}
	if newPrice.IsNegative() {
		return domain.PriceUpdate{}, fmt.Errorf(
			"%s: computed price %s is negative: %w",
			op, newPrice, domain.ErrComputation,
		)
	}

	err = c.prices.CompareAndSetPrice(
		ctx, productID, current.CurrentPrice, newPrice,
	)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Warn(
				"price changed concurrently",
				"expected", current.CurrentPrice.String(),
				"rejected", newPrice.String(),
			)
		}
		return domain.PriceUpdate{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info(
		"price updated",
		"previous", current.CurrentPrice.String(),
		"new", newPrice.String(),
	)
	return domain.PriceUpdate{
		ProductID:     productID,
		PreviousPrice: current.CurrentPrice,
		NewPrice:      newPrice,
	}, nil
}
