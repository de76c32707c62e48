package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/pricing"
	"github.com/shopspring/decimal"
)

// ReactToCompetitor moves the current price next to the competitor price.
func (s Service) ReactToCompetitor(
	ctx context.Context, t domain.CompetitorPriceUpdate,
) (domain.PriceUpdate, error) {
	const op = "Service.ReactToCompetitor"

	rule := func(decimal.Decimal) (decimal.Decimal, error) {
		return pricing.CompetitorReaction(t.NewCompetitorPrice, s.nudger.Nudge())
	}

	upd, err := s.coordinator.Update(ctx, t.ProductID, rule)
	if err != nil {
		return domain.PriceUpdate{}, fmt.Errorf("%s: %w", op, err)
	}

	s.publishPriceChanged(ctx, upd, domain.SourceCompetitor, t.CompetitorID)
	return upd, nil
}

// ApplyInventoryChange reprices a product from its new demand and stock.
func (s Service) ApplyInventoryChange(
	ctx context.Context, r domain.InventoryRecord,
) (domain.PriceUpdate, error) {
	const op = "Service.ApplyInventoryChange"

	rule := func(decimal.Decimal) (decimal.Decimal, error) {
		return pricing.DemandSupply(r.BasePrice, r.Demand, r.Stock, s.demandCoef)
	}

	upd, err := s.coordinator.Update(ctx, r.ProductID, rule)
	if err != nil {
		return domain.PriceUpdate{}, fmt.Errorf("%s: %w", op, err)
	}

	s.publishPriceChanged(ctx, upd, domain.SourceDemandSupply, "")
	return upd, nil
}

// GetCurrentPrice returns the stored price of productID.
func (s Service) GetCurrentPrice(
	ctx context.Context, productID string,
) (domain.CurrentPrice, error) {
	const op = "Service.GetCurrentPrice"

	cp, err := s.stores.Prices.GetCurrentPrice(ctx, productID)
	if err != nil {
		return domain.CurrentPrice{}, fmt.Errorf("%s: %w", op, err)
	}
	return cp, nil
}

// publishPriceChanged is fire-and-forget: the price is already committed,
// so a failure is only logged.
func (s Service) publishPriceChanged(
	ctx context.Context,
	upd domain.PriceUpdate,
	source domain.PriceSource,
	competitorID string,
) {
	const op = "Service.publishPriceChanged"

	e := domain.PriceChanged{
		EventID:       s.newID(),
		ProductID:     upd.ProductID,
		CompetitorID:  competitorID,
		PreviousPrice: upd.PreviousPrice,
		NewPrice:      upd.NewPrice,
		Source:        source,
		OccurredAtMs:  s.now().UnixMilli(),
	}
	if err := s.priceEvents.PublishPriceChanged(ctx, e); err != nil {
		slog.With("op", op).Error(
			"failed to publish price event",
			"productID", upd.ProductID,
			"eventID", e.EventID,
			"err", err,
		)
	}
}

// SetCurrentPrice overrides the stored price of an existing product
// without the conditional check.
func (s Service) SetCurrentPrice(
	ctx context.Context, productID string, price decimal.Decimal,
) (domain.CurrentPrice, error) {
	const op = "Service.SetCurrentPrice"

	if productID == "" || price.IsNegative() {
		return domain.CurrentPrice{}, fmt.Errorf(
			"%s: product %q with price %s: %w",
			op, productID, price, domain.ErrValidation,
		)
	}

	if _, err := s.stores.Products.GetProduct(ctx, productID); err != nil {
		return domain.CurrentPrice{}, fmt.Errorf("%s: %w", op, err)
	}

	previous := decimal.Zero
	cp, err := s.stores.Prices.GetCurrentPrice(ctx, productID)
	switch {
	case err == nil:
		previous = cp.CurrentPrice
	case !errors.Is(err, domain.ErrNotFound):
		return domain.CurrentPrice{}, fmt.Errorf("%s: %w", op, err)
	}

	price = pricing.Round(price)
	if err := s.stores.Prices.SetPrice(ctx, productID, price); err != nil {
		return domain.CurrentPrice{}, fmt.Errorf("%s: %w", op, err)
	}

	upd := domain.PriceUpdate{
		ProductID: productID, PreviousPrice: previous, NewPrice: price,
	}
	s.publishPriceChanged(ctx, upd, domain.SourceManual, "")

	slog.With("op", op).Info(
		"price overridden", "productID", productID, "price", price.String(),
	)
	return domain.CurrentPrice{ProductID: productID, CurrentPrice: price}, nil
}
