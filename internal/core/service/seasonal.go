package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/pricing"
	"github.com/shopspring/decimal"
)

// ApplySeasonalDiscount reprices every product of the active event.
//
// It is a no-op when the event is absent or not active on the selected
// date. Products without a product or price row and products that lost a
// concurrent update are skipped and left out of the result.
func (s Service) ApplySeasonalDiscount(
	ctx context.Context, req domain.SeasonalDiscountRequest,
) ([]domain.DiscountedPrice, error) {
	const op = "Service.ApplySeasonalDiscount"
	log := slog.With("op", op)

	event := req.ActiveEvent
	if event == nil || !event.IsActiveOn(req.SelectedDate) {
		log.Info("no active event", "selectedDate", req.SelectedDate)
		return nil, nil
	}

	if err := pricing.ValidateDiscountRate(event.DiscountRate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With("eventID", event.EventID)
	discounted := make([]domain.DiscountedPrice, 0, len(event.AffectedProducts))
	for _, productID := range event.AffectedProducts {
		dp, err := s.discountProduct(ctx, productID, event.DiscountRate)
		if isSkippable(err) {
			log.Warn("product skipped", "productID", productID, "err", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		discounted = append(discounted, dp)
	}
	return discounted, nil
}

func (s Service) discountProduct(
	ctx context.Context, productID string, rate decimal.Decimal,
) (domain.DiscountedPrice, error) {
	const op = "Service.discountProduct"

	product, err := s.stores.Products.GetProduct(ctx, productID)
	if err != nil {
		return domain.DiscountedPrice{}, fmt.Errorf("%s: %w", op, err)
	}

	newPrice, err := pricing.SeasonalDiscount(product.BasePrice, rate)
	if err != nil {
		return domain.DiscountedPrice{}, fmt.Errorf("%s: %w", op, err)
	}

	rule := func(decimal.Decimal) (decimal.Decimal, error) { return newPrice, nil }
	upd, err := s.coordinator.Update(ctx, productID, rule)
	if err != nil {
		return domain.DiscountedPrice{}, fmt.Errorf("%s: %w", op, err)
	}

	s.publishPriceChanged(ctx, upd, domain.SourceSeasonal, "")

	return domain.DiscountedPrice{
		ProductID:       productID,
		BasePrice:       product.BasePrice,
		NewCurrentPrice: newPrice,
		DiscountRate:    rate,
	}, nil
}

func isSkippable(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict)
}

// RunSeasonalSchedule finds the promotion active on date and, if there is
// one, invokes the seasonal discount handler for it.
func (s Service) RunSeasonalSchedule(
	ctx context.Context, date time.Time,
) (domain.SeasonalScheduleResult, error) {
	const op = "Service.RunSeasonalSchedule"
	log := slog.With("op", op, "selectedDate", date)

	result := domain.SeasonalScheduleResult{SelectedDate: date}

	promotions, err := s.stores.Promotions.ListPromotions(ctx)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}

	event, ok := domain.FindActivePromotion(promotions, date)
	if !ok {
		log.Info("no active event")
		return result, nil
	}

	if s.invoker == nil {
		return result, fmt.Errorf(
			"%s: seasonal invoker is not configured: %w", op, domain.ErrDependency,
		)
	}

	resp, err := s.invoker.InvokeSeasonal(
		ctx, domain.SeasonalDiscountRequest{SelectedDate: date, ActiveEvent: &event},
	)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}

	log.Info(
		"seasonal handler invoked",
		"eventID", event.EventID,
		"statusCode", resp.StatusCode,
	)
	result.ActiveEvent = &event
	result.UpdatedProducts = &resp
	return result, nil
}
