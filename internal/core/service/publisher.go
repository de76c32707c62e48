package service

import (
	"context"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
)

// A noopPublisher drops everything, used when no broker is configured.
type noopPublisher struct{}

func (noopPublisher) PublishPriceChanged(context.Context, domain.PriceChanged) error {
	return nil
}

func (noopPublisher) PublishInventoryModified(context.Context, domain.Product) error {
	return nil
}

func (noopPublisher) PublishSelectionInserted(
	context.Context, domain.PurchaseSelection,
) error {
	return nil
}
