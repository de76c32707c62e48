package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/pricing"
)

// ProcessPurchase adds the loyalty price of the selected product to the
// customer spend and recomputes the loyalty level.
//
// The customer row has a single writer, so the write is unconditional.
func (s Service) ProcessPurchase(
	ctx context.Context, sel domain.PurchaseSelection,
) (domain.CustomerSpending, error) {
	const op = "Service.ProcessPurchase"
	log := slog.With(
		"op", op, "customerID", sel.CustomerID, "productID", sel.ProductID,
	)

	if err := ctx.Err(); err != nil {
		return domain.CustomerSpending{}, fmt.Errorf("%s: %w", op, err)
	}

	product, err := s.stores.Products.GetProduct(ctx, sel.ProductID)
	if err != nil {
		return domain.CustomerSpending{}, fmt.Errorf("%s: %w", op, err)
	}

	customer, err := s.stores.Customers.GetCustomer(ctx, sel.CustomerID)
	if err != nil {
		return domain.CustomerSpending{}, fmt.Errorf("%s: %w", op, err)
	}

	price := pricing.LoyaltyPricing(product.BasePrice, customer.LoyaltyLevel)
	total := pricing.Round(customer.TotalSpent.Add(price))
	level := pricing.LoyaltyLevelFromSpend(total)

	err = s.stores.Customers.SetSpending(ctx, customer.CustomerID, total, level)
	if err != nil {
		return domain.CustomerSpending{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info(
		"customer spending updated",
		"customerPrice", price.String(),
		"totalSpent", total.String(),
		"loyaltyLevel", level,
	)
	return domain.CustomerSpending{
		CustomerID:    customer.CustomerID,
		ProductID:     product.ProductID,
		CustomerPrice: price,
		TotalSpent:    total,
		LoyaltyLevel:  level,
	}, nil
}
