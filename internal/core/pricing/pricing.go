// Package pricing holds the side-effect free price computation rules.
//
// Every rule returns a price rounded with [Round]. Invalid arithmetic input
// is reported with an error wrapping [domain.ErrComputation] and invalid
// caller input with [domain.ErrValidation].
package pricing

import (
	"fmt"
	"math/rand/v2"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DefaultDemandCoefficient is the elasticity coefficient of [DemandSupply].
var DefaultDemandCoefficient = decimal.RequireFromString("0.05")

var loyaltyCoefficients = map[domain.LoyaltyLevel]decimal.Decimal{
	domain.LoyaltyBronze:   decimal.RequireFromString("0.02"),
	domain.LoyaltySilver:   decimal.RequireFromString("0.05"),
	domain.LoyaltyGold:     decimal.RequireFromString("0.10"),
	domain.LoyaltyPlatinum: decimal.RequireFromString("0.15"),
}

type loyaltyThreshold struct {
	minSpent decimal.Decimal
	level    domain.LoyaltyLevel
}

// Ordered from the highest tier down, first match wins.
var loyaltyThresholds = []loyaltyThreshold{
	{decimal.NewFromInt(500), domain.LoyaltyPlatinum},
	{decimal.NewFromInt(250), domain.LoyaltyGold},
	{decimal.NewFromInt(100), domain.LoyaltySilver},
}

// CompetitorReaction follows the competitor price shifted by nudge.
//
// A negative result is rejected: the stored price never goes below zero.
func CompetitorReaction(
	newCompetitorPrice, nudge decimal.Decimal,
) (decimal.Decimal, error) {
	const op = "pricing.CompetitorReaction"

	if newCompetitorPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf(
			"%s: competitor price %s is negative: %w",
			op, newCompetitorPrice, domain.ErrValidation,
		)
	}

	price := Round(newCompetitorPrice.Add(nudge))
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf(
			"%s: resulting price %s is negative: %w",
			op, price, domain.ErrComputation,
		)
	}
	return price, nil
}

// DemandSupply scales basePrice by the demand to stock ratio:
// basePrice * (1 + coefficient * demand / stock).
func DemandSupply(
	basePrice decimal.Decimal, demand, stock int64, coefficient decimal.Decimal,
) (decimal.Decimal, error) {
	const op = "pricing.DemandSupply"

	if demand < 0 || stock < 0 {
		return decimal.Zero, fmt.Errorf(
			"%s: demand %d and stock %d must not be negative: %w",
			op, demand, stock, domain.ErrValidation,
		)
	}
	if stock == 0 {
		return decimal.Zero, fmt.Errorf(
			"%s: stock is zero: %w", op, domain.ErrComputation,
		)
	}

	ratio := decimal.NewFromInt(demand).DivRound(
		decimal.NewFromInt(stock), divisionPlaces,
	)
	factor := one.Add(coefficient.Mul(ratio))
	return Round(basePrice.Mul(factor)), nil
}

// LoyaltyCoefficient returns the markup of level, Bronze for unknown levels.
func LoyaltyCoefficient(level domain.LoyaltyLevel) decimal.Decimal {
	if c, ok := loyaltyCoefficients[level]; ok {
		return c
	}
	return loyaltyCoefficients[domain.LoyaltyBronze]
}

// LoyaltyPricing returns basePrice * (1 + coefficient of level).
func LoyaltyPricing(
	basePrice decimal.Decimal, level domain.LoyaltyLevel,
) decimal.Decimal {
	return Round(basePrice.Mul(one.Add(LoyaltyCoefficient(level))))
}

// LoyaltyLevelFromSpend maps cumulative spend to a tier.
// Thresholds are inclusive.
func LoyaltyLevelFromSpend(totalSpent decimal.Decimal) domain.LoyaltyLevel {
	for _, t := range loyaltyThresholds {
		if totalSpent.GreaterThanOrEqual(t.minSpent) {
			return t.level
		}
	}
	return domain.LoyaltyBronze
}

// SeasonalDiscount returns basePrice * (1 - discountRate).
//
// The rate is a fraction in [0, 1].
func SeasonalDiscount(
	basePrice, discountRate decimal.Decimal,
) (decimal.Decimal, error) {
	const op = "pricing.SeasonalDiscount"

	if err := ValidateDiscountRate(discountRate); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return Round(basePrice.Mul(one.Sub(discountRate))), nil
}

// ValidateDiscountRate reports an error wrapping [domain.ErrValidation]
// for a rate outside [0, 1].
func ValidateDiscountRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return fmt.Errorf(
			"discount rate %s is out of [0, 1]: %w", rate, domain.ErrValidation,
		)
	}
	return nil
}


// A RandomNudger picks -1 or +1 with equal probability.
type RandomNudger struct{}

func (RandomNudger) Nudge() decimal.Decimal {
	if rand.IntN(2) == 0 {
		return minusOne
	}
	return one
}

// A FixedNudger always returns its own value.
type FixedNudger decimal.Decimal

func (n FixedNudger) Nudge() decimal.Decimal {
	return decimal.Decimal(n)
}
