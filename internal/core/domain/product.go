package domain

import "github.com/shopspring/decimal"

type (
	Product struct {
		ProductID string
		BasePrice decimal.Decimal
		Demand    int64
		Stock     int64
	}

	CurrentPrice struct {
		ProductID    string
		CurrentPrice decimal.Decimal
	}
)

// A PriceUpdate is the committed result of one conditional price write.
type PriceUpdate struct {
	ProductID     string
	PreviousPrice decimal.Decimal
	NewPrice      decimal.Decimal
}

type PriceSource string

const (
	SourceCompetitor   PriceSource = "competitor"
	SourceDemandSupply PriceSource = "demand_supply"
	SourceSeasonal     PriceSource = "seasonal"
	SourceManual       PriceSource = "manual"
)

// A PriceChanged is the derived event published after a committed update.
type PriceChanged struct {
	EventID       string
	ProductID     string
	CompetitorID  string
	PreviousPrice decimal.Decimal
	NewPrice      decimal.Decimal
	Source        PriceSource
	OccurredAtMs  int64
}
