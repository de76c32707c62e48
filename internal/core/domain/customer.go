package domain

import "github.com/shopspring/decimal"

type LoyaltyLevel string

const (
	LoyaltyBronze   LoyaltyLevel = "Bronze"
	LoyaltySilver   LoyaltyLevel = "Silver"
	LoyaltyGold     LoyaltyLevel = "Gold"
	LoyaltyPlatinum LoyaltyLevel = "Platinum"
)

type (
	Customer struct {
		CustomerID   string
		LoyaltyLevel LoyaltyLevel
		TotalSpent   decimal.Decimal
	}

	PurchaseSelection struct {
		SelectionID string
		CustomerID  string
		ProductID   string
	}
)

// A CustomerSpending is the bookkeeping written after a purchase selection.
type CustomerSpending struct {
	CustomerID    string
	ProductID     string
	CustomerPrice decimal.Decimal
	TotalSpent    decimal.Decimal
	LoyaltyLevel  LoyaltyLevel
}
