package httphandler

import (
	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/shopspring/decimal"
)

type (
	InventoryRequest struct {
		Demand *int64 `json:"Demand"`
		Stock  *int64 `json:"Stock"`
	}

	SelectionRequest struct {
		CustomerID string `json:"CustomerID"`
		ProductID  string `json:"ProductID"`
	}

	PriceRequest struct {
		CurrentPrice *decimal.Decimal `json:"CurrentPrice"`
	}
)

type (
	Product struct {
		ProductID string          `json:"ProductID"`
		BasePrice decimal.Decimal `json:"BasePrice"`
		Demand    int64           `json:"Demand"`
		Stock     int64           `json:"Stock"`
	}

	Selection struct {
		SelectionID string `json:"SelectionID"`
		CustomerID  string `json:"CustomerID"`
		ProductID   string `json:"ProductID"`
	}

	CurrentPrice struct {
		ProductID    string          `json:"ProductID"`
		CurrentPrice decimal.Decimal `json:"CurrentPrice"`
	}

	PublishedPrice struct {
		EventID         string          `json:"EventID"`
		ProductID       string          `json:"ProductID"`
		CompetitorID    string          `json:"CompetitorID,omitempty"`
		PreviousPrice   decimal.Decimal `json:"PreviousPrice"`
		NewCurrentPrice decimal.Decimal `json:"NewCurrentPrice"`
		Source          string          `json:"Source"`
		OccurredAt      int64           `json:"OccurredAt"`
	}

	ErrorBody struct {
		Error string `json:"error"`
	}
)

func productFromDomain(p domain.Product) Product {
	return Product{
		ProductID: p.ProductID,
		BasePrice: p.BasePrice,
		Demand:    p.Demand,
		Stock:     p.Stock,
	}
}

func selectionFromDomain(s domain.PurchaseSelection) Selection {
	return Selection{
		SelectionID: s.SelectionID,
		CustomerID:  s.CustomerID,
		ProductID:   s.ProductID,
	}
}

func currentPriceFromDomain(cp domain.CurrentPrice) CurrentPrice {
	return CurrentPrice{ProductID: cp.ProductID, CurrentPrice: cp.CurrentPrice}
}

func publishedPriceFromDomain(e domain.PriceChanged) PublishedPrice {
	return PublishedPrice{
		EventID:         e.EventID,
		ProductID:       e.ProductID,
		CompetitorID:    e.CompetitorID,
		PreviousPrice:   e.PreviousPrice,
		NewCurrentPrice: e.NewPrice,
		Source:          string(e.Source),
		OccurredAt:      e.OccurredAtMs,
	}
}
