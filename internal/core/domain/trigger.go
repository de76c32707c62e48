package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TriggerKind string

const (
	KindCompetitorPriceUpdate   TriggerKind = "competitor_price_update"
	KindInventoryChange         TriggerKind = "inventory_change"
	KindPurchaseSelectionInsert TriggerKind = "purchase_selection_insert"
	KindSeasonalDiscountRequest TriggerKind = "seasonal_discount_request"
	KindSeasonalSchedule        TriggerKind = "seasonal_schedule"
)

// A Trigger is one of the fixed inbound payload shapes.
//
// The set is closed: only types of this package implement it.
type Trigger interface {
	Kind() TriggerKind
	trigger()
}

type (
	CompetitorPriceUpdate struct {
		CompetitorID       string
		ProductID          string
		NewCompetitorPrice decimal.Decimal
	}

	// An InventoryRecord is a MODIFY change on the products table.
	InventoryRecord struct {
		ProductID string
		BasePrice decimal.Decimal
		Demand    int64
		Stock     int64
	}

	// An InventoryChange holds the MODIFY records of a change-stream batch.
	//
	// Skipped counts the records of other event types.
	InventoryChange struct {
		Records []InventoryRecord
		Skipped int
	}

	// A PurchaseSelectionInsert holds the INSERT records of a
	// change-stream batch on the purchase selections table.
	PurchaseSelectionInsert struct {
		Selections []PurchaseSelection
		Skipped    int
	}

	// A SeasonalDiscountRequest with a nil ActiveEvent is a no-op.
	SeasonalDiscountRequest struct {
		SelectedDate time.Time
		ActiveEvent  *EventPromotion
	}

	SeasonalSchedule struct {
		SelectedDate time.Time
	}
)

func (CompetitorPriceUpdate) Kind() TriggerKind   { return KindCompetitorPriceUpdate }
func (InventoryChange) Kind() TriggerKind         { return KindInventoryChange }
func (PurchaseSelectionInsert) Kind() TriggerKind { return KindPurchaseSelectionInsert }
func (SeasonalDiscountRequest) Kind() TriggerKind { return KindSeasonalDiscountRequest }
func (SeasonalSchedule) Kind() TriggerKind        { return KindSeasonalSchedule }

func (CompetitorPriceUpdate) trigger()   {}
func (InventoryChange) trigger()         {}
func (PurchaseSelectionInsert) trigger() {}
func (SeasonalDiscountRequest) trigger() {}
func (SeasonalSchedule) trigger()        {}

// A Response is what every outward-facing handler returns.
//
// Body is always a JSON document: a success payload or a JSON string.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}
