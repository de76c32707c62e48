package port

import (
	"context"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Driven ports.

type PriceStore interface {
	GetCurrentPrice(ctx context.Context, productID string) (domain.CurrentPrice, error)

	// CompareAndSetPrice writes newPrice only if the stored price still equals
	// expected. It returns an error wrapping [domain.ErrConflict] when the
	// stored value differs and [domain.ErrNotFound] when there is no row.
	CompareAndSetPrice(
		ctx context.Context, productID string, expected, newPrice decimal.Decimal,
	) error

	SetPrice(ctx context.Context, productID string, price decimal.Decimal) error
}

type ProductStore interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	SetInventory(ctx context.Context, productID string, demand, stock int64) error
}

type CustomerStore interface {
	GetCustomer(ctx context.Context, customerID string) (domain.Customer, error)
	SetSpending(
		ctx context.Context,
		customerID string,
		totalSpent decimal.Decimal,
		level domain.LoyaltyLevel,
	) error
}

type PromotionStore interface {
	ListPromotions(ctx context.Context) ([]domain.EventPromotion, error)
}

type SelectionStore interface {
	AppendSelection(ctx context.Context, s domain.PurchaseSelection) error

	// RemoveSelection deletes selectionID, absent ids are ignored.
	RemoveSelection(ctx context.Context, selectionID string) error
}

type PriceEventPublisher interface {
	PublishPriceChanged(ctx context.Context, e domain.PriceChanged) error
}

// A ChangeStreamPublisher emits the change records a store with a native
// change stream would produce.
type ChangeStreamPublisher interface {
	PublishInventoryModified(ctx context.Context, p domain.Product) error
	PublishSelectionInserted(ctx context.Context, s domain.PurchaseSelection) error
}

// A SeasonalInvoker calls the seasonal discount handler synchronously.
type SeasonalInvoker interface {
	InvokeSeasonal(
		ctx context.Context, req domain.SeasonalDiscountRequest,
	) (domain.Response, error)
}

type PublishedPriceReader interface {
	GetPublishedPrice(ctx context.Context, productID string) (domain.PriceChanged, error)
}

type Nudger interface {
	Nudge() decimal.Decimal
}

type OutcomeRecorder interface {
	RecordOutcome(kind domain.TriggerKind, outcome domain.Outcome)
}

// Driving ports.

type CompetitorPriceReactor interface {
	ReactToCompetitor(
		ctx context.Context, t domain.CompetitorPriceUpdate,
	) (domain.PriceUpdate, error)
}

type InventoryPricer interface {
	ApplyInventoryChange(
		ctx context.Context, r domain.InventoryRecord,
	) (domain.PriceUpdate, error)
}

type PurchaseProcessor interface {
	ProcessPurchase(
		ctx context.Context, s domain.PurchaseSelection,
	) (domain.CustomerSpending, error)
}

type SeasonalDiscounter interface {
	ApplySeasonalDiscount(
		ctx context.Context, req domain.SeasonalDiscountRequest,
	) ([]domain.DiscountedPrice, error)
}

type SeasonalScheduler interface {
	RunSeasonalSchedule(
		ctx context.Context, date time.Time,
	) (domain.SeasonalScheduleResult, error)
}

// A PricingService is everything the trigger router dispatches to.
type PricingService interface {
	CompetitorPriceReactor
	InventoryPricer
	PurchaseProcessor
	SeasonalDiscounter
	SeasonalScheduler
}

type InventoryRecorder interface {
	RecordInventory(
		ctx context.Context, productID string, demand, stock int64,
	) (domain.Product, error)
}

type SelectionRecorder interface {
	RecordSelection(
		ctx context.Context, customerID, productID string,
	) (domain.PurchaseSelection, error)
}

type PriceReader interface {
	GetCurrentPrice(ctx context.Context, productID string) (domain.CurrentPrice, error)
}

type PriceWriter interface {
	SetCurrentPrice(
		ctx context.Context, productID string, price decimal.Decimal,
	) (domain.CurrentPrice, error)
}

// A TriggerHandler turns a raw trigger payload into a response.
type TriggerHandler interface {
	Handle(
		ctx context.Context, kind domain.TriggerKind, payload []byte,
	) domain.Response
}
