package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/dynamic-pricing/internal/core/pricing"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/shopspring/decimal"
)

var (
	_ port.PricingService    = (*Service)(nil)
	_ port.InventoryRecorder = (*Service)(nil)
	_ port.SelectionRecorder = (*Service)(nil)
	_ port.PriceReader       = (*Service)(nil)
	_ port.PriceWriter       = (*Service)(nil)
)

// Stores groups the storage ports the service reads and writes.
type Stores struct {
	Prices     port.PriceStore
	Products   port.ProductStore
	Customers  port.CustomerStore
	Promotions port.PromotionStore
	Selections port.SelectionStore
}

type Service struct {
	coordinator  Coordinator
	stores       Stores
	priceEvents  port.PriceEventPublisher
	changeStream port.ChangeStreamPublisher
	invoker      port.SeasonalInvoker
	nudger       port.Nudger
	demandCoef   decimal.Decimal
	now          func() time.Time
	newID        func() string
}

type Opt func(*Service)

func PriceEventsOpt(p port.PriceEventPublisher) Opt {
	return func(s *Service) { s.priceEvents = p }
}

func ChangeStreamOpt(p port.ChangeStreamPublisher) Opt {
	return func(s *Service) { s.changeStream = p }
}

func SeasonalInvokerOpt(i port.SeasonalInvoker) Opt {
	return func(s *Service) { s.invoker = i }
}

func NudgerOpt(n port.Nudger) Opt {
	return func(s *Service) { s.nudger = n }
}

func DemandCoefficientOpt(coef decimal.Decimal) Opt {
	return func(s *Service) { s.demandCoef = coef }
}

func ClockOpt(now func() time.Time) Opt {
	return func(s *Service) { s.now = now }
}

func IDGeneratorOpt(newID func() string) Opt {
	return func(s *Service) { s.newID = newID }
}

// New returns the pricing service.
//
// Every store is required. Publishers default to no-ops, the nudger to
// [pricing.RandomNudger] and the demand coefficient to
// [pricing.DefaultDemandCoefficient]. Without an invoker the seasonal
// schedule fails with [domain.ErrDependency].
func New(stores Stores, opts ...Opt) Service {
	if stores.Prices == nil || stores.Products == nil ||
		stores.Customers == nil || stores.Promotions == nil ||
		stores.Selections == nil {
		panic("service.New: missing store") // develop mistake
	}

	s := Service{
		coordinator:  NewCoordinator(stores.Prices),
		stores:       stores,
		priceEvents:  noopPublisher{},
		changeStream: noopPublisher{},
		nudger:       pricing.RandomNudger{},
		demandCoef:   pricing.DefaultDemandCoefficient,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
