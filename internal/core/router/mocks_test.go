package router

import (
	"context"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type serviceMock struct {
	mock.Mock
}

func (m *serviceMock) ReactToCompetitor(
	ctx context.Context, t domain.CompetitorPriceUpdate,
) (domain.PriceUpdate, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(domain.PriceUpdate), args.Error(1)
}

func (m *serviceMock) ApplyInventoryChange(
	ctx context.Context, r domain.InventoryRecord,
) (domain.PriceUpdate, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(domain.PriceUpdate), args.Error(1)
}

func (m *serviceMock) ProcessPurchase(
	ctx context.Context, s domain.PurchaseSelection,
) (domain.CustomerSpending, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(domain.CustomerSpending), args.Error(1)
}

func (m *serviceMock) ApplySeasonalDiscount(
	ctx context.Context, req domain.SeasonalDiscountRequest,
) ([]domain.DiscountedPrice, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]domain.DiscountedPrice), args.Error(1)
}

func (m *serviceMock) RunSeasonalSchedule(
	ctx context.Context, date time.Time,
) (domain.SeasonalScheduleResult, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(domain.SeasonalScheduleResult), args.Error(1)
}

type recorderMock struct {
	mock.Mock
}

func (m *recorderMock) RecordOutcome(kind domain.TriggerKind, outcome domain.Outcome) {
	m.Called(kind, outcome)
}
