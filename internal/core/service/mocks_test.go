package service

import (
	"context"
	"sync"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/stretchr/testify/mock"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) PublishPriceChanged(
	ctx context.Context, e domain.PriceChanged,
) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *publisherMock) PublishInventoryModified(
	ctx context.Context, p domain.Product,
) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *publisherMock) PublishSelectionInserted(
	ctx context.Context, s domain.PurchaseSelection,
) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type invokerMock struct {
	mock.Mock
}

func (m *invokerMock) InvokeSeasonal(
	ctx context.Context, req domain.SeasonalDiscountRequest,
) (domain.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Response), args.Error(1)
}

// barrierStore holds every reader until n of them have read, so all of
// them observe the same baseline before anyone writes.
type barrierStore struct {
	port.PriceStore
	wg sync.WaitGroup
}

func newBarrierStore(store port.PriceStore, n int) *barrierStore {
	s := &barrierStore{PriceStore: store}
	s.wg.Add(n)
	return s
}

func (s *barrierStore) GetCurrentPrice(
	ctx context.Context, productID string,
) (domain.CurrentPrice, error) {
	cp, err := s.PriceStore.GetCurrentPrice(ctx, productID)
	s.wg.Done()
	s.wg.Wait()
	return cp, err
}
