package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/shopspring/decimal"
)

var (
	_ port.PriceStore     = (*MemoryStore)(nil)
	_ port.ProductStore   = (*MemoryStore)(nil)
	_ port.CustomerStore  = (*MemoryStore)(nil)
	_ port.PromotionStore = (*MemoryStore)(nil)
	_ port.SelectionStore = (*MemoryStore)(nil)
)

// A MemoryStore keeps every table in process memory.
//
// A single lock guards all tables, so CompareAndSetPrice is atomic.
type MemoryStore struct {
	mu         sync.RWMutex
	prices     map[string]decimal.Decimal
	products   map[string]domain.Product
	customers  map[string]domain.Customer
	promotions []domain.EventPromotion
	selections []domain.PurchaseSelection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prices:    make(map[string]decimal.Decimal),
		products:  make(map[string]domain.Product),
		customers: make(map[string]domain.Customer),
	}
}

// A Seed is the JSON document loaded by [MemoryStore.LoadSeed].
type Seed struct {
	Products   []domain.Product        `json:"products"`
	Prices     []domain.CurrentPrice   `json:"prices"`
	Customers  []domain.Customer       `json:"customers"`
	Promotions []domain.EventPromotion `json:"promotions"`
}

func (s *MemoryStore) LoadSeed(r io.Reader) error {
	const op = "MemoryStore.LoadSeed"

	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, p := range seed.Products {
		s.PutProduct(p)
	}
	for _, cp := range seed.Prices {
		s.PutPrice(cp.ProductID, cp.CurrentPrice)
	}
	for _, c := range seed.Customers {
		s.PutCustomer(c)
	}
	for _, p := range seed.Promotions {
		s.PutPromotion(p)
	}
	return nil
}

func (s *MemoryStore) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ProductID] = p
}

func (s *MemoryStore) PutPrice(productID string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[productID] = price
}

func (s *MemoryStore) PutCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.CustomerID] = c
}

func (s *MemoryStore) PutPromotion(p domain.EventPromotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promotions = append(s.promotions, p)
}

func (s *MemoryStore) Selections() []domain.PurchaseSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.selections)
}

func (s *MemoryStore) GetCurrentPrice(
	ctx context.Context, productID string,
) (domain.CurrentPrice, error) {
	const op = "MemoryStore.GetCurrentPrice"

	if err := ctx.Err(); err != nil {
		return domain.CurrentPrice{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[productID]
	if !ok {
		return domain.CurrentPrice{}, fmt.Errorf(
			"%s: price of %q: %w", op, productID, domain.ErrNotFound,
		)
	}
	return domain.CurrentPrice{ProductID: productID, CurrentPrice: price}, nil
}

func (s *MemoryStore) CompareAndSetPrice(
	ctx context.Context, productID string, expected, newPrice decimal.Decimal,
) error {
	const op = "MemoryStore.CompareAndSetPrice"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.prices[productID]
	if !ok {
		return fmt.Errorf(
			"%s: price of %q: %w", op, productID, domain.ErrNotFound,
		)
	}
	if !stored.Equal(expected) {
		return fmt.Errorf(
			"%s: price of %q is no longer %s: %w",
			op, productID, expected, domain.ErrConflict,
		)
	}
	s.prices[productID] = newPrice
	return nil
}

func (s *MemoryStore) SetPrice(
	ctx context.Context, productID string, price decimal.Decimal,
) error {
	const op = "MemoryStore.SetPrice"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.PutPrice(productID, price)
	return nil
}

func (s *MemoryStore) GetProduct(
	ctx context.Context, productID string,
) (domain.Product, error) {
	const op = "MemoryStore.GetProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf(
			"%s: product %q: %w", op, productID, domain.ErrNotFound,
		)
	}
	return p, nil
}

func (s *MemoryStore) SetInventory(
	ctx context.Context, productID string, demand, stock int64,
) error {
	const op = "MemoryStore.SetInventory"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf(
			"%s: product %q: %w", op, productID, domain.ErrNotFound,
		)
	}
	p.Demand, p.Stock = demand, stock
	s.products[productID] = p
	return nil
}

func (s *MemoryStore) GetCustomer(
	ctx context.Context, customerID string,
) (domain.Customer, error) {
	const op = "MemoryStore.GetCustomer"

	if err := ctx.Err(); err != nil {
		return domain.Customer{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[customerID]
	if !ok {
		return domain.Customer{}, fmt.Errorf(
			"%s: customer %q: %w", op, customerID, domain.ErrNotFound,
		)
	}
	return c, nil
}

func (s *MemoryStore) SetSpending(
	ctx context.Context,
	customerID string,
	totalSpent decimal.Decimal,
	level domain.LoyaltyLevel,
) error {
	const op = "MemoryStore.SetSpending"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return fmt.Errorf(
			"%s: customer %q: %w", op, customerID, domain.ErrNotFound,
		)
	}
	c.TotalSpent, c.LoyaltyLevel = totalSpent, level
	s.customers[customerID] = c
	return nil
}

func (s *MemoryStore) ListPromotions(
	ctx context.Context,
) ([]domain.EventPromotion, error) {
	const op = "MemoryStore.ListPromotions"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.promotions), nil
}

func (s *MemoryStore) AppendSelection(
	ctx context.Context, sel domain.PurchaseSelection,
) error {
	const op = "MemoryStore.AppendSelection"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections = append(s.selections, sel)
	return nil
}

func (s *MemoryStore) RemoveSelection(
	ctx context.Context, selectionID string,
) error {
	const op = "MemoryStore.RemoveSelection"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections = slices.DeleteFunc(s.selections, func(sel domain.PurchaseSelection) bool {
		return sel.SelectionID == selectionID
	})
	return nil
}
