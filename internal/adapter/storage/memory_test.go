package storage

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLoadSeed(t *testing.T) {
	ctx := context.Background()
	seed := `{
		"products": [{"ProductID": "P1", "BasePrice": "100", "Demand": 1, "Stock": 10}],
		"prices": [{"ProductID": "P1", "CurrentPrice": "100.00"}],
		"customers": [{"CustomerID": "C1", "LoyaltyLevel": "Gold", "TotalSpent": "300"}],
		"promotions": [{
			"EventID": "E1",
			"EventName": "Black Friday",
			"StartDate": "2023-11-24T00:00:00Z",
			"EndDate": "2023-11-27T00:00:00Z",
			"AffectedProducts": ["P1"],
			"DiscountRate": "0.3"
		}]
	}`

	s := NewMemoryStore()
	require.NoError(t, s.LoadSeed(strings.NewReader(seed)))

	p, err := s.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 10, p.Stock)

	cp, err := s.GetCurrentPrice(ctx, "P1")
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(cp.CurrentPrice))

	c, err := s.GetCustomer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoyaltyGold, c.LoyaltyLevel)

	ps, err := s.ListPromotions(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, []string{"P1"}, ps[0].AffectedProducts)

	assert.Error(t, s.LoadSeed(strings.NewReader("{")))
}

func TestMemoryStoreCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutPrice("P1", dec("100"))

	require.NoError(t, s.CompareAndSetPrice(ctx, "P1", dec("100.00"), dec("105")))
	assert.ErrorIs(t,
		s.CompareAndSetPrice(ctx, "P1", dec("100"), dec("106")),
		domain.ErrConflict,
	)
	assert.ErrorIs(t,
		s.CompareAndSetPrice(ctx, "P2", dec("100"), dec("106")),
		domain.ErrNotFound,
	)

	cp, err := s.GetCurrentPrice(ctx, "P1")
	require.NoError(t, err)
	assert.True(t, dec("105").Equal(cp.CurrentPrice))
}

func TestMemoryStoreRace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutPrice("P1", dec("100"))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.CompareAndSetPrice(ctx, "P1", dec("100"), dec("101")) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryStoreWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutProduct(domain.Product{ProductID: "P1", BasePrice: dec("10")})
	s.PutCustomer(domain.Customer{CustomerID: "C1", LoyaltyLevel: domain.LoyaltyBronze})

	require.NoError(t, s.SetInventory(ctx, "P1", 4, 8))
	p, err := s.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, p.Demand)
	assert.EqualValues(t, 8, p.Stock)

	require.NoError(t, s.SetSpending(ctx, "C1", dec("120"), domain.LoyaltySilver))
	c, err := s.GetCustomer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoyaltySilver, c.LoyaltyLevel)

	assert.ErrorIs(t, s.SetInventory(ctx, "P2", 1, 1), domain.ErrNotFound)
	assert.ErrorIs(t,
		s.SetSpending(ctx, "C2", dec("1"), domain.LoyaltyBronze),
		domain.ErrNotFound,
	)

	sel := domain.PurchaseSelection{SelectionID: "S1", CustomerID: "C1", ProductID: "P1"}
	require.NoError(t, s.AppendSelection(ctx, sel))
	assert.Equal(t, []domain.PurchaseSelection{sel}, s.Selections())
	require.NoError(t, s.RemoveSelection(ctx, "S1"))
	require.NoError(t, s.RemoveSelection(ctx, "S1"))
	assert.Empty(t, s.Selections())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.GetProduct(cctx, "P1")
	assert.ErrorIs(t, err, context.Canceled)
}
