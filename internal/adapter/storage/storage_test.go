package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) SQLDB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "pricing.db")
	db, err := NewSQLDB(context.Background(), DialectSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, Migrate(db))
	return db
}

func mustExec(t *testing.T, db SQLDB, query string, args ...any) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRebind(t *testing.T) {
	pg := SQLDB{dialect: DialectPostgres}
	assert.Equal(t,
		"UPDATE t SET a = $1 WHERE b = $2 AND c = $3",
		pg.Rebind("UPDATE t SET a = ? WHERE b = ? AND c = ?"),
	)

	lite := SQLDB{dialect: DialectSQLite}
	assert.Equal(t, "SELECT ?", lite.Rebind("SELECT ?"))
}

func TestNewSQLDBUnknownDialect(t *testing.T) {
	_, err := NewSQLDB(context.Background(), Dialect("oracle"), "")
	assert.ErrorIs(t, err, ErrUnknownDialect)
}

func TestMigrateTwice(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, Migrate(db))
}

func TestPricesRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewPricesRepository(db)
	mustExec(t, db,
		`INSERT INTO current_prices (product_id, current_price) VALUES (?, ?)`,
		"P1", "100.00",
	)

	t.Run("Get", func(t *testing.T) {
		cp, err := r.GetCurrentPrice(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, "P1", cp.ProductID)
		assert.True(t, dec("100").Equal(cp.CurrentPrice))
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := r.GetCurrentPrice(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("CompareAndSet", func(t *testing.T) {
		require.NoError(t, r.CompareAndSetPrice(ctx, "P1", dec("100"), dec("105")))

		cp, err := r.GetCurrentPrice(ctx, "P1")
		require.NoError(t, err)
		assert.True(t, dec("105").Equal(cp.CurrentPrice))
	})

	t.Run("CompareAndSetConflict", func(t *testing.T) {
		err := r.CompareAndSetPrice(ctx, "P1", dec("100"), dec("106"))
		require.ErrorIs(t, err, domain.ErrConflict)

		cp, err := r.GetCurrentPrice(ctx, "P1")
		require.NoError(t, err)
		assert.True(t, dec("105").Equal(cp.CurrentPrice))
	})

	t.Run("CompareAndSetNotFound", func(t *testing.T) {
		err := r.CompareAndSetPrice(ctx, "missing", dec("1"), dec("2"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SetUpserts", func(t *testing.T) {
		require.NoError(t, r.SetPrice(ctx, "P2", dec("10.16666667")))
		require.NoError(t, r.SetPrice(ctx, "P2", dec("10.5")))

		cp, err := r.GetCurrentPrice(ctx, "P2")
		require.NoError(t, err)
		assert.True(t, dec("10.5").Equal(cp.CurrentPrice))
	})

	t.Run("KeepsPrecision", func(t *testing.T) {
		require.NoError(t, r.SetPrice(ctx, "P3", dec("1234567.891")))
		require.NoError(t,
			r.CompareAndSetPrice(ctx, "P3", dec("1234567.891"), dec("0.0001234567890")),
		)
		cp, err := r.GetCurrentPrice(ctx, "P3")
		require.NoError(t, err)
		assert.True(t, dec("0.000123456789").Equal(cp.CurrentPrice))
	})
}

func TestPricesRepositoryRace(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewPricesRepository(db)
	require.NoError(t, r.SetPrice(ctx, "P1", dec("100")))

	const writers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.CompareAndSetPrice(
				ctx, "P1", dec("100"), decimal.NewFromInt(int64(101+i)),
			)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded.Load())
	assert.EqualValues(t, writers-1, conflicts.Load())
}

func TestProductsRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewProductsRepository(db)
	mustExec(t, db,
		`INSERT INTO products (product_id, base_price, demand, stock) VALUES (?, ?, ?, ?)`,
		"P1", "19.99", 3, 40,
	)

	p, err := r.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.True(t, dec("19.99").Equal(p.BasePrice))
	assert.EqualValues(t, 3, p.Demand)
	assert.EqualValues(t, 40, p.Stock)

	require.NoError(t, r.SetInventory(ctx, "P1", 10, 0))
	p, err = r.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 10, p.Demand)
	assert.EqualValues(t, 0, p.Stock)

	_, err = r.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, r.SetInventory(ctx, "missing", 1, 1), domain.ErrNotFound)
}

func TestCustomersRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewCustomersRepository(db)
	mustExec(t, db,
		`INSERT INTO customers (customer_id, loyalty_level, total_spent) VALUES (?, ?, ?)`,
		"C1", "Bronze", "90",
	)

	c, err := r.GetCustomer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoyaltyBronze, c.LoyaltyLevel)
	assert.True(t, dec("90").Equal(c.TotalSpent))

	require.NoError(t, r.SetSpending(ctx, "C1", dec("192.00"), domain.LoyaltySilver))
	c, err = r.GetCustomer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoyaltySilver, c.LoyaltyLevel)
	assert.True(t, dec("192").Equal(c.TotalSpent))

	_, err = r.GetCustomer(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t,
		r.SetSpending(ctx, "missing", dec("1"), domain.LoyaltyBronze),
		domain.ErrNotFound,
	)
}

func TestPromotionsRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewPromotionsRepository(db)

	ps, err := r.ListPromotions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ps)

	mustExec(t, db, `
		INSERT INTO event_promotions (
			event_id, event_name, start_date, end_date,
			affected_products, discount_rate
		) VALUES (?, ?, ?, ?, ?, ?), (?, ?, ?, ?, ?, ?)`,
		"E2", "Christmas", "2023-12-20", "2023-12-26", "P1, P3,", "0.25",
		"E1", "Black Friday", "2023-11-24", "2023-11-27", "P1,P2", "0.3",
	)

	ps, err = r.ListPromotions(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 2)

	bf := ps[0]
	assert.Equal(t, "E1", bf.EventID)
	assert.Equal(t, "Black Friday", bf.EventName)
	assert.Equal(t, time.Date(2023, 11, 24, 0, 0, 0, 0, time.UTC), bf.StartDate.UTC())
	assert.Equal(t, []string{"P1", "P2"}, bf.AffectedProducts)
	assert.True(t, dec("0.3").Equal(bf.DiscountRate))

	assert.Equal(t, []string{"P1", "P3"}, ps[1].AffectedProducts)

	active, ok := domain.FindActivePromotion(
		ps, time.Date(2023, 12, 26, 0, 0, 0, 0, time.UTC),
	)
	require.True(t, ok)
	assert.Equal(t, "E2", active.EventID)
}

func TestSelectionsRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewSelectionsRepository(db)

	sel := domain.PurchaseSelection{
		SelectionID: "S1", CustomerID: "C1", ProductID: "P1",
	}
	require.NoError(t, r.AppendSelection(ctx, sel))
	assert.Error(t, r.AppendSelection(ctx, sel), "selection id is unique")

	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase_selections WHERE customer_id = ?`, "C1",
	).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.RemoveSelection(ctx, "S1"))
	require.NoError(t, r.RemoveSelection(ctx, "S1"), "absent id is ignored")
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase_selections WHERE customer_id = ?`, "C1",
	).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSplitProductIDs(t *testing.T) {
	assert.Equal(t, []string{"P1", "P2"}, SplitProductIDs(" P1 ,P2"))
	assert.Nil(t, SplitProductIDs(""))
	assert.Nil(t, SplitProductIDs(" , "))
}
