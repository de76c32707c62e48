package router

import (
	"testing"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseCompetitorPriceUpdate(t *testing.T) {
	t.Run("NumberPrice", func(t *testing.T) {
		tr, err := ParseTrigger(domain.KindCompetitorPriceUpdate, []byte(
			`{"detail": {"CompetitorID": "K1", "ProductID": "P1", "NewCompetitorPrice": 45.99}}`,
		))
		require.NoError(t, err)
		got := tr.(domain.CompetitorPriceUpdate)
		assert.Equal(t, "K1", got.CompetitorID)
		assert.Equal(t, "P1", got.ProductID)
		assert.True(t, dec("45.99").Equal(got.NewCompetitorPrice))
	})

	t.Run("StringPrice", func(t *testing.T) {
		tr, err := ParseTrigger(domain.KindCompetitorPriceUpdate, []byte(
			`{"detail": {"CompetitorID": "K1", "ProductID": "P1", "NewCompetitorPrice": "104"}}`,
		))
		require.NoError(t, err)
		assert.True(t, dec("104").Equal(tr.(domain.CompetitorPriceUpdate).NewCompetitorPrice))
	})

	t.Run("MissingDetail", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindCompetitorPriceUpdate, []byte(`{}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorContains(t, err, "detail")
	})

	t.Run("MissingFields", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindCompetitorPriceUpdate, []byte(
			`{"detail": {"ProductID": "P1"}}`,
		))
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorContains(t, err, "CompetitorID, NewCompetitorPrice")
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindCompetitorPriceUpdate, []byte(`{"detail": `))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestParseInventoryChange(t *testing.T) {
	t.Run("SkipsOtherEvents", func(t *testing.T) {
		tr, err := ParseTrigger(domain.KindInventoryChange, []byte(`{"Records": [
			{"eventName": "INSERT", "dynamodb": {"NewImage": {}}},
			{"eventName": "MODIFY", "dynamodb": {"NewImage": {
				"ProductID": {"S": "P1"},
				"BasePrice": {"N": "100"},
				"Demand": {"N": "10"},
				"Stock": {"N": "200"}
			}}},
			{"eventName": "REMOVE"}
		]}`))
		require.NoError(t, err)
		got := tr.(domain.InventoryChange)
		assert.Equal(t, 2, got.Skipped)
		require.Len(t, got.Records, 1)
		assert.Equal(t, "P1", got.Records[0].ProductID)
		assert.True(t, dec("100").Equal(got.Records[0].BasePrice))
		assert.EqualValues(t, 10, got.Records[0].Demand)
		assert.EqualValues(t, 200, got.Records[0].Stock)
	})

	t.Run("EmptyRecords", func(t *testing.T) {
		tr, err := ParseTrigger(domain.KindInventoryChange, []byte(`{"Records": []}`))
		require.NoError(t, err)
		assert.Empty(t, tr.(domain.InventoryChange).Records)
	})

	t.Run("MissingRecords", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindInventoryChange, []byte(`{}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("FractionalStock", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindInventoryChange, []byte(`{"Records": [
			{"eventName": "MODIFY", "dynamodb": {"NewImage": {
				"ProductID": {"S": "P1"},
				"BasePrice": {"N": "100"},
				"Demand": {"N": "1"},
				"Stock": {"N": "2.5"}
			}}}
		]}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorContains(t, err, "Stock")
	})

	t.Run("MissingBasePrice", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindInventoryChange, []byte(`{"Records": [
			{"eventName": "MODIFY", "dynamodb": {"NewImage": {"ProductID": {"S": "P1"}}}}
		]}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorContains(t, err, "BasePrice")
	})
}

func TestParsePurchaseSelectionInsert(t *testing.T) {
	t.Run("Regular", func(t *testing.T) {
		tr, err := ParseTrigger(domain.KindPurchaseSelectionInsert, []byte(`{"Records": [
			{"eventName": "INSERT", "dynamodb": {"NewImage": {
				"SelectionID": {"S": "S1"},
				"CustomerID": {"S": "C1"},
				"ProductID": {"S": "P1"}
			}}},
			{"eventName": "MODIFY", "dynamodb": {"NewImage": {}}}
		]}`))
		require.NoError(t, err)
		got := tr.(domain.PurchaseSelectionInsert)
		assert.Equal(t, 1, got.Skipped)
		assert.Equal(t, []domain.PurchaseSelection{
			{SelectionID: "S1", CustomerID: "C1", ProductID: "P1"},
		}, got.Selections)
	})

	t.Run("NoRecords", func(t *testing.T) {
		for _, payload := range []string{`{}`, `{"Records": []}`, `{"Records": null}`} {
			_, err := ParseTrigger(domain.KindPurchaseSelectionInsert, []byte(payload))
			assert.ErrorIs(t, err, domain.ErrValidation, payload)
		}
	})

	t.Run("MissingCustomer", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindPurchaseSelectionInsert, []byte(`{"Records": [
			{"eventName": "INSERT", "dynamodb": {"NewImage": {"ProductID": {"S": "P1"}}}}
		]}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestParseSeasonalDiscountRequest(t *testing.T) {
	t.Run("CommaSeparatedProducts", func(t *testing.T) {
		tr, err := ParseTrigger(domain.KindSeasonalDiscountRequest, []byte(`{
			"SelectedDate": "25-11-2023",
			"ActiveEvent": {
				"EventID": "E1",
				"EventName": "Black Friday",
				"StartDate": "24-11-2023",
				"EndDate": "27-11-2023",
				"AffectedProducts": "P1, P2,",
				"DiscountRate": 0.3
			}
		}`))
		require.NoError(t, err)
		got := tr.(domain.SeasonalDiscountRequest)
		assert.Equal(t, day(2023, 11, 25), got.SelectedDate)
		require.NotNil(t, got.ActiveEvent)
		assert.Equal(t, []string{"P1", "P2"}, got.ActiveEvent.AffectedProducts)
		assert.Equal(t, day(2023, 11, 24), got.ActiveEvent.StartDate)
		assert.True(t, dec("0.3").Equal(got.ActiveEvent.DiscountRate))
	})

	t.Run("ArrayProductsAndISODates", func(t *testing.T) {
		tr, err := ParseTrigger(domain.KindSeasonalDiscountRequest, []byte(`{
			"SelectedDate": "2023-12-24",
			"ActiveEvent": {
				"EventID": "E2",
				"StartDate": "2023-12-20",
				"EndDate": "2023-12-26",
				"AffectedProducts": ["P3"],
				"DiscountRate": "0.25"
			}
		}`))
		require.NoError(t, err)
		got := tr.(domain.SeasonalDiscountRequest)
		assert.Equal(t, []string{"P3"}, got.ActiveEvent.AffectedProducts)
		assert.Equal(t, day(2023, 12, 26), got.ActiveEvent.EndDate)
	})

	t.Run("FalsyActiveEvent", func(t *testing.T) {
		for _, ev := range []string{``, `"ActiveEvent": null,`, `"ActiveEvent": {},`, `"ActiveEvent": "",`} {
			payload := `{` + ev + `"SelectedDate": "01-01-2023"}`
			tr, err := ParseTrigger(domain.KindSeasonalDiscountRequest, []byte(payload))
			require.NoError(t, err, payload)
			assert.Nil(t, tr.(domain.SeasonalDiscountRequest).ActiveEvent, payload)
		}
	})

	t.Run("MissingSelectedDate", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindSeasonalDiscountRequest, []byte(`{"ActiveEvent": null}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("InvalidDate", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindSeasonalDiscountRequest, []byte(`{"SelectedDate": "31/12/2023"}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("MissingDiscountRate", func(t *testing.T) {
		_, err := ParseTrigger(domain.KindSeasonalDiscountRequest, []byte(`{
			"SelectedDate": "25-11-2023",
			"ActiveEvent": {"EventID": "E1", "StartDate": "24-11-2023", "EndDate": "27-11-2023"}
		}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorContains(t, err, "DiscountRate")
	})
}

func TestParseSeasonalSchedule(t *testing.T) {
	now := time.Date(2023, 11, 25, 13, 30, 0, 0, time.UTC)

	tr, err := parseSeasonalSchedule(nil, now)
	require.NoError(t, err)
	assert.Equal(t, day(2023, 11, 25), tr.(domain.SeasonalSchedule).SelectedDate)

	tr, err = parseSeasonalSchedule([]byte(`{"SelectedDate": "24-12-2023"}`), now)
	require.NoError(t, err)
	assert.Equal(t, day(2023, 12, 24), tr.(domain.SeasonalSchedule).SelectedDate)
}

func TestParseUnknownKind(t *testing.T) {
	_, err := ParseTrigger(domain.TriggerKind("refund"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTrigger)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMarshalSeasonalRequest(t *testing.T) {
	req := domain.SeasonalDiscountRequest{
		SelectedDate: day(2023, 11, 25),
		ActiveEvent: &domain.EventPromotion{
			EventID:          "E1",
			EventName:        "Black Friday",
			StartDate:        day(2023, 11, 24),
			EndDate:          day(2023, 11, 27),
			AffectedProducts: []string{"P1", "P2"},
			DiscountRate:     dec("0.3"),
		},
	}

	b, err := MarshalSeasonalRequest(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"SelectedDate": "25-11-2023",
		"ActiveEvent": {
			"EventID": "E1",
			"EventName": "Black Friday",
			"StartDate": "24-11-2023",
			"EndDate": "27-11-2023",
			"AffectedProducts": "P1,P2",
			"DiscountRate": "0.3"
		}
	}`, string(b))

	tr, err := ParseTrigger(domain.KindSeasonalDiscountRequest, b)
	require.NoError(t, err)
	got := tr.(domain.SeasonalDiscountRequest)
	assert.Equal(t, req.SelectedDate, got.SelectedDate)
	assert.Equal(t, req.ActiveEvent.AffectedProducts, got.ActiveEvent.AffectedProducts)

	b, err = MarshalSeasonalRequest(domain.SeasonalDiscountRequest{SelectedDate: day(2023, 1, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"SelectedDate": "01-01-2023", "ActiveEvent": null}`, string(b))
}

func TestMarshalChangeRecords(t *testing.T) {
	b, err := MarshalInventoryModified(domain.Product{
		ProductID: "P1", BasePrice: dec("19.99"), Demand: 3, Stock: 7,
	})
	require.NoError(t, err)

	tr, err := ParseTrigger(domain.KindInventoryChange, b)
	require.NoError(t, err)
	recs := tr.(domain.InventoryChange).Records
	require.Len(t, recs, 1)
	assert.True(t, dec("19.99").Equal(recs[0].BasePrice))
	assert.EqualValues(t, 7, recs[0].Stock)

	b, err = MarshalSelectionInserted(domain.PurchaseSelection{
		SelectionID: "S1", CustomerID: "C1", ProductID: "P1",
	})
	require.NoError(t, err)

	tr, err = ParseTrigger(domain.KindPurchaseSelectionInsert, b)
	require.NoError(t, err)
	assert.Equal(t, []domain.PurchaseSelection{
		{SelectionID: "S1", CustomerID: "C1", ProductID: "P1"},
	}, tr.(domain.PurchaseSelectionInsert).Selections)
}
