package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/router"
	"github.com/niksmo/dynamic-pricing/pkg/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestPriceChangesProducer(t *testing.T) {
	event := domain.PriceChanged{
		EventID:       "e1",
		ProductID:     "P1",
		CompetitorID:  "K1",
		PreviousPrice: decimal.RequireFromString("100.00"),
		NewPrice:      decimal.RequireFromString("105"),
		Source:        domain.SourceCompetitor,
		OccurredAtMs:  1700000000000,
	}

	t.Run("TooFewOpts", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = NewPriceChangesProducer(ProducerEncoderOpt(jsonSerde{}))
		})
	})

	t.Run("NilEncoder", func(t *testing.T) {
		_, err := NewPriceChangesProducer(
			ProducerCustomClientOpt(new(producerClientMock)),
			ProducerEncoderOpt(nil),
		)
		require.Error(t, err)
	})

	t.Run("Publish", func(t *testing.T) {
		cl := new(producerClientMock)
		cl.On("ProduceSync", mock.Anything, mock.MatchedBy(
			func(rs []*kgo.Record) bool {
				if len(rs) != 1 || string(rs[0].Key) != "P1" {
					return false
				}
				var s schema.PriceChangedV1
				if err := (jsonSerde{}).Decode(rs[0].Value, &s); err != nil {
					return false
				}
				return s.NewCurrentPrice == "105" &&
					s.PreviousPrice == "100" &&
					s.Source == "competitor" &&
					s.OccurredAt == 1700000000000
			},
		)).Return(kgo.ProduceResults{{}}).Once()

		p, err := NewPriceChangesProducer(
			ProducerCustomClientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)

		require.NoError(t, p.PublishPriceChanged(context.Background(), event))
		cl.AssertExpectations(t)
	})

	t.Run("ProduceFailure", func(t *testing.T) {
		produceErr := errors.New("not enough replicas")
		cl := new(producerClientMock)
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Return(kgo.ProduceResults{{Err: produceErr}}).Once()

		p, err := NewPriceChangesProducer(
			ProducerCustomClientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)

		err = p.PublishPriceChanged(context.Background(), event)
		assert.ErrorIs(t, err, produceErr)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cl := new(producerClientMock)
		p, err := NewPriceChangesProducer(
			ProducerCustomClientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, p.PublishPriceChanged(ctx, event), context.Canceled)
		cl.AssertNotCalled(t, "ProduceSync", mock.Anything, mock.Anything)
	})

	t.Run("Close", func(t *testing.T) {
		cl := new(producerClientMock)
		cl.On("Close").Return().Once()
		p, err := NewPriceChangesProducer(
			ProducerCustomClientOpt(cl), ProducerEncoderOpt(jsonSerde{}),
		)
		require.NoError(t, err)
		p.Close()
		cl.AssertExpectations(t)
	})
}

func TestChangeStreamProducer(t *testing.T) {
	newProducer := func(cl ProducerClient) ChangeStreamProducer {
		p, err := NewChangeStreamProducer(
			ProducerCustomClientOpt(cl),
			ChangeStreamTopicsOpt("inventory-changes", "purchase-selections"),
		)
		require.NoError(t, err)
		return p
	}

	t.Run("EmptyTopic", func(t *testing.T) {
		_, err := NewChangeStreamProducer(
			ProducerCustomClientOpt(new(producerClientMock)),
			ChangeStreamTopicsOpt("", "purchase-selections"),
		)
		require.Error(t, err)
	})

	t.Run("InventoryModified", func(t *testing.T) {
		product := domain.Product{
			ProductID: "P1",
			BasePrice: decimal.RequireFromString("100"),
			Demand:    10,
			Stock:     200,
		}
		want, err := router.MarshalInventoryModified(product)
		require.NoError(t, err)

		cl := new(producerClientMock)
		cl.On("ProduceSync", mock.Anything, mock.MatchedBy(
			func(rs []*kgo.Record) bool {
				return len(rs) == 1 &&
					rs[0].Topic == "inventory-changes" &&
					string(rs[0].Key) == "P1" &&
					string(rs[0].Value) == string(want)
			},
		)).Return(kgo.ProduceResults{{}}).Once()

		require.NoError(t, newProducer(cl).PublishInventoryModified(
			context.Background(), product,
		))
		cl.AssertExpectations(t)
	})

	t.Run("SelectionInserted", func(t *testing.T) {
		sel := domain.PurchaseSelection{
			SelectionID: "S1", CustomerID: "C1", ProductID: "P1",
		}

		cl := new(producerClientMock)
		cl.On("ProduceSync", mock.Anything, mock.MatchedBy(
			func(rs []*kgo.Record) bool {
				if len(rs) != 1 || rs[0].Topic != "purchase-selections" {
					return false
				}
				trig, err := router.ParseTrigger(
					domain.KindPurchaseSelectionInsert, rs[0].Value,
				)
				if err != nil {
					return false
				}
				got := trig.(domain.PurchaseSelectionInsert).Selections
				return len(got) == 1 && got[0] == sel
			},
		)).Return(kgo.ProduceResults{{}}).Once()

		require.NoError(t, newProducer(cl).PublishSelectionInserted(
			context.Background(), sel,
		))
		cl.AssertExpectations(t)
	})
}
