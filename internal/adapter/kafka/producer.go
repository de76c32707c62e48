package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/niksmo/dynamic-pricing/internal/core/router"
	"github.com/niksmo/dynamic-pricing/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	_ port.PriceEventPublisher   = (*PriceChangesProducer)(nil)
	_ port.ChangeStreamPublisher = (*ChangeStreamProducer)(nil)
)

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, rs ...*kgo.Record,
) error {
	const op = "produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// A PriceChangesProducer produces [domain.PriceChanged] keyed by product.
type PriceChangesProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewPriceChangesProducer(
	opts ...ProducerOpt,
) (PriceChangesProducer, error) {
	const op = "NewPriceChangesProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return PriceChangesProducer{}, opErr(err, op)
		}
	}

	opPrefix := "PriceChangesProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return PriceChangesProducer{
		encoder:  options.encoder,
		producer: p,
		opPrefix: opPrefix,
	}, nil
}

func (p PriceChangesProducer) Close() {
	p.producer.close()
}

func (p PriceChangesProducer) PublishPriceChanged(
	ctx context.Context, v domain.PriceChanged,
) error {
	const op = "PublishPriceChanged"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(v)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, r); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

func (p PriceChangesProducer) createRecord(
	v domain.PriceChanged,
) (*kgo.Record, error) {
	const op = "createRecord"

	s := p.toSchema(v)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}
	return &kgo.Record{Key: []byte(s.ProductID), Value: b}, nil
}

func (PriceChangesProducer) toSchema(v domain.PriceChanged) schema.PriceChangedV1 {
	return priceChangedToSchemaV1(v)
}

type changeStreamTopics struct {
	inventory  string
	selections string
}

// A ChangeStreamProducer emits the change records the SQL store cannot
// produce by itself.
type ChangeStreamProducer struct {
	producer producer
	topics   changeStreamTopics
	opPrefix string
}

func NewChangeStreamProducer(
	opts ...ProducerOpt,
) (ChangeStreamProducer, error) {
	const op = "NewChangeStreamProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return ChangeStreamProducer{}, opErr(err, op)
		}
	}

	opPrefix := "ChangeStreamProducer"
	return ChangeStreamProducer{
		producer: producer{opPrefix: opPrefix, cl: options.cl},
		topics:   options.topics,
		opPrefix: opPrefix,
	}, nil
}

func (p ChangeStreamProducer) Close() {
	p.producer.close()
}

func (p ChangeStreamProducer) PublishInventoryModified(
	ctx context.Context, v domain.Product,
) error {
	const op = "PublishInventoryModified"

	b, err := router.MarshalInventoryModified(v)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return p.publish(ctx, op, p.topics.inventory, v.ProductID, b)
}

func (p ChangeStreamProducer) PublishSelectionInserted(
	ctx context.Context, v domain.PurchaseSelection,
) error {
	const op = "PublishSelectionInserted"

	b, err := router.MarshalSelectionInserted(v)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return p.publish(ctx, op, p.topics.selections, v.CustomerID, b)
}

func (p ChangeStreamProducer) publish(
	ctx context.Context, op, topic, key string, value []byte,
) error {
	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := p.producer.produce(ctx, r); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}
