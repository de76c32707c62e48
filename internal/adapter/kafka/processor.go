package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/dynamic-pricing/pkg/schema"
)

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p *processor) run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go p.runProc(ctx, stopFn)

	log.Info("preparing...")
	p.waitForReady(ctx)
	log.Info("running")
}

func (p *processor) runProc(ctx context.Context, stopFn context.CancelFunc) {
	const op = "runProc"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer stopFn()

	err := p.gp.Run(ctx)
	if err != nil {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("fall down while preparing", "err", err)
	}
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A priceChangedCodec used for serde [schema.PriceChangedV1]
type priceChangedCodec struct {
	serde Serde
}

func newPriceChangedCodec(s Serde) priceChangedCodec {
	return priceChangedCodec{s}
}

func (c priceChangedCodec) Encode(v any) ([]byte, error) {
	const op = "priceChangedCodec.Encode"
	if _, ok := v.(schema.PriceChangedV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c priceChangedCodec) Decode(data []byte) (any, error) {
	const op = "priceChangedCodec.Decode"
	var s schema.PriceChangedV1
	err := c.serde.Decode(data, &s)
	if err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A PriceViewProcessor keeps the latest price event of every product
// in its group table.
type PriceViewProcessor struct {
	opPrefix string
	proc     processor
}

func NewPriceViewProc(
	seedBrokers []string,
	inputStream string,
	group string,
	priceChangedSerde Serde,
	opts ...goka.ProcessorOption,
) (*PriceViewProcessor, error) {
	const op = "NewPriceViewProcessor"

	p := PriceViewProcessor{opPrefix: "PriceViewProcessor"}
	codec := newPriceChangedCodec(priceChangedSerde)

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(goka.Stream(inputStream), codec, p.processFn),
		goka.Persist(codec),
	)

	opts = append([]goka.ProcessorOption{withNonlogProcOpt()}, opts...)
	gp, err := goka.NewProcessor(seedBrokers, gg, opts...)
	if err != nil {
		return nil, opErr(err, op)
	}

	p.proc = processor{opPrefix: p.opPrefix, gp: gp}
	return &p, nil
}

func (p *PriceViewProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *PriceViewProcessor) Close() {
	p.proc.close()
}

// processFn ignores events older than the stored one, records of one
// product may be produced by concurrent writers.
func (p *PriceViewProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"

	event, ok := msg.(schema.PriceChangedV1)
	if !ok {
		return
	}
	log := slog.With(
		"op", makeOp(p.opPrefix, op), "productID", event.ProductID,
	)

	if stored, ok := ctx.Value().(schema.PriceChangedV1); ok &&
		stored.OccurredAt > event.OccurredAt {
		log.Debug("stale price event", "eventID", event.EventID)
		return
	}

	ctx.SetValue(event)
	log.Debug(
		"published price updated",
		"eventID", event.EventID,
		"price", event.NewCurrentPrice,
	)
}
