package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

type ConsumerOpt func(*consumerOpts) error

func ConsumerClientOpt(
	seedBrokers []string, group string, topics []string, extra ...kgo.Opt,
) ConsumerOpt {
	return func(co *consumerOpts) error {
		kopts := []kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.ConsumeTopics(topics...),
			kgo.ConsumerGroup(group),
			kgo.DisableAutoCommit(),
		}
		cl, err := kgo.NewClient(append(kopts, extra...)...)
		if err != nil {
			return err
		}
		co.cl = cl
		return nil
	}
}

// ConsumerCustomClientOpt uses an already built client.
func ConsumerCustomClientOpt(cl ConsumerClient) ConsumerOpt {
	return func(co *consumerOpts) error {
		if cl == nil {
			return errors.New("consumer client is nil")
		}
		co.cl = cl
		return nil
	}
}

// TriggerRoutesOpt maps every consumed topic to the trigger kind its
// records carry.
func TriggerRoutesOpt(routes map[string]domain.TriggerKind) ConsumerOpt {
	return func(co *consumerOpts) error {
		if len(routes) == 0 {
			return errors.New("trigger routes are empty")
		}
		co.routes = routes
		return nil
	}
}

func TriggerHandlerOpt(h port.TriggerHandler) ConsumerOpt {
	return func(co *consumerOpts) error {
		if h == nil {
			return errors.New("trigger handler is nil")
		}
		co.handler = h
		return nil
	}
}

type consumerOpts struct {
	cl      ConsumerClient
	routes  map[string]domain.TriggerKind
	handler port.TriggerHandler
}

func (co *consumerOpts) apply(opts ...ConsumerOpt) error {
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}
	return nil
}

// A consumer is used for composition.
//
// Fetching records from kafka broker and closing underlying [kgo.Client].
type consumerParent interface {
	processFetches(context.Context, kgo.Fetches) error
}

type consumer struct {
	opPrefix      string
	parent        consumerParent
	cl            ConsumerClient
	slowDownTimer *time.Timer
}

func (c consumer) run(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := c.consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				log.Error("failed to consume", "err", err)
				c.slowDown(ctx)
			}
		}
	}
}

func (c consumer) consume(ctx context.Context) error {
	const op = "consume"

	fetches, err := c.pollFetches(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if fetches.Empty() {
		return nil
	}

	err = c.parent.processFetches(ctx, fetches)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.commit(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) pollFetches(ctx context.Context) (kgo.Fetches, error) {
	const op = "pollFetches"

	fetches := c.cl.PollFetches(ctx)
	if err := fetches.Err0(); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	err := c.handleFetchesErrs(fetches)
	if err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	return fetches, nil
}

func (c consumer) handleFetchesErrs(fetches kgo.Fetches) error {
	var errsMessages []string
	fetches.EachError(func(t string, p int32, err error) {
		if err != nil {
			errMsg := fmt.Sprintf(
				"topic %q partition %d: %q", t, p, err,
			)
			errsMessages = append(errsMessages, errMsg)
		}
	})

	if len(errsMessages) != 0 {
		return errors.New(strings.Join(errsMessages, "; "))
	}
	return nil
}

func (c consumer) slowDown(ctx context.Context) {
	c.slowDownTimer.Reset(1 * time.Second)
	select {
	case <-c.slowDownTimer.C:
	case <-ctx.Done():
	}
}

func (c consumer) commit(ctx context.Context) error {
	const op = "commit"

	err := ctx.Err()
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.cl.CommitUncommittedOffsets(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) close() {
	const op = "close"
	log := slog.With("op", makeOp(c.opPrefix, op))

	c.slowDownTimer.Stop()

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

// A TriggerConsumer hands every fetched record to the trigger handler
// as a payload of the kind routed from its topic.
//
// A failed trigger is reported and committed, it is never redelivered.
type TriggerConsumer struct {
	opPrefix string
	consumer consumer
	routes   map[string]domain.TriggerKind
	handler  port.TriggerHandler
}

func NewTriggerConsumer(opts ...ConsumerOpt) (TriggerConsumer, error) {
	const op = "NewTriggerConsumer"

	if len(opts) != 3 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return TriggerConsumer{}, opErr(err, op)
	}

	opPrefix := "TriggerConsumer"

	tc := TriggerConsumer{
		opPrefix: opPrefix,
		routes:   options.routes,
		handler:  options.handler,
	}
	tc.consumer = consumer{
		opPrefix:      opPrefix,
		parent:        tc,
		cl:            options.cl,
		slowDownTimer: time.NewTimer(0),
	}
	return tc, nil
}

func (c TriggerConsumer) Run(ctx context.Context) {
	c.consumer.run(ctx)
}

func (c TriggerConsumer) Close() {
	c.consumer.close()
}

func (c TriggerConsumer) processFetches(
	ctx context.Context, fetches kgo.Fetches,
) error {
	const op = "processFetches"

	fetches.EachRecord(func(r *kgo.Record) {
		c.dispatch(ctx, r)
	})

	if err := ctx.Err(); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c TriggerConsumer) dispatch(ctx context.Context, r *kgo.Record) {
	const op = "dispatch"
	log := slog.With(
		"op", makeOp(c.opPrefix, op),
		"topic", r.Topic,
		"partition", r.Partition,
		"offset", r.Offset,
	)

	kind, ok := c.routes[r.Topic]
	if !ok {
		log.Error("no trigger kind for topic")
		return
	}

	resp := c.handler.Handle(ctx, kind, r.Value)
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		log.Error("trigger failed", "status", resp.StatusCode, "body", resp.Body)
	case resp.StatusCode >= http.StatusBadRequest:
		log.Warn("trigger rejected", "status", resp.StatusCode, "body", resp.Body)
	default:
		log.Debug("trigger handled", "status", resp.StatusCode)
	}
}
