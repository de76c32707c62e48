package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/lovoo/goka"
	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/pkg/retry"
	"github.com/niksmo/dynamic-pricing/pkg/schema"
	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

// pingPolicy waits for brokers starting alongside the service.
var pingPolicy = retry.Policy{
	Attempts: 5,
	Backoff:  retry.Exponential(500*time.Millisecond, 5*time.Second),
	OnRetry: func(attempt int, wait time.Duration, err error) {
		slog.Warn("brokers are not ready",
			"op", "kafka.ping", "attempt", attempt, "wait", wait, "err", err)
	},
}

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
	topics  changeStreamTopics
}

// ProducerClientOpt connects a new client to seedBrokers. An empty topic
// leaves the destination to each record.
func ProducerClientOpt(
	ctx context.Context, seedBrokers []string, topic string, extra ...kgo.Opt,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kopts := []kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.RequiredAcks(kgo.AllISRAcks()),
			kgo.AllowAutoTopicCreation(),
		}
		kopts = append(kopts, extra...)
		if topic != "" {
			kopts = append(kopts,
				kgo.DefaultProduceTopicAlways(),
				kgo.DefaultProduceTopic(topic),
			)
		}

		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}

		if err := retry.Do(ctx, pingPolicy, cl.Ping); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

// ProducerCustomClientOpt uses an already built client.
func ProducerCustomClientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("producer client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

func ChangeStreamTopicsOpt(inventory, selections string) ProducerOpt {
	return func(opts *producerOpts) error {
		if inventory == "" || selections == "" {
			return errors.New("change stream topic is empty string")
		}
		opts.topics = changeStreamTopics{
			inventory:  inventory,
			selections: selections,
		}
		return nil
	}
}

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

// TLSOpts returns the client options dialing brokers over tlsCfg,
// none for a nil config.
func TLSOpts(tlsCfg *tls.Config) []kgo.Opt {
	if tlsCfg == nil {
		return nil
	}
	return []kgo.Opt{kgo.DialTLSConfig(tlsCfg)}
}

// ApplyGokaTLS makes every goka processor and view created afterwards
// dial brokers over tlsCfg.
func ApplyGokaTLS(tlsCfg *tls.Config) {
	if tlsCfg == nil {
		return
	}
	cfg := goka.DefaultConfig()
	cfg.Net.TLS.Enable = true
	cfg.Net.TLS.Config = tlsCfg
	goka.ReplaceGlobalConfig(cfg)
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func priceChangedToSchemaV1(v domain.PriceChanged) (s schema.PriceChangedV1) {
	s.EventID = v.EventID
	s.ProductID = v.ProductID
	s.CompetitorID = v.CompetitorID
	s.PreviousPrice = v.PreviousPrice.String()
	s.NewCurrentPrice = v.NewPrice.String()
	s.Source = string(v.Source)
	s.OccurredAt = v.OccurredAtMs
	return
}

func schemaV1ToPriceChanged(
	s schema.PriceChangedV1,
) (v domain.PriceChanged, err error) {
	previous, err := decimal.NewFromString(s.PreviousPrice)
	if err != nil {
		return v, err
	}
	current, err := decimal.NewFromString(s.NewCurrentPrice)
	if err != nil {
		return v, err
	}

	v.EventID = s.EventID
	v.ProductID = s.ProductID
	v.CompetitorID = s.CompetitorID
	v.PreviousPrice = previous
	v.NewPrice = current
	v.Source = domain.PriceSource(s.Source)
	v.OccurredAtMs = s.OccurredAt
	return v, nil
}
