package kafka

import (
	"context"
	"encoding/json"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/stretchr/testify/mock"
	"github.com/twmb/franz-go/pkg/kgo"
)

type producerClientMock struct {
	mock.Mock
}

func (m *producerClientMock) ProduceSync(
	ctx context.Context, rs ...*kgo.Record,
) kgo.ProduceResults {
	args := m.Called(ctx, rs)
	return args.Get(0).(kgo.ProduceResults)
}

func (m *producerClientMock) Close() {
	m.Called()
}

type consumerClientMock struct {
	mock.Mock
}

func (m *consumerClientMock) PollFetches(ctx context.Context) kgo.Fetches {
	args := m.Called(ctx)
	return args.Get(0).(kgo.Fetches)
}

func (m *consumerClientMock) CommitUncommittedOffsets(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *consumerClientMock) Close() {
	m.Called()
}

type handlerMock struct {
	mock.Mock
}

func (m *handlerMock) Handle(
	ctx context.Context, kind domain.TriggerKind, payload []byte,
) domain.Response {
	args := m.Called(ctx, kind, payload)
	return args.Get(0).(domain.Response)
}

type getterMock struct {
	mock.Mock
}

func (m *getterMock) Get(key string) (any, error) {
	args := m.Called(key)
	return args.Get(0), args.Error(1)
}

// jsonSerde stands in for the registry serde.
type jsonSerde struct{}

func (jsonSerde) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonSerde) Decode(b []byte, v any) error { return json.Unmarshal(b, v) }

func fetchesOf(topic string, rs ...*kgo.Record) kgo.Fetches {
	for _, r := range rs {
		r.Topic = topic
	}
	return kgo.Fetches{{
		Topics: []kgo.FetchTopic{{
			Topic:      topic,
			Partitions: []kgo.FetchPartition{{Partition: 0, Records: rs}},
		}},
	}}
}
