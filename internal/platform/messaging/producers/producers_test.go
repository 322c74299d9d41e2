package producers

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

// MockKafkaWriter mocks KafkaWriter
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ KafkaWriter = (*MockKafkaWriter)(nil)

// fakeAdmin fails the first readFailures partition reads
type fakeAdmin struct {
	readFailures int
	partitions   []kafka.Partition
	reads        int
	created      []kafka.TopicConfig
	createErr    error
}

func (f *fakeAdmin) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	f.reads++
	if f.reads <= f.readFailures {
		return nil, errors.New("leader not available")
	}
	return f.partitions, nil
}

func (f *fakeAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	f.created = append(f.created, topics...)
	return f.createErr
}
