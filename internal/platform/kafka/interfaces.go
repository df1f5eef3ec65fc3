package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Consumer fetches without committing so offsets only advance once a message
// has been handled. *kafka.Reader satisfies it.
type Consumer interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ Consumer = (*kafka.Reader)(nil)
