package worker

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"salesservice/internal/platform/kafka"
	"salesservice/internal/platform/observability"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "salesservice/internal/worker"

type ConsumerService interface {
	Start(ctx context.Context) error
}

// KafkaConsumerService handles one message at a time: it runs the handler
// with retries, dead-letters messages that still fail and commits the
// offset only after the message has been handled or dead-lettered.
type KafkaConsumerService struct {
	consumer       kafka.Consumer
	deadLetter     kafka.Producer
	messageHandler MessageHandler
	observer       ReceiveObserver
	retry          RetryPolicy
	logger         observability.Logger
	deadLettered   metric.Int64Counter
	now            func() time.Time
}

type ConsumerOption func(*KafkaConsumerService)

func WithObserver(observer ReceiveObserver) ConsumerOption {
	return func(c *KafkaConsumerService) { c.observer = observer }
}

func WithRetryPolicy(policy RetryPolicy) ConsumerOption {
	return func(c *KafkaConsumerService) { c.retry = policy }
}

func WithConsumerMeter(meter metric.Meter) ConsumerOption {
	return func(c *KafkaConsumerService) { c.deadLettered = newDeadLetterCounter(meter) }
}

func NewConsumerService(consumer kafka.Consumer, deadLetter kafka.Producer, messageHandler MessageHandler, logger observability.Logger, opts ...ConsumerOption) *KafkaConsumerService {
	c := &KafkaConsumerService{
		consumer:       consumer,
		deadLetter:     deadLetter,
		messageHandler: messageHandler,
		observer:       noopObserver{},
		retry:          DefaultRetryPolicy(),
		logger:         logger,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.deadLettered == nil {
		c.deadLettered = newDeadLetterCounter(otel.Meter(instrumentationName))
	}
	return c
}

func newDeadLetterCounter(meter metric.Meter) metric.Int64Counter {
	counter, err := meter.Int64Counter("reports.dead_lettered",
		metric.WithDescription("Report commands moved to the dead-letter topic"),
		metric.WithUnit("{message}"))
	if err != nil {
		otel.Handle(err)
	}
	return counter
}

func (c *KafkaConsumerService) Start(ctx context.Context) error {
	c.logger.Info("Kafka consumer started. Waiting for report commands...")

	for {
		msg, err := c.consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				c.logger.Info("Context done, exiting Kafka read loop.", zap.Error(err))
				break
			}
			c.logger.Error("❌ Error reading from Kafka", zap.Error(err))
			continue
		}

		c.process(ctx, msg)
	}

	c.logger.Info("Consumer service finished. Shutting down...")
	return nil
}

func (c *KafkaConsumerService) process(ctx context.Context, msg kafkago.Message) {
	started := c.now()
	c.observer.PreReceive(msg)

	attempts, err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.messageHandler.HandleGenerateReport(ctx, msg)
	})

	if err != nil && ctx.Err() != nil {
		// Shutting down mid-retry; leave the offset uncommitted so the message is redelivered.
		c.logger.Warn("Stopped before report command finished", zap.Int64("offset", msg.Offset), zap.Error(err))
		c.observer.ConsumeFault(msg, c.now().Sub(started), err)
		return
	}

	if err != nil {
		if dlqErr := c.publishDeadLetter(ctx, msg, err, attempts); dlqErr != nil {
			c.logger.Error("❌ Failed to dead-letter report command; offset not committed",
				zap.Error(dlqErr),
				zap.Int64("offset", msg.Offset),
			)
			c.observer.ConsumeFault(msg, c.now().Sub(started), err)
			return
		}
	}

	if commitErr := c.consumer.CommitMessages(ctx, msg); commitErr != nil {
		c.logger.Error("❌ Failed to commit offset", zap.Error(commitErr), zap.Int64("offset", msg.Offset))
	}

	if err != nil {
		c.observer.ConsumeFault(msg, c.now().Sub(started), err)
		return
	}
	c.observer.PostConsume(msg, c.now().Sub(started))
}

func (c *KafkaConsumerService) publishDeadLetter(ctx context.Context, msg kafkago.Message, cause error, attempts int) error {
	headers := make([]kafkago.Header, len(msg.Headers))
	copy(headers, msg.Headers)
	headers = kafka.SetHeader(headers, kafka.HeaderError, cause.Error())
	headers = kafka.SetHeader(headers, kafka.HeaderAttempts, strconv.Itoa(attempts))
	headers = kafka.SetHeader(headers, kafka.HeaderSourceTopic, msg.Topic)
	headers = kafka.SetHeader(headers, kafka.HeaderSourceOffset, strconv.FormatInt(msg.Offset, 10))

	dead := kafkago.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := c.deadLetter.WriteMessage(ctx, dead); err != nil {
		return err
	}

	c.deadLettered.Add(ctx, 1, metric.WithAttributes(attribute.Bool("permanent", IsPermanent(cause))))
	c.logger.Warn("📤 Report command dead-lettered",
		zap.Error(cause),
		zap.Int("attempts", attempts),
		zap.String("correlation_id", kafka.Header(msg.Headers, kafka.HeaderCorrelationID)),
		zap.Int64("offset", msg.Offset),
	)
	return nil
}

type noopObserver struct{}

func (noopObserver) PreReceive(kafkago.Message) {}
func (noopObserver) PostConsume(kafkago.Message, time.Duration) {}
func (noopObserver) ConsumeFault(kafkago.Message, time.Duration, error) {}
