package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/k11v/emload/internal/amqputil"
)

// Worker consumes compile jobs one at a time. It reconnects with backoff
// whenever the connection or the channel is lost.
type Worker struct {
	ConnectionString string                       // required
	Queue            *amqputil.QueueDeclareParams // required
	Handler          *Handler                     // required
	Logger           *slog.Logger                 // default: slog.Default()
}

// Run consumes until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retries := 0
	for {
		consumeErr := w.consume(ctx, logger, &retries)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("didn't consume", "error", consumeErr)

		retries++
		select {
		case <-time.After(retryWaitDuration(retries - 1)):
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Info("retrying", "retries", retries)
	}
}

func (w *Worker) consume(ctx context.Context, logger *slog.Logger, retries *int) error {
	conn, err := amqp091.Dial(w.ConnectionString)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := w.Queue.Declare(ch)
	if err != nil {
		return err
	}

	if err = ch.Qos(1, 0, false); err != nil {
		return err
	}

	messages, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	logger.Info("starting consuming", "queue", q.Name)
	for {
		select {
		case m, ok := <-messages:
			if !ok {
				return errors.New("delivery channel is closed")
			}
			w.handle(ctx, logger, m)
			if *retries > 0 && !ch.IsClosed() {
				logger.Info("recovered", "retries", *retries)
				*retries = 0
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) handle(ctx context.Context, logger *slog.Logger, m amqp091.Delivery) {
	logger = logger.With("message_id", m.MessageId, "delivery_tag", m.DeliveryTag)
	logger.Info("received message")

	if err := w.Handler.Handle(ctx, m.Body, m.Redelivered); err != nil {
		logger.Error("didn't handle message", "error", err)
		if nackErr := m.Nack(false, false); nackErr != nil {
			logger.Error("didn't nack message", "error", nackErr)
		}
		return
	}

	if err := m.Ack(false); err != nil {
		logger.Error("didn't ack message", "error", err)
		return
	}
	logger.Info("handled message")
}

// retryWaitDuration calculates the wait duration for a retry.
// It is calculated using exponential backoff with jitter.
// It grows with each retry and stops growing after thirteenth retry
// where it is chosen from the the interval (32.4s, 97.4s).
// The first retry number is 0, the thirteenth is 12.
func retryWaitDuration(retry int) time.Duration {
	n := min(max(retry, 0), 12)
	second := int(time.Second)

	// start with 0.5s
	duration := second / 2

	// multiply by 1.5 to the power of n
	for i := 0; i < n; i++ {
		duration /= 2
		duration *= 3
	}

	// add or subtract up to 50%
	jitter := rand.Intn(duration) - duration/2
	duration += jitter

	return time.Duration(duration)
}
