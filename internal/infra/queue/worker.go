package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type Notifier interface {
	SendStageNotification(to []string, ev entity.PipelineEvent) error
}

// Consumer is the part of *amqp.Channel the worker needs.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel    Consumer
	Notifier   Notifier
	Recipients []string
	Log        *logrus.Entry
}

func NewWorker(ch Consumer, notifier Notifier, recipients []string, log *logrus.Entry) *Worker {
	return &Worker{
		Channel:    ch,
		Notifier:   notifier,
		Recipients: recipients,
		Log:        log.WithField("component", "event_worker"),
	}
}

// Start consumes until ctx is done or the delivery channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.Log.WithField("queue", queueName).Info("worker waiting for events")
	return w.Run(ctx, msgs)
}

func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(d)
		}
	}
}

func (w *Worker) handle(d amqp.Delivery) {
	var ev entity.PipelineEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		w.Log.WithError(err).Warn("malformed event, dead-lettering")
		d.Nack(false, false)
		return
	}

	log := w.Log.WithFields(logrus.Fields{"event": ev.Type, "pipeline": ev.PipelineName})
	if err := w.Notifier.SendStageNotification(w.Recipients, ev); err != nil {
		log.WithError(err).Error("notification failed")
		d.Nack(false, false)
		return
	}

	log.Debug("event processed")
	d.Ack(false)
}
