package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"medscribe/config"
	"medscribe/dto"
)

// Publisher submits processing messages to the audio queue. It is the
// queue-backed Dispatcher used when a broker is configured.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(ExchangeName, cfg.Kind, true, false, false, false, nil); err != nil {
		return nil, err
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Dispatch(ctx context.Context, message dto.ProcessMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, ExchangeName, RoutingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("consultation_id", message.ConsultationId.String()).Msg("failed to publish processing message")
		return err
	}

	zerolog.Ctx(ctx).Info().Str("consultation_id", message.ConsultationId.String()).Msg("processing message published")
	return nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
