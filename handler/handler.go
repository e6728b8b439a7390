package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"medscribe/dto"
	"medscribe/service"
)

type ServiceDependencies struct {
	Pipeline service.PipelineService
}

// ProcessAudioHandler feeds queued processing messages to the pipeline.
func ProcessAudioHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var message dto.ProcessMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal processing message")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("consultation_id", message.ConsultationId.String()).
		Str("object", message.ObjectName).
		Msg("received processing message")

	return deps.Pipeline.Process(ctx, message)
}
