package service

import (
	"context"

	"github.com/rs/zerolog"

	"medscribe/dto"
)

// Dispatcher hands a processing message to the background runner. The
// queue-backed implementation lives in pkg/rabbitmq; this in-process
// variant serves deployments without a broker.
type Dispatcher interface {
	Dispatch(ctx context.Context, message dto.ProcessMessage) error
}

type goDispatcher struct {
	pipeline PipelineService
}

// NewGoDispatcher runs the pipeline on a fresh goroutine. The new run
// detaches from the request context so the response can return while
// processing continues.
func NewGoDispatcher(pipeline PipelineService) Dispatcher {
	return &goDispatcher{pipeline: pipeline}
}

func (d *goDispatcher) Dispatch(ctx context.Context, message dto.ProcessMessage) error {
	bg := zerolog.Ctx(ctx).With().Str("consultation_id", message.ConsultationId.String()).Logger().WithContext(context.Background())
	go func() {
		if err := d.pipeline.Process(bg, message); err != nil {
			zerolog.Ctx(bg).Error().Err(err).Msg("background processing error")
		}
	}()
	return nil
}
