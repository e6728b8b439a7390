package service

import (
	"context"

	"github.com/rs/zerolog"

	"medscribe/pkg/openai"
)

type whisperTranscriber struct {
	client *openai.Client
}

// NewWhisperTranscriber transcribes audio through the speech-to-text API.
func NewWhisperTranscriber(client *openai.Client) Transcriber {
	return &whisperTranscriber{client: client}
}

func (t *whisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	zerolog.Ctx(ctx).Info().Str("audio_path", audioPath).Msg("starting whisper transcription")
	text, err := t.client.Transcribe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	zerolog.Ctx(ctx).Info().Int("transcript_length", len(text)).Msg("whisper transcription completed")
	return text, nil
}
