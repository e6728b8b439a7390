package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// safeTranscriber guarantees a usable transcript: when the real provider
// is unconfigured or fails, the fallback answers instead.
type safeTranscriber struct {
	real       Transcriber
	fallback   Transcriber
	configured bool
}

func NewSafeTranscriber(real, fallback Transcriber, configured bool) Transcriber {
	return &safeTranscriber{
		real:       real,
		fallback:   fallback,
		configured: configured,
	}
}

func (s *safeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !s.configured {
		zerolog.Ctx(ctx).Info().Msg("transcription provider not configured, using fallback")
		return s.fallback.Transcribe(ctx, audioPath)
	}

	text, err := s.real.Transcribe(ctx, audioPath)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("transcription failed, falling back")
		return s.fallback.Transcribe(ctx, audioPath)
	}

	return text, nil
}

// safeSummarizer guarantees a usable summary for any non-empty
// transcript. The empty-transcript precondition still fails fast.
type safeSummarizer struct {
	real       Summarizer
	fallback   Summarizer
	configured bool
}

func NewSafeSummarizer(real, fallback Summarizer, configured bool) Summarizer {
	return &safeSummarizer{
		real:       real,
		fallback:   fallback,
		configured: configured,
	}
}

func (s *safeSummarizer) Summarize(ctx context.Context, transcript string) (*MedicalSummary, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	if !s.configured {
		zerolog.Ctx(ctx).Info().Msg("summarization provider not configured, using fallback")
		return s.fallback.Summarize(ctx, transcript)
	}

	summary, err := s.real.Summarize(ctx, transcript)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("summarization failed, falling back")
		return s.fallback.Summarize(ctx, transcript)
	}

	return summary, nil
}
