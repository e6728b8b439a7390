package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"medscribe/pkg/openai"
)

const summarySystemPrompt = "You are a medical transcription specialist. Extract structured medical information from doctor-patient conversations and return valid JSON only."

const summaryPromptTemplate = `You are a medical assistant analyzing a doctor-patient consultation transcript. Extract key medical information and structure it into a professional medical summary.

TRANSCRIPT:
%s

Please analyze this transcript and return a structured JSON object with the following fields:
- patientName: Extract or infer patient's name if mentioned, otherwise use "Patient"
- age: Extract patient's age if mentioned, otherwise use "Not specified"
- gender: Extract patient's gender if mentioned, otherwise use "Not specified"
- symptoms: Detailed description of patient's symptoms and chief complaint
- history: Relevant medical history mentioned
- examination: Physical examination findings mentioned
- diagnosis: Doctor's diagnosis or assessment
- prescription: Medications or treatments prescribed
- followUp: Follow-up instructions or recommendations

Return ONLY valid JSON, no additional text.`

type gptSummarizer struct {
	client *openai.Client
}

// NewGPTSummarizer extracts the structured summary through the chat
// completion API.
func NewGPTSummarizer(client *openai.Client) Summarizer {
	return &gptSummarizer{client: client}
}

func (s *gptSummarizer) Summarize(ctx context.Context, transcript string) (*MedicalSummary, error) {
	zerolog.Ctx(ctx).Info().Int("transcript_length", len(transcript)).Msg("generating medical summary")

	prompt := fmt.Sprintf(summaryPromptTemplate, transcript)
	content, err := s.client.ChatCompletion(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	summary, err := parseSummary(content)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Msg("medical summary generated")
	return summary, nil
}

// parseSummary decodes the model output. Models occasionally wrap the
// JSON object in prose or code fences, so a strict parse is followed by
// extracting the outermost brace-delimited block.
func parseSummary(content string) (*MedicalSummary, error) {
	content = strings.TrimSpace(content)

	var summary MedicalSummary
	if err := json.Unmarshal([]byte(content), &summary); err == nil {
		return &summary, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &summary); err == nil {
			return &summary, nil
		}
	}

	return nil, fmt.Errorf("failed to parse summary response as JSON")
}
