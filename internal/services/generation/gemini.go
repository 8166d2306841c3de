// -----------------------------------------------------------------------
// Gemini Provider - Google Gemini API calls for text and document generation
// -----------------------------------------------------------------------

package generation

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
)

// geminiGenerate makes a single Gemini text completion call. Retries are
// handled by the caller; this function reports the raw API error.
func (s *Service) geminiGenerate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	client, err := s.getGeminiClient(ctx)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, s.geminiConfig.Model, contents, s.geminiConfigFor(opts))
	if err != nil {
		return "", err
	}

	return geminiResponseText(resp)
}

// geminiGenerateDocument makes a single Gemini call with the PDF attached
// as an inline data part ahead of the prompt text.
func (s *Service) geminiGenerateDocument(ctx context.Context, document []byte, systemPrompt, prompt string) (string, error) {
	client, err := s.getGeminiClient(ctx)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromBytes(document, "application/pdf"),
				genai.NewPartFromText(prompt),
			},
		},
	}

	config := s.geminiConfigFor(interfaces.GenerateOptions{SystemPrompt: systemPrompt})

	resp, err := client.Models.GenerateContent(ctx, s.geminiConfig.Model, contents, config)
	if err != nil {
		return "", err
	}

	return geminiResponseText(resp)
}

// geminiConfigFor builds the generation config from call options. A zero
// temperature means use the configured default.
func (s *Service) geminiConfigFor(opts interfaces.GenerateOptions) *genai.GenerateContentConfig {
	temp := opts.Temperature
	if temp <= 0 {
		temp = s.geminiConfig.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}

	if opts.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.geminiConfig.MaxTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}

	if len(opts.StopSequences) > 0 {
		config.StopSequences = opts.StopSequences
	}

	return config
}

// geminiResponseText extracts the concatenated text of a response.
func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}
	return text, nil
}
