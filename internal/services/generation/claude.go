// -----------------------------------------------------------------------
// Claude Provider - Anthropic API calls for text and document generation
// -----------------------------------------------------------------------

package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
)

// claudeGenerate makes a single Claude text completion call. Retries are
// handled by the caller; this function reports the raw API error.
func (s *Service) claudeGenerate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	client, err := s.getClaudeClient(ctx)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.claudeConfig.Model),
		MaxTokens: s.claudeMaxTokens(opts.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	s.applyClaudeOptions(&params, opts)

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	return claudeResponseText(resp)
}

// claudeGenerateDocument makes a single Claude call with the PDF attached
// as a base64 document block ahead of the prompt text.
func (s *Service) claudeGenerateDocument(ctx context.Context, document []byte, systemPrompt, prompt string) (string, error) {
	client, err := s.getClaudeClient(ctx)
	if err != nil {
		return "", err
	}

	documentBlock := anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
		Data: base64.StdEncoding.EncodeToString(document),
	})

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.claudeConfig.Model),
		MaxTokens: s.claudeMaxTokens(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(documentBlock, anthropic.NewTextBlock(prompt)),
		},
	}
	s.applyClaudeOptions(&params, interfaces.GenerateOptions{SystemPrompt: systemPrompt})

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	return claudeResponseText(resp)
}

// applyClaudeOptions sets temperature, system prompt, and stop sequences
// on the request. A zero temperature means use the configured default.
func (s *Service) applyClaudeOptions(params *anthropic.MessageNewParams, opts interfaces.GenerateOptions) {
	temp := opts.Temperature
	if temp <= 0 {
		temp = s.claudeConfig.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: opts.SystemPrompt},
		}
	}

	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}
}

// claudeMaxTokens resolves the per-call token cap against the config.
func (s *Service) claudeMaxTokens(requested int) int64 {
	if requested > 0 {
		return int64(requested)
	}
	return int64(s.claudeConfig.MaxTokens)
}

// claudeResponseText concatenates the text blocks of a response.
func claudeResponseText(resp *anthropic.Message) (string, error) {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}
	return text.String(), nil
}
