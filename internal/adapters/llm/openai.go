package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AiSchool-Admin/quran-miracles/internal/apperrors"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAI is the production LLM adapter for OpenAI's Chat Completions API,
// hand-rolled against net/http, matching the teacher's ai.OpenAIClient.
type OpenAI struct {
	baseClient
	apiKey  string
	baseURL string
}

// NewOpenAI builds an OpenAI chat-completions client.
func NewOpenAI(apiKey string, logger logging.Logger) *OpenAI {
	return &OpenAI{
		baseClient: newBaseClient(logger),
		apiKey:     apiKey,
		baseURL:    openAIBaseURL,
	}
}

func (c *OpenAI) buildMessages(prompt string, opts Options) []map[string]string {
	messages := []map[string]string{}
	if opts.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": opts.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})
	return messages
}

func (c *OpenAI) model(opts Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return openAIDefaultModel
}

func (c *OpenAI) Complete(ctx context.Context, prompt string, opts Options) (Response, error) {
	if c.apiKey == "" {
		return Response{}, apperrors.New(apperrors.KindInvalidInput, "OpenAI API key not configured")
	}

	reqBody := map[string]interface{}{
		"model":       c.model(opts),
		"messages":    c.buildMessages(prompt, opts),
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindInternal, "llm.openai", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindInternal, "llm.openai", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindTransient, "llm.openai", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindTransient, "llm.openai", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnWithContext(ctx, "openai error response", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return Response{}, apperrors.New(apperrors.KindTransient, fmt.Sprintf("OpenAI API error (status %d)", resp.StatusCode))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindInternal, "llm.openai", err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, apperrors.New(apperrors.KindTransient, "no response from OpenAI")
	}
	return Response{Content: parsed.Choices[0].Message.Content, Model: parsed.Model}, nil
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *OpenAI) StreamComplete(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	if c.apiKey == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "OpenAI API key not configured")
	}

	reqBody := map[string]interface{}{
		"model":       c.model(opts),
		"messages":    c.buildMessages(prompt, opts),
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
		"stream":      true,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "llm.openai", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "llm.openai", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "llm.openai", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, apperrors.New(apperrors.KindTransient, fmt.Sprintf("openai stream error (status %d): %s", resp.StatusCode, string(body)))
	}

	out := make(chan Chunk, 8)
	go func() {
		defer resp.Body.Close()
		defer close(out)

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}
			if payload == "[DONE]" {
				out <- Chunk{Done: true}
				return
			}
			var chunk openAIStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				out <- Chunk{Delta: delta}
			}
			if chunk.Choices[0].FinishReason != nil {
				out <- Chunk{Done: true}
				return
			}
		}
	}()

	return out, nil
}
