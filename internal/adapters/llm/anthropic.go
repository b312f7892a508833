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
	// anthropicBaseURL is the default Anthropic API endpoint.
	anthropicBaseURL = "https://api.anthropic.com/v1"
	// anthropicAPIVersion is the required Anthropic API version header.
	anthropicAPIVersion = "2023-06-01"
	// anthropicDefaultModel matches the model used by the original
	// quality_review and router agents for their LLM fallback paths.
	anthropicDefaultModel = "claude-sonnet-4-5-20250514"
)

// Anthropic is the production LLM adapter for Anthropic's native Messages
// API, hand-rolled against net/http rather than a vendor SDK — matching
// the teacher's own ai/providers/anthropic.Client.
type Anthropic struct {
	baseClient
	apiKey  string
	baseURL string
}

// NewAnthropic builds an Anthropic client. baseURL defaults to
// anthropicBaseURL when empty.
func NewAnthropic(apiKey, baseURL string, logger logging.Logger) *Anthropic {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &Anthropic{
		baseClient: newBaseClient(logger),
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Model   string                  `json:"model"`
}

func (c *Anthropic) buildRequest(prompt string, opts Options, stream bool) anthropicRequest {
	model := opts.Model
	if model == "" {
		model = anthropicDefaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}
	return anthropicRequest{
		Model:       model,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		System:      opts.SystemPrompt,
		Stream:      stream,
	}
}

func (c *Anthropic) Complete(ctx context.Context, prompt string, opts Options) (Response, error) {
	if c.apiKey == "" {
		return Response{}, apperrors.New(apperrors.KindInvalidInput, "anthropic API key not configured")
	}

	reqBody := c.buildRequest(prompt, opts, false)
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindInternal, "llm.anthropic", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindInternal, "llm.anthropic", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindTransient, "llm.anthropic", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindTransient, "llm.anthropic", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnWithContext(ctx, "anthropic error response", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return Response{}, apperrors.New(apperrors.KindTransient, fmt.Sprintf("anthropic API error (status %d)", resp.StatusCode))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindInternal, "llm.anthropic", err)
	}

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return Response{}, apperrors.New(apperrors.KindTransient, "anthropic returned no text content")
	}
	return Response{Content: content.String(), Model: parsed.Model}, nil
}

// anthropicStreamEvent is the subset of Anthropic's SSE event payload this
// adapter cares about: incremental text deltas.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

func (c *Anthropic) StreamComplete(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	if c.apiKey == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "anthropic API key not configured")
	}

	reqBody := c.buildRequest(prompt, opts, true)
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "llm.anthropic", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "llm.anthropic", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "llm.anthropic", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, apperrors.New(apperrors.KindTransient, fmt.Sprintf("anthropic stream error (status %d): %s", resp.StatusCode, string(body)))
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
			var event anthropicStreamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				continue
			}
			if event.Type == "content_block_delta" && event.Delta.Text != "" {
				out <- Chunk{Delta: event.Delta.Text}
			}
			if event.Type == "message_stop" {
				out <- Chunk{Done: true}
				return
			}
		}
	}()

	return out, nil
}
