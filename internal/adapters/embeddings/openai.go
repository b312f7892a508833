package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AiSchool-Admin/quran-miracles/internal/apperrors"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "text-embedding-3-small"
	defaultHTTPTimeout = 30 * time.Second
)

// OpenAI is the production Embeddings adapter. Hand-rolled against
// net/http rather than an SDK package, matching the teacher's own
// OpenAIClient in ai/client.go.
type OpenAI struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     logging.Logger
}

// NewOpenAI builds an OpenAI embeddings client. logger may be nil.
func NewOpenAI(apiKey string, logger logging.Logger) *OpenAI {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &OpenAI{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

func (c *OpenAI) Embed(ctx context.Context, query string) ([]float64, error) {
	if c.apiKey == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "OpenAI API key not configured")
	}

	reqBody := map[string]interface{}{
		"model": c.model,
		"input": query,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "embeddings.openai", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "embeddings.openai", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "embeddings.openai", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "embeddings.openai", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnWithContext(ctx, "openai embeddings error response", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return nil, apperrors.New(apperrors.KindTransient, fmt.Sprintf("openai embeddings error (status %d)", resp.StatusCode))
	}

	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "embeddings.openai", err)
	}
	if len(parsed.Data) == 0 {
		return nil, apperrors.New(apperrors.KindTransient, "no embedding returned from OpenAI")
	}
	return parsed.Data[0].Embedding, nil
}
