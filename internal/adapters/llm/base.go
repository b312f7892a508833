package llm

import (
	"net/http"
	"time"

	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
)

const defaultHTTPTimeout = 30 * time.Second

// baseClient holds the machinery shared by every hand-rolled HTTP provider
// client (Anthropic, OpenAI): the HTTP client and logger. Grounded on the
// teacher's ai/providers.BaseClient, trimmed to what this adapter layer
// actually needs — tracing spans are applied at the stage/orchestrator
// level (internal/telemetry) rather than duplicated per provider.
type baseClient struct {
	httpClient *http.Client
	logger     logging.Logger
}

func newBaseClient(logger logging.Logger) baseClient {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return baseClient{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}
