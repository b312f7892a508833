// Package httpapi implements the request front-end: the HTTP surface
// described by SPEC_FULL.md §6, built on net/http.ServeMux.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/store"
	"github.com/AiSchool-Admin/quran-miracles/internal/apperrors"
	"github.com/AiSchool-Admin/quran-miracles/internal/eventstream"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/orchestrator"
	"github.com/AiSchool-Admin/quran-miracles/internal/sse"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// Server wires the orchestrator facade and the discovery store into the
// HTTP surface.
type Server struct {
	mux          *http.ServeMux
	orchestrator *orchestrator.Orchestrator
	store        store.DiscoveryStore
	logger       logging.Logger
	sseKeepAlive time.Duration
}

// NewServer builds the HTTP surface. keepAlive is the idle threshold
// before a keep-alive comment is sent on a streaming connection.
func NewServer(o *orchestrator.Orchestrator, discoveryStore store.DiscoveryStore, logger logging.Logger, keepAlive time.Duration) *Server {
	if logger == nil {
		logger = logging.NoOp{}
	}
	s := &Server{
		mux:          http.NewServeMux(),
		orchestrator: o,
		store:        discoveryStore,
		logger:       logger,
		sseKeepAlive: keepAlive,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/discovery/stream", s.handleStream)
	s.mux.HandleFunc("/api/discovery/explore", s.handleExplore)
	s.mux.HandleFunc("/api/discovery/discoveries", s.handleDiscoveries)
	s.mux.HandleFunc("/health", s.handleHealth)
}

type discoveryRequest struct {
	Query       string   `json:"query"`
	Disciplines []string `json:"disciplines,omitempty"`
	Mode        string   `json:"mode,omitempty"`
}

func decodeRequest(r *http.Request) (state.State, error) {
	var req discoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return state.State{}, apperrors.Wrap(apperrors.KindInvalidInput, "httpapi", err)
	}
	if req.Query == "" {
		return state.State{}, apperrors.New(apperrors.KindInvalidInput, "query is required")
	}
	return state.State{
		Query:       req.Query,
		Disciplines: req.Disciplines,
		Mode:        state.Mode(req.Mode),
	}, nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	initial, err := decodeRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID := uuid.NewString()
	ctx := logging.WithSessionID(r.Context(), sessionID)

	events, err := s.orchestrator.Stream(ctx, initial, sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, canFlush := w.(http.Flusher)
	encoder := sse.NewEncoder()

	keepAlive := s.sseKeepAlive
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, encoder, ev); err != nil {
				s.logger.WarnWithContext(ctx, "sse write failed", map[string]interface{}{"error": err.Error()})
				return
			}
			if canFlush {
				flusher.Flush()
			}
			ticker.Reset(keepAlive)

		case <-ticker.C:
			if _, err := w.Write(sse.KeepAliveComment()); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, encoder *sse.Encoder, ev eventstream.Event) error {
	payload, err := marshalNoEscape(ev.Payload)
	if err != nil {
		return err
	}
	wire, err := encoder.Encode(&sse.Message{Event: ev.Name, Data: payload})
	if err != nil {
		return err
	}
	_, err = w.Write(wire)
	return err
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf jsonBuffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	b := buf.Bytes()
	if len(b) > 0 && b[len(b)-1] == '\n' {
		b = b[:len(b)-1]
	}
	return b, nil
}

// jsonBuffer is the minimal io.Writer json.Encoder needs.
type jsonBuffer struct {
	data []byte
}

func (b *jsonBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *jsonBuffer) Bytes() []byte { return b.data }

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	initial, err := decodeRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID := uuid.NewString()
	ctx := logging.WithSessionID(r.Context(), sessionID)

	final, err := s.orchestrator.Invoke(ctx, initial, sessionID)
	if err != nil && !apperrors.IsCancelled(err) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"session_id":                sessionID,
		"synthesis":                 final.Synthesis,
		"confidence_tier":           final.ConfidenceTier,
		"quality_score":             final.QualityScore,
		"quality_issues":            final.QualityIssues,
		"verses_count":              len(final.Verses),
		"science_findings_count":    len(final.ScienceFindings),
		"humanities_findings_count": len(final.HumanitiesFindings),
	}
	if final.DiscoveryID != "" {
		resp["discovery_id"] = final.DiscoveryID
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

func (s *Server) handleDiscoveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tier := state.ConfidenceTier(r.URL.Query().Get("tier"))

	records, err := s.store.ListRecent(r.Context(), tier, 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]interface{}{"discoveries": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
