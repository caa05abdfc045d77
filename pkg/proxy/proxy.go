// Package proxy runs PromptGate as an HTTP gate in front of an
// OpenAI-compatible provider: every chat completion request is screened
// before it is forwarded, and every outcome lands in the audit trail.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/promptgate-ai/promptgate/pkg/audit"
	"github.com/promptgate-ai/promptgate/pkg/config"
	"github.com/promptgate-ai/promptgate/pkg/detector"
	"github.com/promptgate-ai/promptgate/pkg/metrics"
	"github.com/promptgate-ai/promptgate/pkg/models"
	"github.com/promptgate-ai/promptgate/pkg/tracker"
)

// Server is the PromptGate screening proxy.
type Server struct {
	cfg      *config.Config
	detector *detector.Detector
	logger   *audit.Logger
	tracker  tracker.Tracker
	pricing  *metrics.PricingTable
	mux      *http.ServeMux
}

// New creates a proxy Server wired with all dependencies. tr may be nil
// to skip the usage archive.
func New(cfg *config.Config, det *detector.Detector, logger *audit.Logger, tr tracker.Tracker) *Server {
	s := &Server{
		cfg:      cfg,
		detector: det,
		logger:   logger,
		tracker:  tr,
		pricing:  metrics.NewPricingTable(cfg.Pricing),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the proxy server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("promptgate proxy listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req models.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}

	// Screen user-authored content only; system and assistant turns are
	// part of the caller's own scaffolding.
	userText := collectUserContent(req.Messages)
	if res := s.detector.Detect(userText); res.Adversarial {
		s.recordDetection(r.Context(), userText, res)
		writeJSON(w, http.StatusBadRequest, detector.SafeResponse())
		return
	}

	mt := metrics.NewTrackerWithPricing(model, s.pricing)
	mt.Start()

	result, err := s.forward(r.Context(), body)
	mt.Stop()

	if err != nil {
		if logErr := s.logger.LogError("upstream_error", err.Error(), model, userText, ""); logErr != nil {
			log.Printf("error log write failed: %v", logErr)
		}
		if logErr := s.logger.LogTracker(mt, "proxy", false); logErr != nil {
			log.Printf("metrics log write failed: %v", logErr)
		}
		s.recordUsage(r.Context(), mt, false)
		writeJSONError(w, http.StatusBadGateway, "upstream request failed")
		return
	}

	var completion models.ChatCompletionResponse
	if jsonErr := json.Unmarshal(result.body, &completion); jsonErr == nil && completion.Usage != nil {
		mt.SetTokenUsage(completion.Usage.PromptTokens, completion.Usage.CompletionTokens, completion.Usage.TotalTokens)
	}

	if logErr := s.logger.LogTracker(mt, "proxy", result.statusCode < 400); logErr != nil {
		log.Printf("metrics log write failed: %v", logErr)
	}
	s.recordUsage(r.Context(), mt, result.statusCode < 400)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	w.Write(result.body)
}

// upstreamResult holds the response from the upstream provider.
type upstreamResult struct {
	statusCode int
	body       []byte
}

// forward relays the raw request body to the configured provider.
func (s *Server) forward(ctx context.Context, body []byte) (*upstreamResult, error) {
	target, err := url.Parse(s.cfg.Provider.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String()+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Provider.APIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &upstreamResult{statusCode: resp.StatusCode, body: respBody}, nil
}

func (s *Server) recordDetection(ctx context.Context, userText string, res models.DetectionResult) {
	descriptions := res.Descriptions()
	if err := s.logger.LogAdversarial(userText, descriptions); err != nil {
		log.Printf("adversarial log write failed: %v", err)
	}
	if s.tracker != nil {
		ev := models.AdversarialEvent{
			Question:     userText,
			Patterns:     strings.Join(descriptions, " | "),
			PatternCount: len(descriptions),
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.tracker.RecordAdversarial(ctx, ev); err != nil {
			log.Printf("adversarial archive write failed: %v", err)
		}
	}
}

func (s *Server) recordUsage(ctx context.Context, mt *metrics.Tracker, success bool) {
	if s.tracker == nil {
		return
	}
	rec := models.UsageRecord{
		Model:            mt.Model(),
		Technique:        "proxy",
		PromptTokens:     mt.PromptTokens(),
		CompletionTokens: mt.CompletionTokens(),
		TotalTokens:      mt.TotalTokens(),
		LatencyMs:        mt.LatencyMs(),
		CostUSD:          mt.Cost(),
		Success:          success,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.tracker.Record(ctx, rec); err != nil {
		log.Printf("usage archive write failed: %v", err)
	}
}

func collectUserContent(messages []models.ChatMessage) string {
	var parts []string
	for _, m := range messages {
		if m.Role == "user" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
