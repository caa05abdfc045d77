// Package pipeline wires the detector, prompt builder, provider client,
// metrics tracker, and audit logger into the request path: screen first,
// generate only if clean, record everything.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/promptgate-ai/promptgate/pkg/audit"
	"github.com/promptgate-ai/promptgate/pkg/config"
	"github.com/promptgate-ai/promptgate/pkg/detector"
	"github.com/promptgate-ai/promptgate/pkg/metrics"
	"github.com/promptgate-ai/promptgate/pkg/models"
	"github.com/promptgate-ai/promptgate/pkg/prompt"
	"github.com/promptgate-ai/promptgate/pkg/provider"
	"github.com/promptgate-ai/promptgate/pkg/tracker"
)

// Pipeline processes one question end to end. Logging is best-effort:
// a failed audit write is reported but never blocks the response.
type Pipeline struct {
	cfg      *config.Config
	detector *detector.Detector
	client   *provider.Client
	logger   *audit.Logger
	tracker  tracker.Tracker
	pricing  *metrics.PricingTable
}

// New wires a Pipeline. tracker may be nil to skip the usage archive.
func New(cfg *config.Config, det *detector.Detector, client *provider.Client, logger *audit.Logger, tr tracker.Tracker) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		detector: det,
		client:   client,
		logger:   logger,
		tracker:  tr,
		pricing:  metrics.NewPricingTable(cfg.Pricing),
	}
}

// Process screens the question, calls the provider if it is clean, and
// returns either the parsed answer with summary metrics, the adversarial
// sentinel payload, or an error payload for upstream failures.
func (p *Pipeline) Process(ctx context.Context, question, technique string) map[string]any {
	if technique == "" {
		technique = p.cfg.Technique
	}

	if res := p.detector.Detect(question); res.Adversarial {
		p.recordDetection(ctx, question, res)
		return detector.SafeResponse()
	}

	messages := prompt.Build(question, technique)

	mt := metrics.NewTrackerWithPricing(p.cfg.Model, p.pricing)
	mt.Start()

	result, err := p.client.ChatCompletion(ctx, models.ChatCompletionRequest{
		Model:          p.cfg.Model,
		Messages:       messages,
		Temperature:    &p.cfg.Temperature,
		MaxTokens:      &p.cfg.MaxTokens,
		ResponseFormat: &models.ResponseFormat{Type: "json_object"},
	})
	mt.Stop()

	if err != nil {
		p.recordFailure(ctx, question, technique, mt, err)
		return map[string]any{
			"error":   "API call failed: " + err.Error(),
			"metrics": mt.Summary(),
		}
	}

	mt.SetTokenUsage(result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)

	answer := parseAnswer(result.Text)
	answer["metrics"] = mt.Summary()

	if logErr := p.logger.LogTracker(mt, technique, true); logErr != nil {
		log.Printf("metrics log write failed: %v", logErr)
	}
	p.recordUsage(ctx, mt, technique, true)

	return answer
}

// parseAnswer decodes the provider's text as a JSON object, wrapping
// plain text as {"answer": text} rather than rejecting it.
func parseAnswer(text string) map[string]any {
	var answer map[string]any
	if err := json.Unmarshal([]byte(text), &answer); err != nil || answer == nil {
		return map[string]any{"answer": text}
	}
	return answer
}

func (p *Pipeline) recordDetection(ctx context.Context, question string, res models.DetectionResult) {
	descriptions := res.Descriptions()
	if err := p.logger.LogAdversarial(question, descriptions); err != nil {
		log.Printf("adversarial log write failed: %v", err)
	}
	if p.tracker != nil {
		ev := models.AdversarialEvent{
			Question:     question,
			Patterns:     strings.Join(descriptions, " | "),
			PatternCount: len(descriptions),
			CreatedAt:    time.Now().UTC(),
		}
		if err := p.tracker.RecordAdversarial(ctx, ev); err != nil {
			log.Printf("adversarial archive write failed: %v", err)
		}
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, question, technique string, mt *metrics.Tracker, err error) {
	if logErr := p.logger.LogError(errorType(err), err.Error(), p.cfg.Model, question, ""); logErr != nil {
		log.Printf("error log write failed: %v", logErr)
	}
	if logErr := p.logger.LogTracker(mt, technique, false); logErr != nil {
		log.Printf("metrics log write failed: %v", logErr)
	}
	p.recordUsage(ctx, mt, technique, false)
}

func (p *Pipeline) recordUsage(ctx context.Context, mt *metrics.Tracker, technique string, success bool) {
	if p.tracker == nil {
		return
	}
	rec := models.UsageRecord{
		Model:            mt.Model(),
		Technique:        technique,
		PromptTokens:     mt.PromptTokens(),
		CompletionTokens: mt.CompletionTokens(),
		TotalTokens:      mt.TotalTokens(),
		LatencyMs:        mt.LatencyMs(),
		CostUSD:          mt.Cost(),
		Success:          success,
		CreatedAt:        time.Now().UTC(),
	}
	if err := p.tracker.Record(ctx, rec); err != nil {
		log.Printf("usage archive write failed: %v", err)
	}
}

// errorType extracts the stable tag from a provider error, or falls back
// to a generic tag for anything else.
func errorType(err error) string {
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.Type
	}
	return "request_error"
}
