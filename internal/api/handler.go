package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"

	"call-relay/internal/dispatch"
	"call-relay/internal/engine"
	"call-relay/internal/event"
	"call-relay/internal/observability"
)

const maxBodyBytes = 1 << 20

// Decider classifies a normalized call event.
type Decider interface {
	Decide(ev event.NormalizedEvent) engine.Verdict
	Config() engine.FilterConfig
}

// Dispatcher relays an in-scope event downstream.
type Dispatcher interface {
	Dispatch(ctx context.Context, v engine.Verdict, ev event.NormalizedEvent) dispatch.Result
	LogSinkName() string
	AlertSinkNames() []string
}

type WebhookHandler struct {
	Eng     Decider
	Disp    Dispatcher
	Service string
}

func NewWebhookHandler(eng Decider, disp Dispatcher) *WebhookHandler {
	return &WebhookHandler{Eng: eng, Disp: disp, Service: "Ringba Webhook Relay"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *WebhookHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"service":    h.Service,
		"filters":    h.Eng.Config(),
		"logSink":    h.Disp.LogSinkName(),
		"alertSinks": h.Disp.AlertSinkNames(),
	})
}

// Webhook handles one call event. Empty payloads are answered with 200 so
// the provider does not treat a misconfigured webhook as a delivery error.
func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r).With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("webhook handler panicked")
			observability.WebhookOutcomes.WithLabelValues("internal_error").Inc()
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
	}()

	logger.Debug().
		Str("content_type", r.Header.Get("Content-Type")).
		Int64("content_length", r.ContentLength).
		Str("user_agent", r.UserAgent()).
		Msg("webhook request")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn().Err(err).Msg("could not read body")
		h.outcome(w, "malformed", http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	raw, err := event.Decode(body)
	switch {
	case errors.Is(err, event.ErrEncoding):
		logger.Warn().Err(err).Msg("could not decode body")
		h.outcome(w, "malformed", http.StatusBadRequest, map[string]string{"error": "Invalid request encoding"})
		return
	case err != nil:
		logger.Warn().Err(err).Int("bytes", len(body)).Msg("could not parse JSON")
		h.outcome(w, "malformed", http.StatusBadRequest, map[string]string{"error": "Invalid JSON data"})
		return
	case raw == nil:
		logger.Warn().Int("bytes", len(body)).Msg("webhook carried no data; check the provider webhook configuration")
		h.outcome(w, "no_payload", http.StatusOK, h.noPayload())
		return
	}

	ev := event.Normalize(raw)
	v := h.Eng.Decide(ev)
	logger = logger.With().
		Str("campaign", ev.CampaignName).
		Str("target", ev.TargetName).
		Str("caller_id", ev.CallerID).
		Logger()

	if !v.InScope {
		observability.ObserveVerdict(false, v.Reason)
		logger.Info().Str("reason", v.Reason).Msg("call filtered out")
		h.outcome(w, "filtered", http.StatusOK, map[string]string{
			"status":  "filtered",
			"message": "Call does not match filter criteria",
		})
		return
	}
	observability.ObserveVerdict(true, string(v.Label))
	logger.Info().Str("label", string(v.Label)).Str("rule", v.Reason).Msg("call in scope")

	res := h.Disp.Dispatch(r.Context(), v, ev)
	if !res.Logged {
		logger.Error().Err(res.LogErr).Msg("failed to update call log")
		h.outcome(w, "log_failed", http.StatusInternalServerError, map[string]string{"error": "Failed to update call log"})
		return
	}

	h.outcome(w, "success", http.StatusOK, map[string]string{
		"status":         "success",
		"callerId":       ev.CallerID,
		"time":           res.Time,
		"classification": string(v.Label),
	})
}

func (h *WebhookHandler) outcome(w http.ResponseWriter, outcome string, status int, body any) {
	observability.WebhookOutcomes.WithLabelValues(outcome).Inc()
	writeJSON(w, status, body)
}

func (h *WebhookHandler) noPayload() map[string]any {
	cfg := h.Eng.Config()
	return map[string]any{
		"status":  "received",
		"message": "Empty request received - check webhook configuration",
		"expected_format": map[string]string{
			"campaignName":          cfg.CampaignName,
			"targetName":            cfg.TargetName,
			"callerId":              "example_caller_id",
			"callLengthFromConnect": "0",
			"endCallSource":         "System",
		},
	}
}
