package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/provider-dispatch/internal/dispatch"
	"github.com/angeloszaimis/provider-dispatch/internal/simulate"
)

const (
	CodeInvalidRequest        = "invalid_request"
	CodeNoProvidersConfigured = "no_providers_configured"
	CodeAllProvidersFailed    = "all_providers_failed"
	CodeDispatchCancelled     = "dispatch_cancelled"
	CodeInternal              = "internal_error"
)

// MaxRequestBytes caps the size of a dispatch request body.
const MaxRequestBytes = 1 << 20

type DispatchHandler struct {
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	providers  simulate.Set
}

type DispatchRequest struct {
	Prompt string `json:"prompt"`
}

func (r DispatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Prompt, validation.Required),
	)
}

type DispatchResponse struct {
	DispatchID string `json:"dispatch_id"`
	Provider   string `json:"provider"`
	Text       string `json:"text"`
}

type ProviderResponse struct {
	Name             string `json:"name"`
	Enabled          bool   `json:"enabled"`
	Priority         int    `json:"priority"`
	MaxRetries       int    `json:"max_retries"`
	BaseDelay        string `json:"base_delay"`
	MaxDelay         string `json:"max_delay"`
	FailureThreshold int    `json:"failure_threshold"`
	OpenTimeout      string `json:"open_timeout"`

	Breaker             string     `json:"breaker,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TotalFailures       int64      `json:"total_failures"`
	TotalSuccesses      int64      `json:"total_successes"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
}

func NewDispatchHandler(logger *slog.Logger, dispatcher *dispatch.Dispatcher, providers simulate.Set) *DispatchHandler {
	return &DispatchHandler{
		logger:     logger,
		dispatcher: dispatcher,
		providers:  providers,
	}
}

func (h *DispatchHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"enabled_providers": h.dispatcher.Registry().Enabled(),
	})
}

// ListProviders returns the providers in dispatch order with their breaker
// counters. Disabled providers are listed without breaker fields.
func (h *DispatchHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	statuses := h.dispatcher.Registry().Statuses()
	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].Config.Priority < statuses[j].Config.Priority
	})

	out := make([]ProviderResponse, 0, len(statuses))
	for _, s := range statuses {
		settings := s.Config.BreakerSettings()
		resp := ProviderResponse{
			Name:             s.Config.Name,
			Enabled:          s.Config.Enabled,
			Priority:         s.Config.Priority,
			MaxRetries:       s.Config.MaxRetries,
			BaseDelay:        s.Config.BaseDelay.String(),
			MaxDelay:         s.Config.MaxDelay.String(),
			FailureThreshold: settings.FailureThreshold,
			OpenTimeout:      settings.OpenTimeout.String(),
		}
		if s.Breaker != nil {
			resp.Breaker = s.Breaker.State.String()
			resp.ConsecutiveFailures = s.Breaker.Failures
			resp.TotalFailures = s.Breaker.TotalFailures
			resp.TotalSuccesses = s.Breaker.Successes
			if !s.Breaker.LastFailure.IsZero() {
				last := s.Breaker.LastFailure
				resp.LastFailure = &last
			}
		}
		out = append(out, resp)
	}

	respondJSON(w, http.StatusOK, out)
}

// ResetBreakers closes every breaker.
func (h *DispatchHandler) ResetBreakers(w http.ResponseWriter, r *http.Request) {
	h.dispatcher.Registry().ResetBreakers()
	h.logger.Info("Breakers reset")
	w.WriteHeader(http.StatusNoContent)
}

func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	result, err := dispatch.Run(r.Context(), h.dispatcher, h.providers.TranscribeOperation(req.Prompt))
	if result.DispatchID != "" {
		w.Header().Set("X-Dispatch-ID", result.DispatchID)
	}
	if err != nil {
		h.handleDispatchError(w, result.DispatchID, err)
		return
	}

	respondJSON(w, http.StatusOK, DispatchResponse{
		DispatchID: result.DispatchID,
		Provider:   result.Provider,
		Text:       result.Value.Text,
	})
}

func (h *DispatchHandler) handleDispatchError(w http.ResponseWriter, dispatchID string, err error) {
	var exhausted *dispatch.AllProvidersExhaustedError

	switch {
	case errors.Is(err, dispatch.ErrNoProvidersConfigured):
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:      CodeNoProvidersConfigured,
			Message:    err.Error(),
			DispatchID: dispatchID,
		})

	case errors.As(err, &exhausted):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:      CodeAllProvidersFailed,
			Message:    err.Error(),
			DispatchID: dispatchID,
			Skipped:    exhausted.Skipped,
		})

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:      CodeDispatchCancelled,
			Message:    err.Error(),
			DispatchID: dispatchID,
		})

	default:
		h.logger.Error("Unexpected dispatch error", slog.String("dispatch_id", dispatchID), slog.Any("err", err))
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:      CodeInternal,
			Message:    "An internal error occurred",
			DispatchID: dispatchID,
		})
	}
}
