package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/services/settings"
)

// SettingsHandler reads and writes runtime settings. Writes trigger adapter
// reinitialization so provider changes take effect without a restart.
type SettingsHandler struct {
	settings *settings.Service
	chat     interfaces.ChatProvider
	embedder interfaces.Embedder
	logger   arbor.ILogger
}

func NewSettingsHandler(settingsService *settings.Service, chat interfaces.ChatProvider, embedder interfaces.Embedder, logger arbor.ILogger) *SettingsHandler {
	return &SettingsHandler{
		settings: settingsService,
		chat:     chat,
		embedder: embedder,
		logger:   logger,
	}
}

// SettingsRouteHandler dispatches GET (list) and PUT (set) on /api/settings.
func (h *SettingsHandler) SettingsRouteHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPut, http.MethodPost:
		h.set(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.settings.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list settings")
		writeError(w, http.StatusInternalServerError, "failed to list settings")
		return
	}

	// API keys are write-only through this endpoint.
	redacted := make([]interfaces.KeyValuePair, 0, len(pairs))
	for _, pair := range pairs {
		if strings.HasSuffix(pair.Key, "api_key") {
			pair.Value = "********"
		}
		redacted = append(redacted, pair)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": redacted})
}

type setSettingRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

func (h *SettingsHandler) set(w http.ResponseWriter, r *http.Request) {
	var req setSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.settings.Set(r.Context(), req.Key, req.Value, req.Description); err != nil {
		h.logger.Error().Err(err).Str("key", req.Key).Msg("Failed to store setting")
		writeError(w, http.StatusInternalServerError, "failed to store setting")
		return
	}

	// Swap in fresh adapter snapshots so the change applies immediately.
	if err := h.chat.Reinitialize(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Chat provider reinitialization failed after settings change")
	}
	if err := h.embedder.Reinitialize(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Embedder reinitialization failed after settings change")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "key": req.Key})
}
