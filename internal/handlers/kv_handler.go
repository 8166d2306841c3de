package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// KVHandler handles key/value storage HTTP requests. The store holds
// operator-managed settings, primarily API keys, so list responses mask
// values.
type KVHandler struct {
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewKVHandler creates a new KV handler
func NewKVHandler(kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *KVHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &KVHandler{
		kvStorage: kvStorage,
		logger:    logger,
	}
}

// ListKVHandler handles GET /api/kv - lists all key/value pairs with
// masked values
func (h *KVHandler) ListKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	pairs, err := h.kvStorage.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list key/value pairs")
		WriteError(w, http.StatusInternalServerError, "Failed to list key/value pairs")
		return
	}

	sanitized := make([]map[string]interface{}, len(pairs))
	for i, pair := range pairs {
		sanitized[i] = map[string]interface{}{
			"key":         pair.Key,
			"value":       h.maskValue(pair.Value),
			"description": pair.Description,
			"created_at":  pair.CreatedAt,
			"updated_at":  pair.UpdatedAt,
		}
	}

	h.logger.Debug().Int("count", len(pairs)).Msg("Listed key/value pairs")
	WriteJSON(w, http.StatusOK, sanitized)
}

// SetKVHandler handles PUT /api/kv/{key} - inserts or updates a key/value pair
func (h *KVHandler) SetKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	var req struct {
		Value       string `json:"value"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Value == "" {
		WriteError(w, http.StatusBadRequest, "Value is required")
		return
	}

	if err := h.kvStorage.Set(r.Context(), key, req.Value, req.Description); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to set key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to set key/value pair")
		return
	}

	h.logger.Debug().Str("key", key).Msg("Stored key/value pair")

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"key":    key,
	})
}

// GetKVHandler handles GET /api/kv/{key} - returns the full (unmasked)
// value for editing
func (h *KVHandler) GetKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	value, err := h.kvStorage.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to get key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve key/value pair")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"key":   key,
		"value": value,
	})
}

// DeleteKVHandler handles DELETE /api/kv/{key}
func (h *KVHandler) DeleteKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	key, ok := h.keyFromPath(w, r)
	if !ok {
		return
	}

	if err := h.kvStorage.Delete(r.Context(), key); err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to delete key/value pair")
		return
	}

	h.logger.Debug().Str("key", key).Msg("Deleted key/value pair")
	WriteSuccess(w, "Key/value pair deleted")
}

// keyFromPath extracts and URL-decodes the key from /api/kv/{key}
func (h *KVHandler) keyFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	encodedKey := r.URL.Path[len("/api/kv/"):]

	key, err := url.QueryUnescape(encodedKey)
	if err != nil {
		h.logger.Error().Err(err).Str("encoded_key", encodedKey).Msg("Failed to decode key")
		WriteError(w, http.StatusBadRequest, "Invalid key encoding")
		return "", false
	}

	if key == "" {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return "", false
	}

	return key, true
}

// maskValue masks sensitive variable values for API responses
// If length < 8: returns "••••••••"
// Otherwise: returns first 4 chars + "..." + last 4 chars (e.g., "sk-1...xyz9")
func (h *KVHandler) maskValue(value string) string {
	if len(value) < 8 {
		return "••••••••"
	}

	return value[:4] + "..." + value[len(value)-4:]
}
