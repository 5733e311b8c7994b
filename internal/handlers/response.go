package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// ensureJSONExtension adds .json extension if not present
func ensureJSONExtension(s string) string {
	if s == "" {
		return ""
	}
	if !strings.HasSuffix(s, ".json") {
		return s + ".json"
	}
	return s
}

// validFilename rejects anything that could escape the data directory.
func validFilename(s string) bool {
	return s != "" && !strings.Contains(s, "..") && !strings.ContainsAny(s, `/\`)
}
