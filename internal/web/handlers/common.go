package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Config mirrors the feature toggles the handlers care about (kept
// separate from the web package config to avoid an import cycle).
type Config struct {
	Features struct {
		ImportEnabled bool
		WritesEnabled bool
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func parseIntParam(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// operator identifies the staff member behind a request. The surrounding
// application authenticates users; this API only carries the identity
// through to the audit trail.
func operator(r *http.Request) string {
	if op := r.Header.Get("X-Operator"); op != "" {
		return op
	}
	return "web_user"
}
