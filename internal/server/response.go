package server

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope of every API reply.
type APIResponse struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// JSON writes a success envelope. Warnings report datasets that could not be
// loaded; the request still succeeds.
func JSON(w http.ResponseWriter, status int, data interface{}, warnings ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := APIResponse{
		Status:   "success",
		Data:     data,
		Warnings: warnings,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := APIResponse{
		Status:  "error",
		Message: msg,
	}
	_ = json.NewEncoder(w).Encode(resp)
}
