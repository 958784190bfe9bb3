package httpx

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeText sends a plain-text response.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// updateResult is the uniform envelope every update route answers with,
// success or not. Create and read routes answer with the entity or the raw
// error instead; the two shapes are intentionally different.
type updateResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Error   *string `json:"error"`
}

// writeUpdateSuccess emits the success envelope. No entity body: updates
// acknowledge, creates echo.
func writeUpdateSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, updateResult{Success: true, Message: message})
}

// writeUpdateFailure emits the failure envelope with the underlying error's
// message text.
func writeUpdateFailure(w http.ResponseWriter, status int, message string, err error) {
	detail := err.Error()
	writeJSON(w, status, updateResult{Success: false, Message: message, Error: &detail})
}
