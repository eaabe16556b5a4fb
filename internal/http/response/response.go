// response — единый JSON-конверт ответов HTTP API:
//
//	{"success": true, "statusCode": 200, "message": "...", "data": {...}, "requestId": "..."}
//
// success выводится из статуса (< 400).
package response

import (
	"encoding/json"
	"net/http"
)

// HeaderRequestID — заголовок с идентификатором запроса.
const HeaderRequestID = "X-Request-Id"

// Envelope — корневой объект любого ответа API.
type Envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	RequestID  string `json:"requestId,omitempty"`
}

// New собирает конверт для статуса.
func New(status int, message string, data any) Envelope {
	return Envelope{
		Success:    status < http.StatusBadRequest,
		StatusCode: status,
		Message:    message,
		Data:       data,
	}
}

// Write пишет конверт с нужным Content-Type. request id берётся из заголовка запроса.
func Write(w http.ResponseWriter, r *http.Request, env Envelope) {
	if r != nil && env.RequestID == "" {
		env.RequestID = r.Header.Get(HeaderRequestID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}

// OK — короткая запись успешного ответа.
func OK(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	Write(w, r, New(status, message, data))
}
