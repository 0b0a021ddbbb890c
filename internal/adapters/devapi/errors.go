package devapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
)

type errorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	er := errorResponse{Error: errorBody{Code: code, Message: message}}
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
