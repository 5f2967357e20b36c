package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/emna-bh/EchecGame/pkg/chessdto"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, chessdto.ErrorResponse{Error: chessdto.DomainError{
		Code:      code,
		Message:   message,
		Retryable: status >= http.StatusInternalServerError,
	}})
}
