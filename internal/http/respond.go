package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Hint  string `json:"hint,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message, hint string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code, Hint: hint})
}

// respondCartError maps the cart error taxonomy onto HTTP statuses. Anything
// that is not a typed business rejection has already been logged server-side
// and collapses to the generic OperationFailed shape; internal detail never
// reaches the wire.
func respondCartError(w http.ResponseWriter, err error) {
	var ce *domain.CartError
	if !errors.As(err, &ce) {
		slog.Error("unclassified error reached handler", "error", err)
		ce = domain.ErrOperationFailed
	}
	respondJSON(w, statusForCode(ce.Code), struct {
		ErrorResponse
		Available int `json:"available,omitempty"`
	}{
		ErrorResponse: ErrorResponse{Error: ce.Message, Code: string(ce.Code), Hint: ce.Hint},
		Available:     ce.Available,
	})
}

func statusForCode(code domain.Code) int {
	switch code {
	case domain.CodeProductNotFound, domain.CodeVariantNotFound,
		domain.CodeCartNotFound, domain.CodeCartItemNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidQuantity, domain.CodeMaxQuantity,
		domain.CodeMaxItems, domain.CodeInvalidCursor:
		return http.StatusBadRequest
	case domain.CodeProductInactive, domain.CodeOutOfStock,
		domain.CodeInsufficientStock:
		return http.StatusConflict
	case domain.CodeSessionRequired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
