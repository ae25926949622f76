// Package wallethttp exposes the wallet's read endpoint.
package wallethttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	walletservice "github.com/civic-spark/rewards-backend/app/modules/wallet/application"
	walletdb "github.com/civic-spark/rewards-backend/app/modules/wallet/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/httpmw"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// Handlers serves the wallet REST endpoints.
type Handlers struct {
	service walletservice.Service
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers.
func NewHandlers(service walletservice.Service, logger *slog.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

type walletResponse struct {
	UserID      types.UserID      `json:"user_id"`
	Balance     types.TokenAmount `json:"balance"`
	TotalEarned types.TokenAmount `json:"total_earned"`
	TotalSpent  types.TokenAmount `json:"total_spent"`
}

// HandleGetWallet returns the authenticated user's wallet. A user who
// has never touched tokens gets a zero wallet, not a 404.
func (h *Handlers) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpmw.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), userID)
	if err != nil {
		if errors.Is(err, walletdb.ErrNotFound) {
			h.writeJSON(w, http.StatusOK, walletResponse{UserID: userID})
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to load wallet", attr.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, walletResponse{
		UserID:      wallet.UserID,
		Balance:     wallet.Balance,
		TotalEarned: wallet.TotalEarned,
		TotalSpent:  wallet.TotalSpent,
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", attr.Error(err))
	}
}
