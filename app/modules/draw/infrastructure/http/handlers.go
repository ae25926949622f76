// Package drawhttp exposes the draw module's REST surface.
package drawhttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	drawservice "github.com/civic-spark/rewards-backend/app/modules/draw/application"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/httpmw"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// Handlers serves the draw REST endpoints.
type Handlers struct {
	service drawservice.Service
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers.
func NewHandlers(service drawservice.Service, logger *slog.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

type errorResponse struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type roundResponse struct {
	ID             types.RoundID     `json:"id"`
	State          string            `json:"state"`
	EntryCost      types.TokenAmount `json:"entry_cost"`
	PoolAmount     types.TokenAmount `json:"pool_amount"`
	CommitmentHash string            `json:"commitment_hash"`
	EntriesDigest  string            `json:"entries_digest,omitempty"`
	RevealedSeed   string            `json:"revealed_seed,omitempty"`
	OpenedAt       time.Time         `json:"opened_at"`
	LocksAt        time.Time         `json:"locks_at"`
	DrawsAt        time.Time         `json:"draws_at"`
	DrawnAt        *time.Time        `json:"drawn_at,omitempty"`
}

type entryResponse struct {
	EntryID    types.EntryID     `json:"entry_id"`
	RoundID    types.RoundID     `json:"round_id"`
	CostPaid   types.TokenAmount `json:"cost_paid"`
	NewBalance types.TokenAmount `json:"new_balance"`
	PoolAmount types.TokenAmount `json:"pool_amount"`
}

type winnerResponse struct {
	Tier   types.Tier        `json:"tier"`
	UserID types.UserID      `json:"user_id"`
	Amount types.TokenAmount `json:"amount"`
	Paid   bool              `json:"paid"`
}

// winnersResponse carries the revealed seed and entries digest next to
// the winner list so anyone can recompute the draw and check the
// commitment independently.
type winnersResponse struct {
	RoundID        types.RoundID    `json:"round_id"`
	State          string           `json:"state"`
	CommitmentHash string           `json:"commitment_hash"`
	RevealedSeed   string           `json:"revealed_seed,omitempty"`
	EntriesDigest  string           `json:"entries_digest,omitempty"`
	Winners        []winnerResponse `json:"winners"`
}

// HandleOpenRound creates a new round. Operator only.
func (h *Handlers) HandleOpenRound(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.OpenRound(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if result.IsFailure() {
		h.domainFailure(w, *result.Failure)
		return
	}
	h.writeJSON(w, http.StatusCreated, toRoundResponse(result.Success.Round))
}

// HandleEnterRound registers a paid entry for the authenticated user.
func (h *Handlers) HandleEnterRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := h.roundID(w, r)
	if !ok {
		return
	}
	userID, ok := httpmw.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.service.EnterRound(r.Context(), roundID, userID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if result.IsFailure() {
		h.domainFailure(w, *result.Failure)
		return
	}

	data := *result.Success
	h.writeJSON(w, http.StatusCreated, entryResponse{
		EntryID:    data.EntryID,
		RoundID:    data.RoundID,
		CostPaid:   data.CostPaid,
		NewBalance: data.NewBalance,
		PoolAmount: data.PoolAmount,
	})
}

// HandleGetRound returns a round's public state.
func (h *Handlers) HandleGetRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := h.roundID(w, r)
	if !ok {
		return
	}

	round, err := h.service.GetRound(r.Context(), roundID)
	if err != nil {
		if errors.Is(err, drawdb.ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, errorResponse{Code: "ROUND_NOT_FOUND", Reason: "round does not exist"})
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRoundResponse(round))
}

// HandleGetRoundWinners returns a round's winners together with the
// revealed seed and entries digest for independent verification.
func (h *Handlers) HandleGetRoundWinners(w http.ResponseWriter, r *http.Request) {
	roundID, ok := h.roundID(w, r)
	if !ok {
		return
	}

	round, err := h.service.GetRound(r.Context(), roundID)
	if err != nil {
		if errors.Is(err, drawdb.ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, errorResponse{Code: "ROUND_NOT_FOUND", Reason: "round does not exist"})
			return
		}
		h.serverError(w, r, err)
		return
	}

	winners, err := h.service.GetRoundWinners(r.Context(), roundID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	out := make([]winnerResponse, len(winners))
	for i, wn := range winners {
		out[i] = winnerResponse{
			Tier:   wn.Tier,
			UserID: wn.UserID,
			Amount: wn.Amount,
			Paid:   wn.PaidAt != nil,
		}
	}
	h.writeJSON(w, http.StatusOK, winnersResponse{
		RoundID:        round.ID,
		State:          string(round.State),
		CommitmentHash: round.CommitmentHash,
		RevealedSeed:   round.RevealedSeed,
		EntriesDigest:  round.EntriesDigest,
		Winners:        out,
	})
}

// HandleCancelRound refunds and archives an OPEN round. Operator only.
func (h *Handlers) HandleCancelRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := h.roundID(w, r)
	if !ok {
		return
	}

	result, err := h.service.CancelRound(r.Context(), roundID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if result.IsFailure() {
		h.domainFailure(w, *result.Failure)
		return
	}

	data := *result.Success
	h.writeJSON(w, http.StatusOK, map[string]any{
		"round_id":        data.RoundID,
		"refunded_count":  data.RefundedCount,
		"refunded_amount": data.RefundedAmount,
	})
}

func (h *Handlers) roundID(w http.ResponseWriter, r *http.Request) (types.RoundID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "INVALID_ROUND_ID", Reason: "round ID must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) domainFailure(w http.ResponseWriter, f drawservice.Failure) {
	status := http.StatusConflict
	switch f.Code {
	case drawservice.FailureRoundNotFound:
		status = http.StatusNotFound
	case drawservice.FailureInsufficientFunds:
		status = http.StatusPaymentRequired
	case drawservice.FailureEntryLimit:
		status = http.StatusTooManyRequests
	}
	h.writeJSON(w, status, errorResponse{Code: string(f.Code), Reason: f.Reason})
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "HTTP handler error", attr.Error(err), attr.String("path", r.URL.Path))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", attr.Error(err))
	}
}

func toRoundResponse(round *drawdb.Round) roundResponse {
	return roundResponse{
		ID:             round.ID,
		State:          string(round.State),
		EntryCost:      round.EntryCost,
		PoolAmount:     round.PoolAmount,
		CommitmentHash: round.CommitmentHash,
		EntriesDigest:  round.EntriesDigest,
		RevealedSeed:   round.RevealedSeed,
		OpenedAt:       round.OpenedAt,
		LocksAt:        round.LocksAt,
		DrawsAt:        round.DrawsAt,
		DrawnAt:        round.DrawnAt,
	}
}
