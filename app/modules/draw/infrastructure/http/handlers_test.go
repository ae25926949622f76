package drawhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	drawservice "github.com/civic-spark/rewards-backend/app/modules/draw/application"
	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/httpmw"
	"github.com/civic-spark/rewards-backend/internal/observability"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/types"
	"github.com/civic-spark/rewards-backend/pkg/jwt"
)

// stubDrawService overrides only the methods a test exercises. The
// embedded nil interface panics on anything unexpected, which is what
// we want from a handler test.
type stubDrawService struct {
	drawservice.Service

	openFunc    func(ctx context.Context) (results.OperationResult[drawservice.OpenRoundData, drawservice.Failure], error)
	enterFunc   func(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[drawservice.EnterRoundData, drawservice.Failure], error)
	cancelFunc  func(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.CancelRoundData, drawservice.Failure], error)
	getFunc     func(ctx context.Context, roundID types.RoundID) (*drawdb.Round, error)
	winnersFunc func(ctx context.Context, roundID types.RoundID) ([]drawdb.Winner, error)
}

func (s *stubDrawService) OpenRound(ctx context.Context) (results.OperationResult[drawservice.OpenRoundData, drawservice.Failure], error) {
	return s.openFunc(ctx)
}

func (s *stubDrawService) EnterRound(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[drawservice.EnterRoundData, drawservice.Failure], error) {
	return s.enterFunc(ctx, roundID, userID)
}

func (s *stubDrawService) CancelRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[drawservice.CancelRoundData, drawservice.Failure], error) {
	return s.cancelFunc(ctx, roundID)
}

func (s *stubDrawService) GetRound(ctx context.Context, roundID types.RoundID) (*drawdb.Round, error) {
	return s.getFunc(ctx, roundID)
}

func (s *stubDrawService) GetRoundWinners(ctx context.Context, roundID types.RoundID) ([]drawdb.Winner, error) {
	return s.winnersFunc(ctx, roundID)
}

// newTestRouter mirrors the production route layout minus rate
// limiting and CORS.
func newTestRouter(service drawservice.Service, jwtService jwt.Service) chi.Router {
	h := NewHandlers(service, observability.NoOpLogger)

	r := chi.NewRouter()
	r.Get("/rounds/{roundID}", h.HandleGetRound)
	r.Get("/rounds/{roundID}/winners", h.HandleGetRoundWinners)
	r.Group(func(r chi.Router) {
		r.Use(httpmw.AuthMiddleware(jwtService))
		r.Post("/rounds/{roundID}/entries", h.HandleEnterRound)
	})
	r.Group(func(r chi.Router) {
		r.Use(httpmw.AuthMiddleware(jwtService))
		r.Use(httpmw.RequireRole(jwt.RoleOperator))
		r.Post("/rounds", h.HandleOpenRound)
		r.Post("/rounds/{roundID}/cancel", h.HandleCancelRound)
	})
	return r
}

func newTestJWT() jwt.Service {
	return jwt.NewService("test-secret", "rewards-backend", "rewards-api", time.Hour)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestHandleGetRoundStatusMapping(t *testing.T) {
	roundID := uuid.New()
	round := &drawdb.Round{
		ID:             roundID,
		State:          drawdomain.RoundStateOpen,
		EntryCost:      50,
		PoolAmount:     250,
		CommitmentHash: "abc123",
		OpenedAt:       time.Now().UTC(),
	}

	tests := []struct {
		name       string
		path       string
		getFunc    func(ctx context.Context, id types.RoundID) (*drawdb.Round, error)
		wantStatus int
		wantCode   string
	}{
		{
			name: "existing round",
			path: "/rounds/" + roundID.String(),
			getFunc: func(ctx context.Context, id types.RoundID) (*drawdb.Round, error) {
				return round, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "unknown round",
			path: "/rounds/" + uuid.NewString(),
			getFunc: func(ctx context.Context, id types.RoundID) (*drawdb.Round, error) {
				return nil, drawdb.ErrNotFound
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "ROUND_NOT_FOUND",
		},
		{
			name: "repository failure",
			path: "/rounds/" + roundID.String(),
			getFunc: func(ctx context.Context, id types.RoundID) (*drawdb.Round, error) {
				return nil, errors.New("connection reset")
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed round id",
			path:       "/rounds/not-a-uuid",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ROUND_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubDrawService{getFunc: tt.getFunc}, newTestJWT())

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if body := decodeError(t, rec); body.Code != tt.wantCode {
					t.Errorf("error code = %q, want %q", body.Code, tt.wantCode)
				}
			}
			if tt.wantStatus == http.StatusOK {
				var body roundResponse
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode round body: %v", err)
				}
				if body.ID != roundID || body.State != string(drawdomain.RoundStateOpen) {
					t.Errorf("unexpected round body: %+v", body)
				}
			}
		})
	}
}

func TestHandleGetRoundWinnersCarriesVerificationData(t *testing.T) {
	roundID := uuid.New()
	drawnAt := time.Now().UTC()
	paidAt := drawnAt.Add(time.Minute)

	service := &stubDrawService{
		getFunc: func(ctx context.Context, id types.RoundID) (*drawdb.Round, error) {
			return &drawdb.Round{
				ID:             roundID,
				State:          drawdomain.RoundStateDrawn,
				CommitmentHash: "commitment-hex",
				RevealedSeed:   "seed-hex",
				EntriesDigest:  "digest-hex",
				DrawnAt:        &drawnAt,
			}, nil
		},
		winnersFunc: func(ctx context.Context, id types.RoundID) ([]drawdb.Winner, error) {
			return []drawdb.Winner{
				{RoundID: id, Tier: 1, UserID: "citizen-1", Amount: 400, PaidAt: &paidAt},
				{RoundID: id, Tier: 2, UserID: "citizen-2", Amount: 200},
			}, nil
		},
	}
	router := newTestRouter(service, newTestJWT())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rounds/"+roundID.String()+"/winners", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body winnersResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode winners body: %v", err)
	}
	if body.RevealedSeed != "seed-hex" {
		t.Errorf("revealed_seed = %q, want seed-hex", body.RevealedSeed)
	}
	if body.EntriesDigest != "digest-hex" {
		t.Errorf("entries_digest = %q, want digest-hex", body.EntriesDigest)
	}
	if body.CommitmentHash != "commitment-hex" {
		t.Errorf("commitment_hash = %q, want commitment-hex", body.CommitmentHash)
	}
	if len(body.Winners) != 2 {
		t.Fatalf("winner count = %d, want 2", len(body.Winners))
	}
	if !body.Winners[0].Paid || body.Winners[1].Paid {
		t.Errorf("paid flags = %v/%v, want true/false", body.Winners[0].Paid, body.Winners[1].Paid)
	}
}

func TestHandleGetRoundWinnersUnknownRound(t *testing.T) {
	service := &stubDrawService{
		getFunc: func(ctx context.Context, id types.RoundID) (*drawdb.Round, error) {
			return nil, drawdb.ErrNotFound
		},
	}
	router := newTestRouter(service, newTestJWT())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rounds/"+uuid.NewString()+"/winners", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "ROUND_NOT_FOUND" {
		t.Errorf("error code = %q, want ROUND_NOT_FOUND", body.Code)
	}
}

func TestHandleEnterRoundStatusMapping(t *testing.T) {
	roundID := uuid.New()
	jwtService := newTestJWT()
	token, err := jwtService.GenerateToken("citizen-1", jwt.RoleCitizen, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	failWith := func(f drawservice.Failure) func(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[drawservice.EnterRoundData, drawservice.Failure], error) {
		return func(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[drawservice.EnterRoundData, drawservice.Failure], error) {
			return results.FailureResult[drawservice.EnterRoundData, drawservice.Failure](f), nil
		}
	}

	tests := []struct {
		name       string
		token      string
		enterFunc  func(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[drawservice.EnterRoundData, drawservice.Failure], error)
		wantStatus int
		wantCode   string
	}{
		{
			name:  "accepted entry",
			token: token,
			enterFunc: func(ctx context.Context, id types.RoundID, userID types.UserID) (results.OperationResult[drawservice.EnterRoundData, drawservice.Failure], error) {
				if userID != "citizen-1" {
					t.Errorf("user from token = %q, want citizen-1", userID)
				}
				return results.SuccessResult[drawservice.EnterRoundData, drawservice.Failure](drawservice.EnterRoundData{
					RoundID:    id,
					EntryID:    uuid.New(),
					UserID:     userID,
					CostPaid:   50,
					NewBalance: 150,
					PoolAmount: 300,
				}), nil
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "insufficient funds",
			token:      token,
			enterFunc:  failWith(drawservice.Failure{Code: drawservice.FailureInsufficientFunds, Reason: "balance too low"}),
			wantStatus: http.StatusPaymentRequired,
			wantCode:   string(drawservice.FailureInsufficientFunds),
		},
		{
			name:       "entry limit reached",
			token:      token,
			enterFunc:  failWith(drawservice.Failure{Code: drawservice.FailureEntryLimit, Reason: "entry cap reached"}),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   string(drawservice.FailureEntryLimit),
		},
		{
			name:       "round closed",
			token:      token,
			enterFunc:  failWith(drawservice.Failure{Code: drawservice.FailureRoundClosed, Reason: "round is not accepting entries"}),
			wantStatus: http.StatusConflict,
			wantCode:   string(drawservice.FailureRoundClosed),
		},
		{
			name:       "no token",
			token:      "",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubDrawService{enterFunc: tt.enterFunc}, jwtService)

			req := httptest.NewRequest(http.MethodPost, "/rounds/"+roundID.String()+"/entries", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if body := decodeError(t, rec); body.Code != tt.wantCode {
					t.Errorf("error code = %q, want %q", body.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestOperatorRoutesRequireOperatorRole(t *testing.T) {
	jwtService := newTestJWT()
	citizenToken, err := jwtService.GenerateToken("citizen-1", jwt.RoleCitizen, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	router := newTestRouter(&stubDrawService{}, jwtService)

	req := httptest.NewRequest(http.MethodPost, "/rounds", nil)
	req.Header.Set("Authorization", "Bearer "+citizenToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("citizen opening a round: status = %d, want 403", rec.Code)
	}
}

func TestHandleCancelRoundStatusMapping(t *testing.T) {
	roundID := uuid.New()
	jwtService := newTestJWT()
	operatorToken, err := jwtService.GenerateToken("op-1", jwt.RoleOperator, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	service := &stubDrawService{
		cancelFunc: func(ctx context.Context, id types.RoundID) (results.OperationResult[drawservice.CancelRoundData, drawservice.Failure], error) {
			return results.FailureResult[drawservice.CancelRoundData, drawservice.Failure](drawservice.Failure{
				Code:      drawservice.FailureInvalidTransition,
				Reason:    "cannot cancel a round in state LOCKED",
				RoundID:   id,
				FromState: drawdomain.RoundStateLocked,
			}), nil
		},
	}
	router := newTestRouter(service, jwtService)

	req := httptest.NewRequest(http.MethodPost, "/rounds/"+roundID.String()+"/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != string(drawservice.FailureInvalidTransition) {
		t.Errorf("error code = %q, want %q", body.Code, drawservice.FailureInvalidTransition)
	}
}
