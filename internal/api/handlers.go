package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"FinUp/internal/auth"
	"FinUp/internal/model"
	"FinUp/internal/recorder"
	"FinUp/internal/store"

	"go.uber.org/zap"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiError{Code: code, Message: msg})
}

// writeFailure maps domain errors onto status codes.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
	case errors.Is(err, store.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", "no account for this session")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "upstream timed out")
	default:
		zap.L().Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func parseLimit(v string, def, min, max int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		sess := &model.Session{Token: strings.TrimSpace(token)}
		if exp, ok := auth.TokenExpiry(sess.Token); ok {
			sess.ExpiresAt = exp
		}
		if err := s.Auth.Resolve(r.Context(), sess); err != nil {
			writeFailure(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func sessionFrom(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionKey).(*model.Session)
	return sess
}

type loginRequest struct {
	CPF      string `json:"cpf"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	AccountID int64      `json:"account_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	if req.CPF == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "cpf is required")
		return
	}
	sess, err := s.Auth.Login(r.Context(), req.CPF, req.Password)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	resp := loginResponse{Token: sess.Token, AccountID: sess.AccountID}
	if !sess.ExpiresAt.IsZero() {
		resp.ExpiresAt = &sess.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) portfolio(w http.ResponseWriter, r *http.Request) {
	report, err := s.Evaluator.Evaluate(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := s.Recorder.RecordEvaluation(recorder.NewEvaluationEvent(report, recorder.TriggerAPI)); err != nil {
		zap.L().Warn("record evaluation", zap.Int64("account", report.Account.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, report)
}

type planResponse struct {
	AccountID int64       `json:"account_id"`
	Empty     bool        `json:"empty"`
	Plan      *model.Plan `json:"plan,omitempty"`
}

// plan returns only the rebalancing plan. It is not recorded.
func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	report, err := s.Evaluator.Evaluate(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{AccountID: report.Account.ID, Empty: report.Empty, Plan: report.Plan})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	h, ok := s.Recorder.(recorder.HistoryReader)
	if !ok {
		writeError(w, http.StatusNotImplemented, "history_disabled", "history is not recorded")
		return
	}
	sess := sessionFrom(r.Context())
	accountID := sess.AccountID
	if accountID == 0 {
		// Local sessions only carry a CPF.
		report, err := s.Evaluator.Evaluate(r.Context(), sess)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		accountID = report.Account.ID
	}
	limit := parseLimit(r.URL.Query().Get("limit"), 10, 1, 100)
	events, err := h.Recent(r.Context(), accountID, limit)
	if errors.Is(err, recorder.ErrNoHistory) {
		writeError(w, http.StatusNotImplemented, "history_disabled", "history is not recorded")
		return
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if events == nil {
		events = []recorder.EvaluationEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) indicators(w http.ResponseWriter, r *http.Request) {
	if s.Indicators == nil {
		writeError(w, http.StatusNotImplemented, "indicators_disabled", "indicators are not configured")
		return
	}
	inds, err := s.Indicators.Indicators(r.Context(), s.Series)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream", "indicators unavailable")
		zap.L().Warn("indicators", zap.Error(err))
		return
	}
	writeJSON(w, http.StatusOK, inds)
}
