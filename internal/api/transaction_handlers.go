package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/roberasa/legalario-transactional-api/internal/service"
	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// submitTransaction handles POST /v1/transactions. The idempotency key comes
// from the configured request header; repeated keys replay the cached
// response byte for byte.
func (s *Server) submitTransaction(w http.ResponseWriter, r *http.Request) {
	s.handleSubmit(w, r, s.svc.Submit)
}

// submitTransactionAsync handles POST /v1/transactions/async, returning 202
// and handing finalization to the worker pool.
func (s *Server) submitTransactionAsync(w http.ResponseWriter, r *http.Request) {
	s.handleSubmit(w, r, s.svc.SubmitAsync)
}

type submitFunc func(ctx context.Context, key string, req transaction.SubmitRequest) (service.Result, error)

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, submit submitFunc) {
	var req transaction.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	key := strings.TrimSpace(r.Header.Get(s.cfg.Idempotency.Header))

	res, err := submit(r.Context(), key, req)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	if res.Replayed {
		w.Header().Set("Idempotent-Replay", "true")
	}
	writeRaw(w, res.StatusCode, res.Body)
}

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	var verr *transaction.ValidationError
	var serr *transaction.StorageError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, transaction.ErrKeyConflict):
		writeError(w, http.StatusConflict, "idempotency key reused with a different payload")
	case errors.Is(err, transaction.ErrKeyInFlight):
		writeError(w, http.StatusConflict, "a request with this idempotency key is still processing")
	case errors.As(err, &serr):
		s.logger.Error("submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage failure")
	default:
		s.logger.Error("submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// getTransaction handles GET /v1/transactions/{transaction_id}.
func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transaction_id")
	txn, err := s.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		s.logger.Error("get transaction failed", zap.String("transaction_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load transaction")
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// listTransactions handles GET /v1/transactions?limit=&offset=.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r, defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txns, err := s.svc.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list transactions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

type summarizeRequest struct {
	Text string `json:"text"`
}

// summarize handles POST /v1/assistant/summarize. Upstream model failures map
// to 502 so clients can distinguish them from local errors.
func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	rec, err := s.svc.Summarize(r.Context(), req.Text)
	if err != nil {
		var serr *transaction.StorageError
		if errors.As(err, &serr) {
			s.logger.Error("store summary failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "storage failure")
			return
		}
		s.logger.Error("summarize failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "summarization backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}
