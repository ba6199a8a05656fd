package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"lifeboat/db"
	"lifeboat/ml"
	"lifeboat/predictor"
)

type Predictor interface {
	Predict(ctx context.Context, raw []byte) (predictor.Result, error)
}

type ModelHistory interface {
	RecentModelLoads(ctx context.Context, limit int) ([]db.ModelLoad, error)
}

type Handler struct {
	predictor Predictor
	model     ml.ModelInfo
	history   ModelHistory
	metrics   *Metrics
	logger    *zap.Logger
}

// NewHandler wires the routes. history may be nil when the audit store is
// disabled.
func NewHandler(p Predictor, model ml.ModelInfo, history ModelHistory, metrics *Metrics, logger *zap.Logger) *Handler {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		predictor: p,
		model:     model,
		history:   history,
		metrics:   metrics,
		logger:    logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("GET /api/model/history", h.handleModelHistory)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  []predictor.FieldError `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.metrics.ObservePredictionError(predictor.KindInvalidRequest)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, errorBody{
				Code:    string(predictor.KindInvalidRequest),
				Message: "request body too large",
			})
			return
		}
		writeError(w, http.StatusBadRequest, errorBody{
			Code:    string(predictor.KindInvalidRequest),
			Message: "could not read request body",
		})
		return
	}

	result, err := h.predictor.Predict(r.Context(), body)
	if err != nil {
		h.writePredictionError(w, r, err)
		return
	}
	h.metrics.ObservePrediction(result.Prediction)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) writePredictionError(w http.ResponseWriter, r *http.Request, err error) {
	var predErr *predictor.Error
	if !errors.As(err, &predErr) {
		predErr = &predictor.Error{Kind: predictor.KindInternal, Message: "prediction failed", Err: err}
	}
	h.metrics.ObservePredictionError(predErr.Kind)

	status := statusFor(predErr.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("kind", string(predErr.Kind)),
			zap.Error(err),
		)
	}
	writeError(w, status, errorBody{
		Code:    string(predErr.Kind),
		Message: predErr.Message,
		Fields:  predErr.Fields,
	})
}

func statusFor(kind predictor.Kind) int {
	switch kind {
	case predictor.KindInvalidRequest:
		return http.StatusUnprocessableEntity
	case predictor.KindModelUnavailable, predictor.KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.model)
}

func (h *Handler) handleModelHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, errorBody{Code: "not_found", Message: "model history is disabled"})
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	loads, err := h.history.RecentModelLoads(r.Context(), limit)
	if err != nil {
		h.logger.Error("query model history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorBody{
			Code:    string(predictor.KindInternal),
			Message: "could not load model history",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"loads": loads})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	respondJSON(w, status, errorResponse{Error: body})
}
