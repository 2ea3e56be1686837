package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eugenenazirov/treemap/internal/storage"
	"github.com/eugenenazirov/treemap/internal/treemap"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	defaultMaxWeights   = 100_000
	defaultMaxBatchSize = 64
	defaultBatchWorkers = 4

	extentTolerance = 1e-9
)

// Handler wires the layout engine and bounds storage into HTTP handlers.
type Handler struct {
	storage storage.Storage

	maxWeights   int
	maxBatchSize int
	batchWorkers int

	clock func() time.Time

	mu              sync.RWMutex
	boundsUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLimits caps the number of weights per layout, the number of layouts per
// batch and the number of batch layouts computed concurrently. Non-positive
// values keep the defaults.
func WithLimits(maxWeights, maxBatchSize, batchWorkers int) HandlerOption {
	return func(h *Handler) {
		if maxWeights > 0 {
			h.maxWeights = maxWeights
		}
		if maxBatchSize > 0 {
			h.maxBatchSize = maxBatchSize
		}
		if batchWorkers > 0 {
			h.batchWorkers = batchWorkers
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage:      store,
		maxWeights:   defaultMaxWeights,
		maxBatchSize: defaultMaxBatchSize,
		batchWorkers: defaultBatchWorkers,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.boundsUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetBounds(w http.ResponseWriter, r *http.Request) {
	_ = r
	bounds, err := h.storage.GetBounds()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := boundsResponse{
		Bounds:    bounds,
		UpdatedAt: h.currentBoundsUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutBounds(w http.ResponseWriter, r *http.Request) {
	var req boundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if req.Bounds == nil {
		writeError(w, http.StatusBadRequest, "Invalid bounds", "bounds must be provided")
		return
	}

	if err := h.storage.SetBounds(*req.Bounds); err != nil {
		if errors.Is(err, storage.ErrInvalidBounds) {
			writeError(w, http.StatusBadRequest, "Invalid bounds", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markBoundsUpdated()

	bounds, err := h.storage.GetBounds()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := boundsResponse{
		Bounds:    bounds,
		UpdatedAt: h.currentBoundsUpdatedAt(),
		Message:   "Default bounds updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	fallback, err := h.storage.GetBounds()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp, apiErr := h.computeLayout(req, fallback)
	if apiErr != nil {
		writeJSON(w, apiErr.status, apiErr.body)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBatchLayout(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "requests must contain at least one layout")
		return
	}
	if len(req.Requests) > h.maxBatchSize {
		writeError(w, http.StatusBadRequest, "Batch too large",
			fmt.Sprintf("at most %d layouts are accepted per batch, got %d", h.maxBatchSize, len(req.Requests)),
			"Split the batch into smaller requests")
		return
	}

	fallback, err := h.storage.GetBounds()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	start := time.Now()
	results, err := h.computeBatch(r.Context(), req.Requests, fallback)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err.Error())
		return
	}

	resp := batchResponse{
		Results:           results,
		CalculationTimeMs: time.Since(start).Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// computeBatch lays out every request with a bounded number of workers.
// Results keep request order; a failing layout only fails its own slot.
func (h *Handler) computeBatch(ctx context.Context, reqs []layoutRequest, fallback treemap.Rect) ([]batchResult, error) {
	results := make([]batchResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.batchWorkers)

	for i := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			resp, apiErr := h.computeLayout(reqs[i], fallback)
			if apiErr != nil {
				results[i] = batchResult{Index: i, Error: &apiErr.body}
				return nil
			}
			results[i] = batchResult{Index: i, Layout: &resp}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Handler) computeLayout(req layoutRequest, fallback treemap.Rect) (layoutResponse, *apiError) {
	if req.Weights == nil {
		return layoutResponse{}, newAPIError(http.StatusBadRequest, "Invalid input", treemap.ErrInvalidInput.Error(),
			"Provide weights as a flat JSON array of numbers")
	}
	if len(req.Weights) > h.maxWeights {
		return layoutResponse{}, newAPIError(http.StatusBadRequest, "Too many weights",
			fmt.Sprintf("at most %d weights are accepted, got %d", h.maxWeights, len(req.Weights)))
	}

	bounds := fallback
	if req.Bounds != nil {
		if err := storage.ValidateBounds(*req.Bounds); err != nil {
			return layoutResponse{}, newAPIError(http.StatusBadRequest, "Invalid bounds", err.Error())
		}
		bounds = *req.Bounds
	}

	if !finiteSum(req.Weights) {
		return layoutResponse{}, newAPIError(http.StatusUnprocessableEntity, "Degenerate layout",
			"weights overflow when summed",
			"Reduce the magnitude of the weights")
	}

	layouter, err := treemap.New(treemap.Algorithm(req.Algorithm))
	if err != nil {
		return layoutResponse{}, newAPIError(http.StatusBadRequest, "Invalid algorithm",
			fmt.Sprintf("%v: %q", err, req.Algorithm),
			"Use one of: "+algorithmNames())
	}

	start := time.Now()
	rects, err := layouter.Layout(req.Weights, bounds)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, treemap.ErrInvalidInput) {
			return layoutResponse{}, newAPIError(http.StatusBadRequest, "Invalid input", err.Error())
		}
		return layoutResponse{}, newAPIError(http.StatusInternalServerError, "Internal error", err.Error())
	}

	stats := treemap.Stats(rects)
	if !allFinite(rects) || !finite(stats.TotalArea, stats.WorstAspect, stats.MeanAspect) {
		return layoutResponse{}, newAPIError(http.StatusUnprocessableEntity, "Degenerate layout",
			"layout produced non-finite values",
			"Use smaller bounds or less extreme weights")
	}
	if len(rects) > 0 && !treemap.Within(stats.Extent, bounds, extentTolerance) {
		return layoutResponse{}, newAPIError(http.StatusUnprocessableEntity, "Degenerate layout",
			"layout extends outside the target bounds",
			"Use non-negative weights")
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = string(treemap.AlgorithmSquarify)
	}

	return layoutResponse{
		Algorithm:         algorithm,
		Bounds:            bounds,
		Rects:             rects,
		Stats:             stats,
		CalculationTimeMs: elapsed.Milliseconds(),
	}, nil
}

func (h *Handler) currentBoundsUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.boundsUpdatedAt
}

func (h *Handler) markBoundsUpdated() {
	h.mu.Lock()
	h.boundsUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func algorithmNames() string {
	algorithms := treemap.Algorithms()
	names := make([]string, 0, len(algorithms))
	for _, a := range algorithms {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finiteSum(weights []float64) bool {
	var sum float64
	for _, w := range weights {
		sum += math.Abs(w)
	}
	return finite(sum)
}

func allFinite(rects []treemap.Rect) bool {
	for _, r := range rects {
		if !finite(r.X, r.Y, r.W, r.H) {
			return false
		}
	}
	return true
}

type boundsRequest struct {
	Bounds *treemap.Rect `json:"bounds"`
}

type boundsResponse struct {
	Bounds    treemap.Rect `json:"bounds"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Message   string       `json:"message,omitempty"`
}

type layoutRequest struct {
	Weights   treemap.Float64s `json:"weights"`
	Bounds    *treemap.Rect    `json:"bounds,omitempty"`
	Algorithm string           `json:"algorithm,omitempty"`
}

type layoutResponse struct {
	Algorithm         string          `json:"algorithm"`
	Bounds            treemap.Rect    `json:"bounds"`
	Rects             []treemap.Rect  `json:"rects"`
	Stats             treemap.Summary `json:"stats"`
	CalculationTimeMs int64           `json:"calculationTimeMs"`
}

type batchRequest struct {
	Requests []layoutRequest `json:"requests"`
}

type batchResult struct {
	Index  int             `json:"index"`
	Layout *layoutResponse `json:"layout,omitempty"`
	Error  *errorResponse  `json:"error,omitempty"`
}

type batchResponse struct {
	Results           []batchResult `json:"results"`
	CalculationTimeMs int64         `json:"calculationTimeMs"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

type apiError struct {
	status int
	body   errorResponse
}

func newAPIError(status int, message, details string, suggestion ...string) *apiError {
	e := &apiError{
		status: status,
		body:   errorResponse{Error: message, Details: details},
	}
	if len(suggestion) > 0 {
		e.body.Suggestion = suggestion[0]
	}
	return e
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	apiErr := newAPIError(status, message, details, suggestion...)
	writeJSON(w, apiErr.status, apiErr.body)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

// writeDecodeError reports a weights field that is not a flat numeric array
// as invalid input, an oversized body as 413 and anything else as a
// malformed payload.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, treemap.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Invalid input", err.Error(),
			"Provide weights as a flat JSON array of numbers")
		return
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "Payload too large",
			fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
}
