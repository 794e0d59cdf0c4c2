package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jgoulah/gridmeter/internal/database"
	"github.com/jgoulah/gridmeter/internal/logging"
	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/internal/observability"
	"github.com/jgoulah/gridmeter/internal/report"
	"github.com/jgoulah/gridmeter/pkg/models"
)

// SubscriberHeader identifies the caller for privileged routes.
const SubscriberHeader = "X-Subscriber-ID"

// DefaultExportTimeout bounds the delta export done on the ingestion path.
// It stays below the server's write timeout.
const DefaultExportTimeout = 5 * time.Second

// Admin is the privileged surface of the store.
type Admin interface {
	Exec(ctx context.Context, statement string) (*database.QueryResult, error)
	DropTables(ctx context.Context) error
}

// DeltaPublisher exports freshly written hourly deltas.
type DeltaPublisher interface {
	PublishDeltas(ctx context.Context, deltas []models.HourlyDelta) error
}

// Handler serves the HTTP API.
type Handler struct {
	engine       *meter.Engine
	stats        *meter.Stats
	store        meter.Store
	admin        Admin
	reporter     *report.Reporter
	publisher    DeltaPublisher
	metrics      *observability.Metrics
	isAdmin      func(int64) bool
	loc          *time.Location
	hourlyWindow time.Duration
	exportWait   time.Duration
	now          func() time.Time
	lg           *slog.Logger
}

// Options wires the handler's collaborators. Admin, Publisher and Metrics may be nil.
type Options struct {
	Store         meter.TxStore
	Weights       meter.WeightTable
	Admin         Admin
	Reporter      *report.Reporter
	Publisher     DeltaPublisher
	Metrics       *observability.Metrics
	IsAdmin       func(int64) bool
	Location      *time.Location
	HourlyWindow  time.Duration
	ExportTimeout time.Duration // defaults to DefaultExportTimeout
	Logger        *slog.Logger
}

// NewHandler creates a handler around a store.
func NewHandler(opts Options) *Handler {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	isAdmin := opts.IsAdmin
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	lg := opts.Logger
	if lg == nil {
		lg = logging.Discard()
	}
	exportWait := opts.ExportTimeout
	if exportWait <= 0 {
		exportWait = DefaultExportTimeout
	}
	return &Handler{
		engine:       meter.NewEngine(opts.Store, opts.Weights),
		stats:        meter.NewStats(opts.Store),
		store:        opts.Store,
		admin:        opts.Admin,
		reporter:     opts.Reporter,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		isAdmin:      isAdmin,
		loc:          loc,
		hourlyWindow: opts.HourlyWindow,
		exportWait:   exportWait,
		now:          func() time.Time { return meter.LocalNow(loc) },
		lg:           lg,
	}
}

// RecordReading handles POST /api/subscribers/{id}/readings.
func (h *Handler) RecordReading(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := h.subscriberParam(w, r)
	if !ok {
		return
	}

	var req RecordReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	now := h.now()
	ts, err := meter.NormalizeTimestamp(now, req.Time, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deltas, err := h.engine.RecordReading(r.Context(), subscriberID, *req.Value, ts)
	if err != nil {
		h.recordFailure(err)
		h.writeDomainError(w, err)
		return
	}
	h.metrics.ReadingRecorded(observability.ResultOK, len(deltas))
	h.lg.Info("reading recorded", "subscriber", subscriberID, "ts", meter.FormatTimestamp(ts), "value", *req.Value, "hours", len(deltas))

	if h.publisher != nil && len(deltas) > 0 {
		h.exportDeltas(r.Context(), subscriberID, deltas)
	}

	resp := RecordReadingResponse{
		Reading: toReadingDTO(models.RawReading{SubscriberID: subscriberID, Timestamp: ts, Value: *req.Value}),
		Deltas:  toDeltaDTOs(deltas),
	}
	if rep, err := h.buildReport(r.Context(), subscriberID, meter.Naive(now)); err != nil {
		h.lg.Warn("building report after ingestion", "subscriber", subscriberID, "error", err)
	} else {
		resp.Report = rep
	}
	writeJSON(w, http.StatusCreated, resp)
}

// exportDeltas publishes committed deltas under its own deadline. A failed or
// slow export is logged and counted but never fails the ingestion.
func (h *Handler) exportDeltas(ctx context.Context, subscriberID int64, deltas []models.HourlyDelta) {
	ctx, cancel := context.WithTimeout(ctx, h.exportWait)
	defer cancel()

	if err := h.publisher.PublishDeltas(ctx, deltas); err != nil {
		h.metrics.PublishFailed()
		h.lg.Warn("publishing deltas", "subscriber", subscriberID, "error", err)
	}
}

// GetStats handles GET /api/subscribers/{id}/stats?as_of=.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := h.subscriberParam(w, r)
	if !ok {
		return
	}
	asOf, err := parseAsOf(r.URL.Query().Get("as_of"), h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.buildReport(r.Context(), subscriberID, asOf)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListReadings handles GET /api/subscribers/{id}/readings.
func (h *Handler) ListReadings(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := h.subscriberParam(w, r)
	if !ok {
		return
	}
	readings, err := h.store.ListReadings(r.Context(), subscriberID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReadingDTOs(readings))
}

// ListDeltas handles GET /api/subscribers/{id}/deltas.
func (h *Handler) ListDeltas(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := h.subscriberParam(w, r)
	if !ok {
		return
	}
	deltas, err := h.store.ListDeltas(r.Context(), subscriberID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeltaDTOs(deltas))
}

// Purge handles DELETE /api/subscribers/{id}.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := h.subscriberParam(w, r)
	if !ok {
		return
	}
	if err := h.store.Purge(r.Context(), subscriberID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.lg.Info("subscriber purged", "subscriber", subscriberID)
	w.WriteHeader(http.StatusNoContent)
}

// Exec handles POST /api/admin/exec.
func (h *Handler) Exec(w http.ResponseWriter, r *http.Request) {
	var req ExecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Statement == "" {
		writeError(w, http.StatusBadRequest, "statement is required")
		return
	}

	result, err := h.admin.Exec(r.Context(), req.Statement)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DropTables handles POST /api/admin/drop.
func (h *Handler) DropTables(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DropTables(r.Context()); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.lg.Warn("tables dropped", "by", r.Header.Get(SubscriberHeader))
	w.WriteHeader(http.StatusNoContent)
}

// RequireAdmin rejects callers whose subscriber header is not the administrator.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.admin == nil {
			writeError(w, http.StatusNotImplemented, "store has no administrative interface")
			return
		}
		id, err := strconv.ParseInt(r.Header.Get(SubscriberHeader), 10, 64)
		if err != nil || !h.isAdmin(id) {
			writeError(w, http.StatusForbidden, "administrator only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) buildReport(ctx context.Context, subscriberID int64, asOf time.Time) (*ReportResponse, error) {
	rep, err := h.stats.Report(ctx, subscriberID, asOf, h.hourlyWindow)
	if err != nil {
		return nil, err
	}
	resp := &ReportResponse{Report: rep}
	if h.reporter != nil {
		resp.Text = h.reporter.Text(rep)
	}
	return resp, nil
}

func (h *Handler) subscriberParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscriber id")
		return 0, false
	}
	return id, true
}

func (h *Handler) recordFailure(err error) {
	if errors.Is(err, meter.ErrDuplicateTimestamp) {
		h.metrics.ReadingRecorded(observability.ResultDuplicate, 0)
		return
	}
	h.metrics.ReadingRecorded(observability.ResultError, 0)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, meter.ErrDuplicateTimestamp):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, meter.ErrInvalidTimestamp):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, meter.ErrInsufficientHistory):
		writeError(w, http.StatusUnprocessableEntity, "not enough data")
	default:
		h.lg.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
