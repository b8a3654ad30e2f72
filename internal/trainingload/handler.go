package trainingload

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/trainingload/internal/export"
	"github.com/2beens/trainingload/internal/telemetry/tracing"
	"github.com/2beens/trainingload/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=trainingload_test

type loadService interface {
	Rebuild(ctx context.Context, req RebuildRequest) (*RebuildResult, error)
	LatestDailyMetric(ctx context.Context, athleteID int64) (*DailyMetric, error)
	RecentLoad(ctx context.Context, athleteID int64) ([]DailyMetric, error)
	DailyMetrics(ctx context.Context, athleteID int64, from, to time.Time) ([]DailyMetric, error)
}

type Handler struct {
	service loadService
}

func NewHandler(service loadService) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router, rebuildMiddleware ...mux.MiddlewareFunc) {
	rebuildRouter := r.PathPrefix("/metrics").Subrouter()
	rebuildRouter.HandleFunc("/{athleteId}/rebuild", h.HandleRebuild).Methods("POST", "OPTIONS").Name("rebuild-metrics")
	rebuildRouter.Use(rebuildMiddleware...)

	r.HandleFunc("/athletes/{athleteId}/daily-metrics/latest", h.HandleLatest).Methods("GET", "OPTIONS").Name("latest-daily-metric")
	r.HandleFunc("/athletes/{athleteId}/metrics/ctl-atl/last-7-days", h.HandleRecentLoad).Methods("GET", "OPTIONS").Name("recent-load")
	r.HandleFunc("/athletes/{athleteId}/daily-metrics/export", h.HandleExport).Methods("GET", "OPTIONS").Name("export-daily-metrics")
	r.HandleFunc("/athletes/{athleteId}/daily-metrics", h.HandleList).Methods("GET", "OPTIONS").Name("list-daily-metrics")
}

func athleteIDFromVars(r *http.Request) (int64, error) {
	idStr := mux.Vars(r)["athleteId"]
	if idStr == "" {
		return 0, errors.New("athlete id empty")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

func optionalDayParam(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	day, err := ParseDay(value)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (h *Handler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.rebuild")
	defer span.End()

	athleteID, err := athleteIDFromVars(r)
	if err != nil {
		http.Error(w, "error, invalid athlete id", http.StatusBadRequest)
		return
	}

	from, err := optionalDayParam(r, "from_day")
	if err != nil {
		http.Error(w, "error, invalid from_day", http.StatusBadRequest)
		return
	}
	to, err := optionalDayParam(r, "to_day")
	if err != nil {
		http.Error(w, "error, invalid to_day", http.StatusBadRequest)
		return
	}

	force := false
	if forceStr := r.URL.Query().Get("force"); forceStr != "" {
		force, err = strconv.ParseBool(forceStr)
		if err != nil {
			http.Error(w, "error, invalid force flag", http.StatusBadRequest)
			return
		}
	}

	result, err := h.service.Rebuild(ctx, RebuildRequest{
		AthleteID: athleteID,
		From:      from,
		To:        to,
		Force:     force,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRange):
			http.Error(w, "error, from_day is after to_day", http.StatusBadRequest)
		case errors.Is(err, ErrRebuildInProgress):
			http.Error(w, "error, rebuild already in progress", http.StatusConflict)
		default:
			log.Errorf("rebuild metrics for athlete %d: %s", athleteID, err)
			http.Error(w, "error, rebuild failed", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteJSON(w, result, http.StatusOK)
}

func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.latest")
	defer span.End()

	athleteID, err := athleteIDFromVars(r)
	if err != nil {
		http.Error(w, "error, invalid athlete id", http.StatusBadRequest)
		return
	}

	latest, err := h.service.LatestDailyMetric(ctx, athleteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "no daily metrics for athlete", http.StatusNotFound)
			return
		}
		log.Errorf("get latest daily metric for athlete %d: %s", athleteID, err)
		http.Error(w, "error, get latest daily metric failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, latest, http.StatusOK)
}

func (h *Handler) HandleRecentLoad(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.recentload")
	defer span.End()

	athleteID, err := athleteIDFromVars(r)
	if err != nil {
		http.Error(w, "error, invalid athlete id", http.StatusBadRequest)
		return
	}

	rows, err := h.service.RecentLoad(ctx, athleteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "no daily metrics for athlete", http.StatusNotFound)
			return
		}
		log.Errorf("get recent load for athlete %d: %s", athleteID, err)
		http.Error(w, "error, get recent load failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, rows, http.StatusOK)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.list")
	defer span.End()

	athleteID, from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	rows, err := h.service.DailyMetrics(ctx, athleteID, from, to)
	if err != nil {
		h.writeRangeError(w, athleteID, err)
		return
	}

	pkg.WriteJSON(w, rows, http.StatusOK)
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainingload.export")
	defer span.End()

	athleteID, from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	rows, err := h.service.DailyMetrics(ctx, athleteID, from, to)
	if err != nil {
		h.writeRangeError(w, athleteID, err)
		return
	}

	parquetBytes, err := export.DailyMetricsParquet(ExportRows(rows))
	if err != nil {
		log.Errorf("export daily metrics for athlete %d: %s", athleteID, err)
		http.Error(w, "error, export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\"daily-metrics-"+strconv.FormatInt(athleteID, 10)+".parquet\"")
	pkg.WriteResponseBytesOK(w, pkg.ContentType.Parquet, parquetBytes)
}

// rangeParams reads the athlete id and the mandatory from/to days, writing
// a 400 response and returning ok=false when any of them is invalid.
func (h *Handler) rangeParams(w http.ResponseWriter, r *http.Request) (athleteID int64, from, to time.Time, ok bool) {
	athleteID, err := athleteIDFromVars(r)
	if err != nil {
		http.Error(w, "error, invalid athlete id", http.StatusBadRequest)
		return 0, from, to, false
	}

	fromPtr, err := optionalDayParam(r, "from")
	if err != nil || fromPtr == nil {
		http.Error(w, "error, invalid or missing from", http.StatusBadRequest)
		return 0, from, to, false
	}
	toPtr, err := optionalDayParam(r, "to")
	if err != nil || toPtr == nil {
		http.Error(w, "error, invalid or missing to", http.StatusBadRequest)
		return 0, from, to, false
	}

	return athleteID, *fromPtr, *toPtr, true
}

func (h *Handler) writeRangeError(w http.ResponseWriter, athleteID int64, err error) {
	if errors.Is(err, ErrInvalidRange) {
		http.Error(w, "error, from is after to", http.StatusBadRequest)
		return
	}
	log.Errorf("list daily metrics for athlete %d: %s", athleteID, err)
	http.Error(w, "error, list daily metrics failed", http.StatusInternalServerError)
}

// ExportRows converts daily metrics into export rows.
func ExportRows(rows []DailyMetric) []export.DailyMetricRow {
	exportRows := make([]export.DailyMetricRow, 0, len(rows))
	for _, m := range rows {
		exportRows = append(exportRows, export.DailyMetricRow{
			AthleteID: m.AthleteID,
			Day:       FormatDay(m.Day),
			TSS:       m.TSS,
			DurationS: m.DurationS,
			WorkKJ:    m.WorkKJ,
			IFValue:   m.IFValue,
			EF:        m.EF,
			CTL:       m.CTL,
			ATL:       m.ATL,
			TSB:       m.TSB,
		})
	}
	return exportRows
}
