package activities

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/2beens/trainingload/internal/strava"
	"github.com/2beens/trainingload/internal/telemetry/tracing"
	"github.com/2beens/trainingload/internal/trainingload"
	"github.com/2beens/trainingload/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxFITFileSize = 32 << 20

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=activities_test

type activityImporter interface {
	Import(ctx context.Context, athleteID int64, after int64) (*ImportResult, error)
	ImportFIT(ctx context.Context, athleteID int64, r io.Reader, name string) (*trainingload.Activity, error)
}

type Handler struct {
	importer activityImporter
}

func NewHandler(importer activityImporter) *Handler {
	return &Handler{
		importer: importer,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/activities/{athleteId}/import", h.HandleImport).Methods("POST", "OPTIONS").Name("import-activities")
	r.HandleFunc("/activities/{athleteId}/fit", h.HandleFITUpload).Methods("POST", "OPTIONS").Name("upload-fit-activity")
}

func athleteIDFromVars(r *http.Request) (int64, error) {
	idStr := mux.Vars(r)["athleteId"]
	if idStr == "" {
		return 0, errors.New("athlete id empty")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.import")
	defer span.End()

	athleteID, err := athleteIDFromVars(r)
	if err != nil {
		http.Error(w, "error, invalid athlete id", http.StatusBadRequest)
		return
	}

	var after int64
	if afterStr := r.URL.Query().Get("after"); afterStr != "" {
		after, err = strconv.ParseInt(afterStr, 10, 64)
		if err != nil || after < 0 {
			http.Error(w, "error, invalid after", http.StatusBadRequest)
			return
		}
	}

	result, err := h.importer.Import(ctx, athleteID, after)
	if err != nil {
		log.Errorf("import activities for athlete %d: %s", athleteID, err)
		if errors.Is(err, strava.ErrUnauthorized) {
			http.Error(w, "error, activity source rejected the credentials", http.StatusBadGateway)
			return
		}
		http.Error(w, "error, import failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, result, http.StatusOK)
}

func (h *Handler) HandleFITUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.fitupload")
	defer span.End()

	athleteID, err := athleteIDFromVars(r)
	if err != nil {
		http.Error(w, "error, invalid athlete id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFITFileSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		log.Errorf("upload FIT file, get file from form: %s", err)
		http.Error(w, "error, file missing or too big", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("upload FIT file, close file: %s", err)
		}
	}()

	log.Debugf("upload FIT file, filename: %s, size: %d", header.Filename, header.Size)

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	activity, err := h.importer.ImportFIT(ctx, athleteID, file, name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidActivity):
			http.Error(w, "error, not a valid activity FIT file", http.StatusBadRequest)
		case errors.Is(err, ErrDuplicateActivity):
			http.Error(w, "error, activity already imported", http.StatusConflict)
		default:
			log.Errorf("upload FIT file for athlete %d: %s", athleteID, err)
			http.Error(w, "error, upload failed", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteJSON(w, activity, http.StatusCreated)
}
