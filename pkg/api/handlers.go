package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"

	"matrix_router/pkg/apperror"
	"matrix_router/pkg/geo"
	"matrix_router/pkg/logger"
	"matrix_router/pkg/matrix"
)

const defaultMaxBodyBytes = 1 << 20

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	matrix   matrix.Matrixer
	stats    func(context.Context) StatsResponse
	ready    func() bool
	maxBody  int64
	validate *validator.Validate
}

// NewHandlers creates handlers around m. stats and ready may be nil.
func NewHandlers(m matrix.Matrixer, stats func(context.Context) StatsResponse, ready func() bool, maxBodyBytes int64) *Handlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{
		matrix:   m,
		stats:    stats,
		ready:    ready,
		maxBody:  maxBodyBytes,
		validate: v,
	}
}

// HandleMatrix handles POST /api/v1/matrix.
func (h *Handlers) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if format := r.URL.Query().Get("format"); format != "" && !strings.EqualFold(format, "json") {
		writeError(w, r, apperror.NewWithField(apperror.CodeUnknownParameter,
			fmt.Sprintf("unsupported format %q", format), "format"))
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, r, apperror.New(apperror.CodeInvalidInput, "content type must be application/json"))
		return
	}

	var body MatrixRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, r, decodeError(err))
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeError(w, r, validationError(err))
		return
	}

	req, err := toRequest(&body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.matrix.Compute(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := MatrixResponse{
		Durations:    res.Rows(matrix.Duration),
		Distances:    res.Rows(matrix.Distance),
		Weights:      res.Rows(matrix.Weight),
		Sources:      locationsJSON(res.Sources, len(body.Sources) > 0),
		Destinations: locationsJSON(res.Destinations, len(body.Destinations) > 0),
		Info: MatrixInfo{
			Metrics: req.Metrics.String(),
			Units:   string(req.Units),
			TookMs:  float64(time.Since(start).Microseconds()) / 1000,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ready := h.ready == nil || h.ready()
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "starting", Ready: false})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Ready: true})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse
	if h.stats != nil {
		resp = h.stats(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

func toRequest(body *MatrixRequest) (*matrix.Request, error) {
	names := body.Metrics
	if len(names) == 0 {
		names = []string{"duration"}
	}
	m, err := matrix.ParseMetrics(names)
	if err != nil {
		return nil, apperror.NewWithField(apperror.CodeInvalidInput, err.Error(), "metrics")
	}
	unit, err := geo.ParseDistanceUnit(body.Units)
	if err != nil {
		return nil, apperror.NewWithField(apperror.CodeInvalidInput, err.Error(), "units")
	}
	return &matrix.Request{
		Sources:          points(body.Sources),
		Destinations:     points(body.Destinations),
		SourceNodes:      body.SourceNodes,
		DestinationNodes: body.DestinationNodes,
		Metrics:          m,
		Units:            unit,
		Profile:          body.Profile,
	}, nil
}

func points(lls []LatLngJSON) []orb.Point {
	if len(lls) == 0 {
		return nil
	}
	out := make([]orb.Point, len(lls))
	for i, ll := range lls {
		out[i] = orb.Point{ll.Lng, ll.Lat}
	}
	return out
}

func locationsJSON(l *matrix.Locations, snapped bool) []LocationJSON {
	out := make([]LocationJSON, l.Len())
	for i := range out {
		out[i].Node = l.NodeIDs[i]
		if snapped && l.Valid(i) {
			p := l.Points[i]
			out[i].Location = &LatLngJSON{Lat: p.Lat(), Lng: p.Lon()}
			out[i].SnapDistance = l.SnapDistances[i]
		}
	}
	return out
}

func decodeError(err error) *apperror.Error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return apperror.New(apperror.CodeLimitExceeded,
			fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apperror.NewWithField(apperror.CodeUnknownParameter, "unknown parameter", field)
	}
	return apperror.Wrap(err, apperror.CodeInvalidInput, "malformed JSON body")
}

func validationError(err error) *apperror.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "MatrixRequest.")
		return apperror.NewWithField(apperror.CodeInvalidInput,
			fmt.Sprintf("failed %q validation", fe.Tag()), field)
	}
	return apperror.Wrap(err, apperror.CodeInvalidInput, "invalid request")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		ae = apperror.Wrap(err, apperror.CodeInternal, "internal error")
	}
	id := requestID(r.Context())
	status := apperror.HTTPStatus(ae.Code)
	if status >= http.StatusInternalServerError {
		logger.WithRequestID(id).Error("matrix request failed", "code", ae.Code, "error", err)
	}

	resp := ErrorResponse{Error: string(ae.Code), Message: ae.Message, Field: ae.Field, RequestID: id}
	if len(ae.Details) > 0 {
		resp.Details = ae.Details
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, resp)
}
