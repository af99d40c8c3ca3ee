package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"matrix_router/pkg/apperror"
	"matrix_router/pkg/geo"
	"matrix_router/pkg/matrix"
)

// mockMatrixer implements matrix.Matrixer for testing.
type mockMatrixer struct {
	result *matrix.Result
	err    error
	got    *matrix.Request
	panics bool
}

func (m *mockMatrixer) Compute(ctx context.Context, req *matrix.Request) (*matrix.Result, error) {
	if m.panics {
		panic("boom")
	}
	m.got = req
	return m.result, m.err
}

func twoByOne() *matrix.Result {
	src := matrix.NewLocations(2)
	src.Set(0, 7, orb.Point{103.8, 1.3}, 12.5)
	return &matrix.Result{
		Sources:      src,
		Destinations: matrix.LocationsFromNodes([]int32{9}),
		Durations:    []float64{42, matrix.Unreachable},
	}
}

func postMatrix(h *Handlers, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleMatrix(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (body %s)", err, w.Body.String())
	}
	return resp
}

const validBody = `{"sources":[{"lat":1.3,"lng":103.8},{"lat":60,"lng":10}],"destination_nodes":[9]}`

func TestHandleMatrix_Success(t *testing.T) {
	mock := &mockMatrixer{result: twoByOne()}
	h := NewHandlers(mock, nil, nil, 0)

	w := postMatrix(h, "/api/v1/matrix", validBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}

	var resp MatrixResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Durations) != 2 || resp.Durations[0][0] != 42 || resp.Durations[1][0] != -1 {
		t.Errorf("Durations = %v, want [[42] [-1]]", resp.Durations)
	}
	if resp.Distances != nil || resp.Weights != nil {
		t.Errorf("unrequested tables present: %v %v", resp.Distances, resp.Weights)
	}
	if resp.Sources[0].Node != 7 || resp.Sources[0].Location == nil || resp.Sources[0].SnapDistance != 12.5 {
		t.Errorf("Sources[0] = %+v", resp.Sources[0])
	}
	if resp.Sources[1].Node != -1 || resp.Sources[1].Location != nil {
		t.Errorf("Sources[1] = %+v, want unsnapped", resp.Sources[1])
	}
	if resp.Destinations[0].Node != 9 || resp.Destinations[0].Location != nil {
		t.Errorf("Destinations[0] = %+v", resp.Destinations[0])
	}
	if resp.Info.Metrics != "duration" || resp.Info.Units != "m" {
		t.Errorf("Info = %+v", resp.Info)
	}
}

func TestHandleMatrix_BuildsRequest(t *testing.T) {
	mock := &mockMatrixer{result: twoByOne()}
	h := NewHandlers(mock, nil, nil, 0)

	body := `{"sources":[{"lat":1.3,"lng":103.8}],"destinations":[{"lat":1.4,"lng":103.9}],
		"metrics":["Distance","weight"],"units":"km","profile":"fastest"}`
	w := postMatrix(h, "/api/v1/matrix?format=JSON", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}

	got := mock.got
	if got.Sources[0] != (orb.Point{103.8, 1.3}) {
		t.Errorf("Sources[0] = %v, want lon/lat order", got.Sources[0])
	}
	if got.Metrics != matrix.Distance|matrix.Weight {
		t.Errorf("Metrics = %v, want distance|weight", got.Metrics)
	}
	if got.Units != geo.Kilometers || got.Profile != "fastest" {
		t.Errorf("Units = %q, Profile = %q", got.Units, got.Profile)
	}
}

func TestHandleMatrix_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		code   string
		field  string
	}{
		{"invalid json", "/api/v1/matrix", "not json", "INVALID_INPUT", ""},
		{"latitude out of range", "/api/v1/matrix",
			`{"sources":[{"lat":91,"lng":103.8}],"destination_nodes":[1]}`, "INVALID_INPUT", "sources[0].lat"},
		{"unknown units", "/api/v1/matrix",
			`{"source_nodes":[1],"destination_nodes":[1],"units":"ft"}`, "INVALID_INPUT", "units"},
		{"unknown metric", "/api/v1/matrix",
			`{"source_nodes":[1],"destination_nodes":[1],"metrics":["speed"]}`, "INVALID_INPUT", "metrics"},
		{"unknown field", "/api/v1/matrix",
			`{"source_nodes":[1],"destination_nodes":[1],"algorithm":"dijkstra"}`, "UNKNOWN_PARAMETER", "algorithm"},
		{"unknown format", "/api/v1/matrix?format=xml", validBody, "UNKNOWN_PARAMETER", "format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockMatrixer{result: twoByOne()}
			w := postMatrix(NewHandlers(mock, nil, nil, 0), tt.target, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400. body: %s", w.Code, w.Body.String())
			}
			resp := errorBody(t, w)
			if resp.Error != tt.code || resp.Field != tt.field {
				t.Errorf("error = %s field = %q, want %s field %q", resp.Error, resp.Field, tt.code, tt.field)
			}
			if mock.got != nil {
				t.Error("service called for a rejected request")
			}
		})
	}
}

func TestHandleMatrix_MissingContentType(t *testing.T) {
	h := NewHandlers(&mockMatrixer{}, nil, nil, 0)

	req := httptest.NewRequest("POST", "/api/v1/matrix", strings.NewReader(validBody))
	w := httptest.NewRecorder()
	h.HandleMatrix(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleMatrix_BodyTooLarge(t *testing.T) {
	h := NewHandlers(&mockMatrixer{}, nil, nil, 16)
	w := postMatrix(h, "/api/v1/matrix", validBody)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := errorBody(t, w); resp.Error != "LIMIT_EXCEEDED" {
		t.Errorf("error = %s, want LIMIT_EXCEEDED", resp.Error)
	}
}

func TestHandleMatrix_ServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.NewWithField(apperror.CodeLimitExceeded, "too many", "sources"), http.StatusBadRequest, "LIMIT_EXCEEDED"},
		{apperror.New(apperror.CodePreprocessingMissing, "no ch"), http.StatusInternalServerError, "PREPROCESSING_MISSING"},
		{apperror.New(apperror.CodeResourceExhausted, "budget"), http.StatusInsufficientStorage, "RESOURCE_EXHAUSTED"},
		{apperror.New(apperror.CodeTimeout, "slow"), http.StatusServiceUnavailable, "TIMEOUT"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := NewHandlers(&mockMatrixer{err: tt.err}, nil, nil, 0)
			w := postMatrix(h, "/api/v1/matrix", validBody)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if resp := errorBody(t, w); resp.Error != tt.code {
				t.Errorf("error = %s, want %s", resp.Error, tt.code)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	ready := false
	h := NewHandlers(&mockMatrixer{}, nil, func() bool { return ready }, 0)

	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 before ready", w.Code)
	}

	ready = true
	w = httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" || !resp.Ready {
		t.Errorf("health = %+v", resp)
	}
}

func TestHandleStats(t *testing.T) {
	stats := func(context.Context) StatsResponse {
		return StatsResponse{NumNodes: 100, NumEdges: 150, Profile: "fastest"}
	}
	h := NewHandlers(&mockMatrixer{}, stats, nil, 0)

	w := httptest.NewRecorder()
	h.HandleStats(w, httptest.NewRequest("GET", "/api/v1/stats", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp StatsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.NumNodes != 100 || resp.NumEdges != 150 || resp.Profile != "fastest" {
		t.Errorf("stats = %+v", resp)
	}
}
