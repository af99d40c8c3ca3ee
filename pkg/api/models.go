package api

// MatrixRequest is the JSON body for POST /api/v1/matrix. Each side is
// given either as coordinates or as pre-snapped node ids.
type MatrixRequest struct {
	Sources          []LatLngJSON `json:"sources" validate:"omitempty,dive"`
	SourceNodes      []int32      `json:"source_nodes"`
	Destinations     []LatLngJSON `json:"destinations" validate:"omitempty,dive"`
	DestinationNodes []int32      `json:"destination_nodes"`

	// Metrics names the tables to return: duration, distance, weight.
	// Empty means duration only.
	Metrics []string `json:"metrics" validate:"omitempty,max=3"`
	Units   string   `json:"units" validate:"omitempty,oneof=m km mi"`
	Profile string   `json:"profile" validate:"omitempty,max=64"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// MatrixResponse holds one 2-D table per requested metric, indexed
// [source][destination]. Unreachable cells are -1.
type MatrixResponse struct {
	Durations    [][]float64    `json:"durations,omitempty"`
	Distances    [][]float64    `json:"distances,omitempty"`
	Weights      [][]float64    `json:"weights,omitempty"`
	Sources      []LocationJSON `json:"sources"`
	Destinations []LocationJSON `json:"destinations"`
	Info         MatrixInfo     `json:"info"`
}

// LocationJSON describes where a request location was placed. Node is -1
// when the location could not be snapped.
type LocationJSON struct {
	Node         int32       `json:"node"`
	Location     *LatLngJSON `json:"location,omitempty"`
	SnapDistance float64     `json:"snap_distance,omitempty"`
}

// MatrixInfo echoes how the response was computed.
type MatrixInfo struct {
	Metrics string  `json:"metrics"`
	Units   string  `json:"units"`
	TookMs  float64 `json:"took_ms"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error     string         `json:"error"`
	Message   string         `json:"message,omitempty"`
	Field     string         `json:"field,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes     int        `json:"num_nodes"`
	NumEdges     int        `json:"num_edges"`
	NumShortcuts int        `json:"num_shortcuts"`
	Encoder      string     `json:"encoder"`
	Profile      string     `json:"profile"`
	Cache        *CacheJSON `json:"cache,omitempty"`
}

// CacheJSON reports result cache usage.
type CacheJSON struct {
	Backend string  `json:"backend"`
	Keys    int64   `json:"keys"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}
