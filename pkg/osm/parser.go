package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"matrix_router/pkg/geo"
)

// RawEdge is one road segment between two consecutive way nodes. It is
// stored once; Forward and Backward give access relative to From -> To.
type RawEdge struct {
	FromNodeID     osm.NodeID
	ToNodeID       osm.NodeID
	DistanceMeters float64
	Forward        bool
	Backward       bool
	SpeedKmh       float64
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
	Speed    float64
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only segments with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox
}

// Parse reads an OSM PBF file and returns the car-accessible road segments.
// The reader is scanned twice (ways, then the nodes they reference), so it
// must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	ways, referenced, err := scanWays(ctx, rs)
	if err != nil {
		return nil, err
	}
	slog.Info("osm ways scanned", "ways", len(ways), "referenced_nodes", len(referenced))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for node pass: %w", err)
	}
	nodeLat, nodeLon, err := scanNodes(ctx, rs, referenced)
	if err != nil {
		return nil, err
	}
	slog.Info("osm nodes scanned", "coordinates", len(nodeLat))

	res := &ParseResult{NodeLat: nodeLat, NodeLon: nodeLon}
	var missing, outside int

	for _, w := range ways {
		for i := 0; i+1 < len(w.NodeIDs); i++ {
			from, to := w.NodeIDs[i], w.NodeIDs[i+1]
			if from == to {
				continue
			}
			fromLat, okFrom := nodeLat[from]
			toLat, okTo := nodeLat[to]
			if !okFrom || !okTo {
				missing++
				continue
			}
			fromLon, toLon := nodeLon[from], nodeLon[to]

			if !opt.BBox.IsZero() && (!opt.BBox.Contains(fromLat, fromLon) || !opt.BBox.Contains(toLat, toLon)) {
				outside++
				continue
			}

			res.Edges = append(res.Edges, RawEdge{
				FromNodeID:     from,
				ToNodeID:       to,
				DistanceMeters: geo.Haversine(fromLat, fromLon, toLat, toLon),
				Forward:        w.Forward,
				Backward:       w.Backward,
				SpeedKmh:       w.Speed,
			})
		}
	}

	if missing > 0 {
		slog.Warn("skipped segments with missing node coordinates", "count", missing)
	}
	if outside > 0 {
		slog.Info("filtered segments outside bounding box", "count", outside)
	}
	slog.Info("osm parse complete", "segments", len(res.Edges))
	return res, nil
}

func scanWays(ctx context.Context, rs io.Reader) ([]wayInfo, map[osm.NodeID]struct{}, error) {
	scanner := osmpbf.New(ctx, rs, 1)
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || len(w.Nodes) < 2 || !isCarAccessible(w.Tags) {
			continue
		}
		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		ids := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			ids[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{NodeIDs: ids, Forward: fwd, Backward: bwd, Speed: carSpeed(w.Tags)})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan ways: %w", err)
	}
	return ways, referenced, nil
}

func scanNodes(ctx context.Context, rs io.Reader, referenced map[osm.NodeID]struct{}) (lat, lon map[osm.NodeID]float64, err error) {
	scanner := osmpbf.New(ctx, rs, 1)
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	lat = make(map[osm.NodeID]float64, len(referenced))
	lon = make(map[osm.NodeID]float64, len(referenced))

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		lat[n.ID] = n.Lat
		lon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan nodes: %w", err)
	}
	return lat, lon, nil
}
