package telemetry

import "go.opentelemetry.io/otel/attribute"

const (
	AttrSources       = "matrix.sources"
	AttrDestinations  = "matrix.destinations"
	AttrMetrics       = "matrix.metrics"
	AttrProfile       = "matrix.profile"
	AttrSubGraphNodes = "rphast.subgraph_nodes"
	AttrSubGraphEdges = "rphast.subgraph_edges"
	AttrEntries       = "rphast.entries"
	AttrSettled       = "rphast.settled"
	AttrCacheHit      = "cache.hit"
)

// MatrixAttributes describes the shape of a matrix request.
func MatrixAttributes(sources, destinations int, metrics, profile string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrSources, sources),
		attribute.Int(AttrDestinations, destinations),
		attribute.String(AttrMetrics, metrics),
		attribute.String(AttrProfile, profile),
	}
}
