package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"matrix_router/pkg/ch"
	"matrix_router/pkg/encoder"
	"matrix_router/pkg/graph"
	"matrix_router/pkg/logger"
	osmparser "matrix_router/pkg/osm"
	"matrix_router/pkg/weighting"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "graph.bin", "Output binary graph file path")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	encName := flag.String("encoder", "car", "Flag encoder")
	weightingName := flag.String("weighting", "fastest", "Prepare weighting: fastest or shortest")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logger.Init(*logLevel)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output graph.bin] [--weighting fastest|shortest] [--singapore | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	var opts osmparser.ParseOptions
	if *singapore {
		opts.BBox = osmparser.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
	} else if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			logger.Fatal("invalid bbox, expected minLat,minLng,maxLat,maxLng", "error", err)
		}
		opts.BBox = osmparser.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
	}
	if !opts.BBox.IsZero() {
		b := opts.BBox
		slog.Info("bounding box filter", "min_lat", b.MinLat, "max_lat", b.MaxLat, "min_lng", b.MinLng, "max_lng", b.MaxLng)
	}

	enc, ok := encoder.ByName(*encName)
	if !ok {
		logger.Fatal("unknown encoder", "encoder", *encName)
	}
	w, err := weighting.New(*weightingName, enc)
	if err != nil {
		logger.Fatal("unknown weighting", "error", err)
	}

	if err := run(*input, *output, opts, enc, w); err != nil {
		logger.Fatal("preprocessing failed", "error", err)
	}
}

func run(input, output string, opts osmparser.ParseOptions, enc encoder.FlagEncoder, w weighting.Weighting) error {
	start := time.Now()

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	slog.Info("parsing OSM data", "input", input)
	parsed, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		return fmt.Errorf("parse OSM data: %w", err)
	}
	slog.Info("parsed", "edges", len(parsed.Edges), "nodes", len(parsed.NodeLat))

	g := graph.Build(parsed, enc)
	slog.Info("graph built", "nodes", g.NumNodes, "edges", g.NumEdges)

	component := graph.LargestComponent(g)
	slog.Info("largest component",
		"nodes", len(component),
		"share", fmt.Sprintf("%.1f%%", float64(len(component))/float64(max(g.NumNodes, 1))*100))
	g = graph.FilterToComponent(g, component)

	slog.Info("contracting", "weighting", w.Name())
	chg := ch.Contract(g, w)
	slog.Info("contraction done", "edges", chg.NumBaseEdges, "shortcuts", chg.NumShortcuts())

	if err := graph.WriteBinary(output, chg); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		return err
	}
	slog.Info("done",
		"took", time.Since(start).Round(time.Second),
		"output", output,
		"size_mb", fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)))
	return nil
}
