package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"matrix_router/pkg/encoder"
	"matrix_router/pkg/geo"
	"matrix_router/pkg/graph"
	"matrix_router/pkg/logger"
	"matrix_router/pkg/matrix"
	"matrix_router/pkg/routing"
)

type options struct {
	graphPath string
	size      int
	runs      int
	seed      uint64
	sample    float64
	maxRatio  float64
	workers   int
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "matrixbench",
		Short: "Compare RPHAST matrices against one-to-many CH queries",
		Long: `matrixbench picks random source and destination nodes, times one RPHAST
matrix against a one-to-many CH query per source, and checks a random
sample of cells against a plain Dijkstra over the base graph.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(opts.logLevel)
			return run(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.graphPath, "graph", "g", "graph.bin", "preprocessed graph binary")
	f.IntVarP(&opts.size, "size", "n", 100, "sources and destinations per matrix")
	f.IntVar(&opts.runs, "runs", 5, "timed repetitions of each method")
	f.Uint64Var(&opts.seed, "seed", 1, "random seed for node selection and sampling")
	f.Float64Var(&opts.sample, "sample", 0.1, "share of cells checked against Dijkstra")
	f.Float64Var(&opts.maxRatio, "max-ratio", 0.5, "fail when RPHAST time exceeds this share of the baseline")
	f.IntVar(&opts.workers, "workers", runtime.GOMAXPROCS(0), "parallel reference searches")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	chg, err := graph.ReadBinary(opts.graphPath)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	alg, err := matrix.NewAlgorithm(chg, 0)
	if err != nil {
		return err
	}
	enc, _ := encoder.ByName(chg.Encoder)
	engine := routing.NewEngine(chg)
	slog.Info("graph loaded", "nodes", chg.NumNodes, "edges", chg.NumBaseEdges, "shortcuts", chg.NumShortcuts(), "weighting", chg.Weighting)

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed+1))
	src := randomNodes(rng, chg.NumNodes, opts.size)
	dst := randomNodes(rng, chg.NumNodes, opts.size)
	targets := make([]uint32, len(dst))
	for i, d := range dst {
		targets[i] = uint32(d)
	}

	var res *matrix.Result
	rphastTime, err := best(opts.runs, func() error {
		res, _, err = alg.Compute(ctx, chg, matrix.LocationsFromNodes(src), matrix.LocationsFromNodes(dst), matrix.Weight, geo.Meters)
		return err
	})
	if err != nil {
		return fmt.Errorf("rphast: %w", err)
	}

	baseline := make([][]float64, len(src))
	baseTime, err := best(opts.runs, func() error {
		for i, s := range src {
			row, err := engine.OneToMany(ctx, uint32(s), targets)
			if err != nil {
				return err
			}
			baseline[i] = row
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("one-to-many: %w", err)
	}

	ratio := rphastTime.Seconds() / baseTime.Seconds()
	fmt.Printf("matrix %dx%d\n", len(src), len(dst))
	fmt.Printf("  rphast       %v\n", rphastTime.Round(time.Microsecond))
	fmt.Printf("  one-to-many  %v\n", baseTime.Round(time.Microsecond))
	fmt.Printf("  ratio        %.3f (limit %.2f)\n", ratio, opts.maxRatio)

	rows := res.Rows(matrix.Weight)
	for i := range rows {
		for j := range rows[i] {
			if !sameWeight(rows[i][j], baseline[i][j]) {
				return fmt.Errorf("cell %d->%d: rphast %v, one-to-many %v", src[i], dst[j], rows[i][j], baseline[i][j])
			}
		}
	}

	checked, err := checkSample(ctx, opts, chg, enc, rng, src, dst, rows)
	if err != nil {
		return err
	}
	fmt.Printf("  reference    %d cells match Dijkstra\n", checked)

	if ratio > opts.maxRatio {
		return fmt.Errorf("rphast took %.3f of the baseline, limit %.2f", ratio, opts.maxRatio)
	}
	return nil
}

// checkSample compares a random share of cells with a Dijkstra over base
// segments, one search per source with sampled cells.
func checkSample(ctx context.Context, opts options, chg *graph.CHGraph, enc encoder.FlagEncoder, rng *rand.Rand, src, dst []int32, rows [][]float64) (int, error) {
	picked := make([][]int, len(src))
	for i := range src {
		for j := range dst {
			if rng.Float64() < opts.sample {
				picked[i] = append(picked[i], j)
			}
		}
	}

	var checked atomic.Int64
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, opts.workers))
	for i, cols := range picked {
		if len(cols) == 0 {
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tree := routing.Dijkstra(chg, enc, uint32(src[i]))
			for _, j := range cols {
				want := tree.Weight[dst[j]]
				if math.IsInf(want, 1) {
					want = matrix.Unreachable
				}
				if !sameWeight(rows[i][j], want) {
					return fmt.Errorf("cell %d->%d: rphast %v, dijkstra %v", src[i], dst[j], rows[i][j], want)
				}
				checked.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return int(checked.Load()), nil
}

func randomNodes(rng *rand.Rand, n uint32, k int) []int32 {
	out := make([]int32, k)
	for i := range out {
		out[i] = int32(rng.Uint32N(n))
	}
	return out
}

// best runs fn n times and returns the fastest run.
func best(n int, fn func() error) (time.Duration, error) {
	if n <= 0 {
		return 0, errors.New("runs must be positive")
	}
	fastest := time.Duration(math.MaxInt64)
	for range n {
		start := time.Now()
		if err := fn(); err != nil {
			return 0, err
		}
		fastest = min(fastest, time.Since(start))
	}
	return fastest, nil
}

// sameWeight compares a matrix cell with a search result. Either side may
// mark unreachable with Unreachable or +Inf.
func sameWeight(a, b float64) bool {
	unreachable := func(v float64) bool { return v == matrix.Unreachable || math.IsInf(v, 1) }
	if unreachable(a) || unreachable(b) {
		return unreachable(a) && unreachable(b)
	}
	return math.Abs(a-b) <= 1e-6*max(1, math.Abs(b))
}
