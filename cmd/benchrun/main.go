package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"

	"github.com/Hakuto4838/SkipKV.git/config"
	"github.com/Hakuto4838/SkipKV.git/datastream"
	"github.com/Hakuto4838/SkipKV.git/skiplist/analyTool"
	"github.com/Hakuto4838/SkipKV.git/store"
)

func main() {
	var confPath string
	var dist string
	var n int
	var a float64
	var b float64
	var k int
	var seed int64
	var workerList string
	var runs int
	var verify bool
	var mix datastream.Mix
	var distCSV string
	var structCSV string
	var show int

	flag.StringVar(&confPath, "config", "", "YAML config for the store (defaults when empty)")
	flag.StringVar(&dist, "dist", "zipf", "key distribution: zipf or uniform")
	flag.IntVar(&n, "n", 10000, "number of distinct keys")
	flag.Float64Var(&a, "a", 1.07, "Zipf parameter a")
	flag.Float64Var(&b, "b", 0.0, "Zipf parameter b")
	flag.IntVar(&k, "k", 200000, "number of operations to generate")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "seed for workload and level generation")
	flag.StringVar(&workerList, "workers", "1,4,16", "comma separated worker counts to run")
	flag.IntVar(&runs, "runs", 3, "how many times to repeat each benchmark")
	flag.BoolVar(&verify, "verify", true, "check final state against the reference model")
	flag.Float64Var(&mix.Insert, "mix.insert", datastream.DefaultMix.Insert, "ratio of insert operations")
	flag.Float64Var(&mix.Delete, "mix.delete", datastream.DefaultMix.Delete, "ratio of delete operations")
	flag.Float64Var(&mix.Update, "mix.update", datastream.DefaultMix.Update, "ratio of update operations")
	flag.StringVar(&distCSV, "distcsv", "", "write the key distribution (zipf only) to this CSV file")
	flag.StringVar(&structCSV, "structcsv", "", "write the final skip list structure to this CSV file")
	flag.IntVar(&show, "show", 0, "draw the first N nodes of the final skip list and their search steps")
	flag.Parse()

	cfg, err := config.Load(confPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Seed = seed
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	gen, err := newGenerator(dist, n, a, b, seed)
	if err != nil {
		log.Fatalf("%v", err)
	}
	ops, err := datastream.GenerateOps(gen, k, mix, seed)
	if err != nil {
		log.Fatalf("generate ops: %v", err)
	}
	workers, err := parseWorkers(workerList)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("dist: %s, keys: %d, ops: %d, entropy: %.6f\n", dist, n, len(ops), gen.Entropy())
	fmt.Printf("max level: %d, workers: %v\n", cfg.MaxLevel, workers)
	fmt.Println(strings.Repeat("=", 80))

	var expected int
	if verify {
		expected = len(datastream.Expected(ops))
	}

	rows := make([][]string, 0, len(workers))
	var last *store.Store
	for _, w := range workers {
		fmt.Printf("benchmarking %d worker(s)...\n", w)
		stats, sample, err := benchmark(cfg, ops, w, runs, verify)
		if err != nil {
			log.Fatalf("workers=%d: %v", w, err)
		}
		last = sample
		thr := float64(len(ops)) / (stats.avgMs / 1000.0)
		rows = append(rows, []string{
			fmt.Sprintf("%d", w),
			fmt.Sprintf("%d", stats.runs),
			fmt.Sprintf("%.3f", stats.avgMs),
			fmt.Sprintf("%.3f", stats.minMs),
			fmt.Sprintf("%.3f", stats.maxMs),
			fmt.Sprintf("%.2f", thr),
			fmt.Sprintf("%d", sample.Size()),
			fmt.Sprintf("%.3f", avgSteps(sample, gen)),
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Workers", "Runs", "Avg(ms)", "Min(ms)", "Max(ms)", "Ops/s", "Keys", "AvgSteps"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()

	if verify {
		fmt.Printf("reference model keys: %d (verified)\n", expected)
	}
	if last == nil {
		return
	}
	analyTool.PrintLevelCounts(os.Stdout, last.LevelCounts())

	if show > 0 {
		last.PrintStructure(os.Stdout, show)
		_, steps := last.AvgSteps(gen.GetKeyMap())
		shown := analyTool.StepMap[string]{}
		for _, p := range last.Export()[:min(show, last.Size())] {
			shown[p.Key] = steps[p.Key]
		}
		shown.Print(os.Stdout)
	}
	if structCSV != "" {
		if err := writeCSV(structCSV, last.WriteCSV); err != nil {
			log.Fatalf("write %s: %v", structCSV, err)
		}
	}
	if distCSV != "" {
		z, ok := gen.(*datastream.ZipfDataGenerator)
		if !ok {
			log.Fatalf("-distcsv needs -dist zipf")
		}
		if err := writeCSV(distCSV, z.DistributeToCSV); err != nil {
			log.Fatalf("write %s: %v", distCSV, err)
		}
	}
}

func avgSteps(s *store.Store, gen datastream.DataStream) float64 {
	avg, _ := s.AvgSteps(gen.GetKeyMap())
	return avg
}

func writeCSV(path string, fn func(*csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(csv.NewWriter(file)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func newGenerator(dist string, n int, a, b float64, seed int64) (datastream.DataStream, error) {
	switch strings.ToLower(dist) {
	case "zipf":
		if gen := datastream.NewZipfDataGenerator(n, a, b, seed); gen != nil {
			return gen, nil
		}
	case "uniform":
		if gen := datastream.NewUniformDataGenerator(n, seed); gen != nil {
			return gen, nil
		}
	default:
		return nil, fmt.Errorf("unknown -dist: %s", dist)
	}
	return nil, fmt.Errorf("invalid -n: %d", n)
}

func parseWorkers(s string) ([]int, error) {
	var out []int
	seen := map[int]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var w int
		if _, err := fmt.Sscanf(p, "%d", &w); err != nil || w <= 0 {
			return nil, fmt.Errorf("invalid worker count %q", p)
		}
		if !seen[w] {
			out = append(out, w)
			seen[w] = true
		}
	}
	if len(out) == 0 {
		return []int{1}, nil
	}
	return out, nil
}

type benchStats struct {
	runs  int
	avgMs float64
	minMs float64
	maxMs float64
}

// benchmark 每次都建立新的 store 重播 ops，回傳耗時統計與最後一次的 store
func benchmark(cfg config.Config, ops []datastream.Operation, workers, runs int, verify bool) (benchStats, *store.Store, error) {
	runs = max(runs, 1)
	parts := datastream.Partition(ops, workers)
	models := make([]*datastream.SequenceModel, len(parts))
	for i, part := range parts {
		models[i] = datastream.NewSequenceModelFromOps(part)
	}
	durations := make([]float64, 0, runs)
	var sample *store.Store

	for i := 0; i < runs; i++ {
		s, err := store.New(cfg)
		if err != nil {
			return benchStats{}, nil, err
		}
		elapsed, err := replay(s, models)
		if err != nil {
			return benchStats{}, nil, err
		}
		durations = append(durations, float64(elapsed.Microseconds())/1000.0)
		sample = s
	}

	if verify {
		if err := sample.Check(); err != nil {
			return benchStats{}, nil, fmt.Errorf("structure check: %w", err)
		}
		want := datastream.Expected(ops)
		got := sample.Export()
		if len(got) != len(want) {
			return benchStats{}, nil, fmt.Errorf("final state has %d keys, reference has %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				return benchStats{}, nil, fmt.Errorf("pair %d = %v, reference %v", i, got[i], want[i])
			}
		}
	}

	sort.Float64s(durations)
	sum := 0.0
	for _, v := range durations {
		sum += v
	}
	return benchStats{
		runs:  len(durations),
		avgMs: sum / float64(len(durations)),
		minMs: durations[0],
		maxMs: durations[len(durations)-1],
	}, sample, nil
}

// replay 每個 worker 從頭重播自己的 SequenceModel
func replay(s *store.Store, models []*datastream.SequenceModel) (time.Duration, error) {
	var g errgroup.Group
	start := time.Now()
	for _, m := range models {
		m := m
		m.Reset()
		g.Go(func() error {
			for op, ok := m.Next(); ok; op, ok = m.Next() {
				if err := datastream.Apply(s, op); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	return time.Since(start), err
}
