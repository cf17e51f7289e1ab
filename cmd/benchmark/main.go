package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/edongashi/itc-2019-sub000/internal/fixture"
	"github.com/edongashi/itc-2019-sub000/internal/logging"
	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/edongashi/itc-2019-sub000/pkg/problem"
	"github.com/edongashi/itc-2019-sub000/pkg/search"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type TestMetadata struct {
	Name        string
	Rooms       int
	Classes     int
	Students    int
	Constraints int
	Variables   int
}

type BenchmarkResult struct {
	Test       TestMetadata
	Seed       uint64
	Duration   int64
	Iterations int64
	Cycles     int
	Hard       int
	Soft       int
	Feasible   bool
}

type benchmarkOptions struct {
	directory string
	generate  int
	seeds     int
	timeout   time.Duration
	out       string
	logLevel  string
}

func main() {
	var options benchmarkOptions
	command := &cobra.Command{
		Use:   "benchmark",
		Short: "Run the search over a set of instances and write the results as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return benchmark(cmd.Context(), options)
		},
	}
	flags := command.Flags()
	flags.StringVarP(&options.directory, "dir", "d", "", "Directory of instance JSON files")
	flags.IntVarP(&options.generate, "generate", "g", 0, "Number of generated instances to add")
	flags.IntVar(&options.seeds, "seeds", 1, "Runs per instance, each with its own seed")
	flags.DurationVarP(&options.timeout, "timeout", "t", 30*time.Second, "Search duration of every run")
	flags.StringVarP(&options.out, "out", "o", "benchmark_results.csv", "Path to the CSV file")
	flags.StringVar(&options.logLevel, "log-level", "warn", "Log level")

	if err := command.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

type test struct {
	metadata TestMetadata
	problem  *problem.Problem
}

func benchmark(ctx context.Context, options benchmarkOptions) error {
	logger, err := logging.New(options.logLevel, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	tests, err := getTests(options.directory, options.generate)
	if err != nil {
		return err
	}
	results := make([]BenchmarkResult, 0, len(tests)*options.seeds)

	for _, test := range tests {
		for seed := range uint64(options.seeds) {
			logger.Info("benchmarking", zap.String("test", test.metadata.Name), zap.Uint64("seed", seed))
			result, err := measure(ctx, test, seed, options.timeout, logger)
			if err != nil {
				return fmt.Errorf("test %v with seed %v: %w", test.metadata.Name, seed, err)
			}
			results = append(results, result)
		}
	}

	file, err := os.Create(options.out)
	if err != nil {
		return fmt.Errorf("cannot create CSV file: %w", err)
	}
	defer file.Close()
	return toCsv(file, results)
}

// getTests loads every JSON instance of directory and appends count generated instances
func getTests(directory string, count int) ([]test, error) {
	var instances []model.Instance
	if directory != "" {
		files, err := filepath.Glob(filepath.Join(directory, "*.json"))
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			instance, err := model.InputFromJson(file)
			if err != nil {
				return nil, fmt.Errorf("cannot parse input file %v: %w", file, err)
			}
			if instance.Name == "" {
				instance.Name = filepath.Base(file)
			}
			instances = append(instances, instance)
		}
	}
	for i := range count {
		instance := fixture.GenerateInstance(rand.New(rand.NewPCG(uint64(i), 0)), fixture.DefaultOptions())
		instance.Name = fmt.Sprintf("generated-%v", i)
		instances = append(instances, instance)
	}

	tests := make([]test, 0, len(instances))
	for _, instance := range instances {
		p, err := problem.New(instance, search.DefaultConfig().CacheSize)
		if err != nil {
			return nil, fmt.Errorf("instance %v: %w", instance.Name, err)
		}
		tests = append(tests, test{
			problem: p,
			metadata: TestMetadata{
				Name:        p.Name,
				Rooms:       len(p.Rooms),
				Classes:     len(p.Classes),
				Students:    len(p.Students),
				Constraints: len(p.Constraints),
				Variables:   len(p.Variables),
			},
		})
	}
	return tests, nil
}

func measure(ctx context.Context, test test, seed uint64, timeout time.Duration, logger *zap.Logger) (BenchmarkResult, error) {
	config := search.DefaultConfig()
	config.Seed = seed
	searcher, err := search.New(test.problem, config, logger, nil)
	if err != nil {
		return BenchmarkResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	result, err := searcher.Run(ctx, nil)
	if err != nil {
		return BenchmarkResult{}, err
	}

	return BenchmarkResult{
		Test:       test.metadata,
		Seed:       seed,
		Duration:   result.Elapsed.Milliseconds(),
		Iterations: result.Iterations,
		Cycles:     result.Cycles,
		Hard:       result.Best.HardPenalty(),
		Soft:       result.Best.SoftPenalty(),
		Feasible:   result.Best.Feasible(),
	}, nil
}

func toCsv(out io.Writer, results []BenchmarkResult) error {
	writer := csv.NewWriter(out)

	header := []string{"Test", "Rooms", "Classes", "Students", "Constraints", "Variables", "Seed", "Duration(ms)", "Iterations", "Cycles", "Hard", "Soft", "Feasible"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}

	records := lo.Map(results, func(result BenchmarkResult, _ int) []string {
		return []string{
			result.Test.Name,
			fmt.Sprintf("%d", result.Test.Rooms),
			fmt.Sprintf("%d", result.Test.Classes),
			fmt.Sprintf("%d", result.Test.Students),
			fmt.Sprintf("%d", result.Test.Constraints),
			fmt.Sprintf("%d", result.Test.Variables),
			fmt.Sprintf("%d", result.Seed),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%d", result.Iterations),
			fmt.Sprintf("%d", result.Cycles),
			fmt.Sprintf("%d", result.Hard),
			fmt.Sprintf("%d", result.Soft),
			fmt.Sprintf("%v", result.Feasible),
		}
	})
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("cannot write CSV records: %w", err)
	}
	return nil
}
