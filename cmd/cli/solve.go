package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edongashi/itc-2019-sub000/internal/checkpoint"
	"github.com/edongashi/itc-2019-sub000/internal/logging"
	"github.com/edongashi/itc-2019-sub000/internal/metrics"
	"github.com/edongashi/itc-2019-sub000/pkg/model"
	"github.com/edongashi/itc-2019-sub000/pkg/problem"
	"github.com/edongashi/itc-2019-sub000/pkg/search"
	"github.com/edongashi/itc-2019-sub000/pkg/solution"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type solveOptions struct {
	file          string
	configFile    string
	yamlFile      string
	timeout       time.Duration
	out           string
	checkpointDir string
	resume        bool
	metricsFile   string
	logLevel      string
	logFormat     string
}

func newSolveCommand() *cobra.Command {
	var options solveOptions
	command := &cobra.Command{
		Use:   "solve",
		Short: "Search a timetable for an instance until the timeout or an interrupt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return solve(cmd.Context(), options)
		},
	}

	flags := command.Flags()
	flags.StringVarP(&options.file, "file", "f", "", "Path to the instance JSON file")
	flags.StringVar(&options.configFile, "config", "", `Tunables file of "name = value" lines`)
	flags.StringVar(&options.yamlFile, "yaml", "", "Tunables file in YAML")
	flags.DurationVarP(&options.timeout, "timeout", "t", 5*time.Minute, "Search duration")
	flags.StringVarP(&options.out, "out", "o", "", "Path to the file where the result will be written; if empty, it'll be written into the Standard Output")
	flags.StringVar(&options.checkpointDir, "checkpoint", "", "Directory of the checkpoint store; if empty, no checkpoints are saved")
	flags.BoolVar(&options.resume, "resume", false, "Start from the latest checkpoint of the instance")
	flags.StringVar(&options.metricsFile, "metrics", "", "Path to a Prometheus textfile written when the search ends")
	flags.StringVar(&options.logLevel, "log-level", "info", "Log level")
	flags.StringVar(&options.logFormat, "log-format", "console", `Log format, "console" or "json"`)
	command.MarkFlagRequired("file")
	command.MarkFlagsMutuallyExclusive("config", "yaml")
	return command
}

func loadConfig(configFile, yamlFile string) (search.Config, error) {
	switch {
	case configFile != "":
		data, err := os.ReadFile(configFile)
		if err != nil {
			return search.Config{}, err
		}
		return search.ParseConfig(string(data))
	case yamlFile != "":
		data, err := os.ReadFile(yamlFile)
		if err != nil {
			return search.Config{}, err
		}
		return search.ParseConfigYAML(data)
	default:
		return search.DefaultConfig(), nil
	}
}

func solve(ctx context.Context, options solveOptions) error {
	if options.resume && options.checkpointDir == "" {
		return errors.New("--resume requires --checkpoint")
	}

	logger, err := logging.New(options.logLevel, options.logFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	//** Load instance and tunables
	config, err := loadConfig(options.configFile, options.yamlFile)
	if err != nil {
		return fmt.Errorf("cannot load tunables: %w", err)
	}
	instance, err := model.InputFromJson(options.file)
	if err != nil {
		return fmt.Errorf("cannot parse input file: %w", err)
	}
	p, err := problem.New(instance, config.CacheSize)
	if err != nil {
		return err
	}
	logger.Info("instance loaded",
		zap.String("name", p.Name),
		zap.Int("classes", len(p.Classes)),
		zap.Int("rooms", len(p.Rooms)),
		zap.Int("students", len(p.Students)),
		zap.Int("constraints", len(p.Constraints)),
		zap.Int("variables", len(p.Variables)),
	)
	if bound, err := p.RoomMatchingBound(); err != nil {
		logger.Warn("room matching bound failed", zap.Error(err))
	} else {
		logger.Info("room conflicts lower bound", zap.Int("bound", bound))
	}

	//** Observers and checkpoints
	observer := metrics.NewSearchObserver()
	observers := search.Observers{observer}

	var store *checkpoint.Store
	var writer *checkpoint.Writer
	var start *solution.Solution
	if options.checkpointDir != "" {
		store, err = checkpoint.Open(options.checkpointDir, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		writer = checkpoint.NewWriter(store, p.Name, logger)
		observers = append(observers, writer)

		if options.resume {
			start, err = resumeFrom(store, p, logger)
			if err != nil {
				return err
			}
		}
	}

	searcher, err := search.New(p, config, logger, observers)
	if err != nil {
		return err
	}

	//** Search until timeout or interrupt
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, options.timeout)
	defer cancel()

	var result search.Result
	group, groupCtx := errgroup.WithContext(ctx)
	if writer != nil {
		group.Go(func() error { return writer.Run(groupCtx) })
	}
	group.Go(func() error {
		if writer != nil {
			defer writer.Close()
		}
		var err error
		result, err = searcher.Run(groupCtx, start)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	//** Report
	if store != nil {
		final := checkpoint.Checkpoint{
			RunID:     result.RunID,
			Instance:  p.Name,
			Iteration: result.Iterations,
			SavedAt:   time.Now().UTC(),
			Result:    result.Best.Result(),
		}
		if err := store.Save(final); err != nil {
			return err
		}
	}
	if options.metricsFile != "" {
		if err := prometheus.WriteToTextfile(options.metricsFile, observer.Registry()); err != nil {
			logger.Warn("cannot write metrics", zap.Error(err))
		}
	}

	logger.Info("best solution",
		zap.Bool("feasible", result.Best.Feasible()),
		zap.Int("hard", result.Best.HardPenalty()),
		zap.Int("soft", result.Best.SoftPenalty()),
		zap.Int("time", result.Best.TimePenalty()),
		zap.Int("room", result.Best.RoomPenalty()),
		zap.Int("distribution", result.Best.DistributionSoftPenalty()),
		zap.Int("student_conflicts", result.Best.StudentConflicts()),
	)
	return writeResult(result.Best.Result(), options.out)
}

func resumeFrom(store *checkpoint.Store, p *problem.Problem, logger *zap.Logger) (*solution.Solution, error) {
	saved, err := store.Latest(p.Name)
	if errors.Is(err, checkpoint.ErrNotFound) {
		logger.Info("no checkpoint to resume from")
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	start, err := solution.New(p, saved.Result.Assignment)
	if err != nil {
		return nil, fmt.Errorf("checkpoint does not fit the instance: %w", err)
	}
	logger.Info("resuming",
		zap.Stringer("run", saved.RunID),
		zap.Int64("iteration", saved.Iteration),
		zap.Int("hard", start.HardPenalty()),
		zap.Int("soft", start.SoftPenalty()),
	)
	return start, nil
}

// writeResult writes the result as JSON into the file out, or to the Standard Output when out is empty
func writeResult(result solution.Result, out string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("an error occurred while building output json: %w", err)
	}

	if out == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(out, data, 0666); err != nil {
		return fmt.Errorf("an error occurred while writing to the output file: %w", err)
	}
	return nil
}
