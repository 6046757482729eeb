package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/thyrook/pacer/internal/config"
	"github.com/thyrook/pacer/internal/logging"
	"github.com/thyrook/pacer/internal/optim"
	"github.com/thyrook/pacer/internal/schedule"
	"github.com/thyrook/pacer/internal/storage"
	"github.com/thyrook/pacer/internal/train"
	"github.com/thyrook/pacer/internal/viz"
)

func main() {
	// Command-line flags
	configPath := flag.String("config", "config.json", "Path to configuration file")
	runID := flag.String("run", "demo", "Run ID for checkpointing")
	steps := flag.Int("steps", 0, "Steps to run this invocation (0 = rest of the schedule)")
	resume := flag.Bool("resume", false, "Resume the run from its saved state")
	objectiveName := flag.String("objective", "quadratic", "Objective to minimize (quadratic or rosenbrock)")
	optimizerName := flag.String("optimizer", "", "Override the configured optimizer (adam or sgd)")
	plotPath := flag.String("plot", "", "Render the learning-rate schedule to this file")
	lossPlotPath := flag.String("loss-plot", "", "Render the loss curve to this file")

	flag.Parse()

	fmt.Println("Pacer Training Demo")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	// Load configuration
	cfg := config.LoadOrDefault(*configPath)
	if *optimizerName != "" {
		cfg.Training.Optimizer = *optimizerName
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if len(cfg.Schedule.BaseLRs) == 0 {
		fmt.Fprintf(os.Stderr, "No base learning rates configured\n")
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare directories: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development, cfg.Logging.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fmt.Println("Training Configuration:")
	fmt.Printf("  Run ID:          %s\n", *runID)
	fmt.Printf("  Total steps:     %d\n", cfg.Schedule.TotalSteps)
	fmt.Printf("  Warmup steps:    %d\n", cfg.Schedule.WarmupSteps)
	fmt.Printf("  Min LR ratio:    %.2f\n", cfg.Schedule.MinLRRatio)
	fmt.Printf("  Base LRs:        %v\n", cfg.Schedule.BaseLRs)
	fmt.Printf("  Plateaus:        %d\n", len(cfg.Schedule.Plateaus))
	fmt.Printf("  Optimizer:       %s\n", cfg.Training.Optimizer)
	fmt.Printf("  Objective:       %s\n", *objectiveName)
	fmt.Printf("  Run store:       %s\n", cfg.Storage.DBPath)
	fmt.Println()

	// Open run store
	store, err := storage.NewRunStore(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open run store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Look up saved state
	lastStep := -1
	if *resume {
		lastStep, err = train.ResumeStep(store, *runID, cfg.Schedule.ToScheduleConfig(-1))
		if err != nil {
			if errors.Is(err, storage.ErrFingerprintMismatch) {
				fmt.Fprintf(os.Stderr, "Cannot resume: %v\n", err)
				fmt.Fprintf(os.Stderr, "Delete the run or restore its original schedule settings.\n")
			} else {
				fmt.Fprintf(os.Stderr, "Failed to look up run: %v\n", err)
			}
			os.Exit(1)
		}

		if lastStep >= 0 {
			fmt.Printf("✓ Resuming run %q from step %d\n", *runID, lastStep)
		} else {
			fmt.Printf("No saved state for run %q, starting fresh\n", *runID)
		}
	}

	// Build the objective and one parameter group per base rate
	objective, params := buildObjective(*objectiveName, cfg.Training.Seed, len(cfg.Schedule.BaseLRs))
	if objective == nil {
		fmt.Fprintf(os.Stderr, "Unknown objective: %q\n", *objectiveName)
		os.Exit(1)
	}

	groups := make([]*optim.Group, len(cfg.Schedule.BaseLRs))
	for g := range groups {
		groups[g] = optim.NewGroup(fmt.Sprintf("group%d", g), params[g], cfg.Schedule.BaseLRs[g])
	}

	var opt train.Optimizer
	if cfg.Training.Optimizer == "sgd" {
		opt, err = optim.NewSGD(groups, cfg.Training.Momentum)
	} else {
		opt, err = optim.NewAdam(groups)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create optimizer: %v\n", err)
		os.Exit(1)
	}

	// Plan the schedule, re-applying the resumed step if any
	sched, err := schedule.New(opt, cfg.Schedule.ToScheduleConfig(lastStep), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to plan schedule: %v\n", err)
		os.Exit(1)
	}

	trainer, err := train.New(opt, objective, sched, store, train.Config{
		RunID:              *runID,
		Steps:              *steps,
		LogInterval:        cfg.Training.LogInterval,
		CheckpointInterval: cfg.Training.CheckpointInterval,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create trainer: %v\n", err)
		os.Exit(1)
	}

	// Train until done or interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Starting training...")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	interrupted := false
	if err := trainer.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			interrupted = true
			fmt.Println("\n⚠ Training interrupted, state saved")
		} else {
			fmt.Fprintf(os.Stderr, "\nTraining failed: %v\n", err)
			os.Exit(1)
		}
	}

	metrics := trainer.GetMetrics()
	recordHistory(cfg, *runID, metrics)

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	if interrupted {
		fmt.Printf("Run %q stopped at step %d, resume with -resume\n", *runID, sched.GetLastStep())
	} else {
		fmt.Println("Training completed successfully!")
	}

	// Show final metrics
	if len(metrics) > 0 {
		final := metrics[len(metrics)-1]
		fmt.Println()
		fmt.Println("Final Results:")
		fmt.Printf("  Final step:     %d\n", final.Step)
		fmt.Printf("  Final loss:     %.6f\n", final.Loss)
		fmt.Printf("  Final LRs:      %v\n", final.LearningRates)
		fmt.Printf("  Steps this run: %d\n", len(metrics))

		if len(groups[0].Params) <= 8 {
			fmt.Printf("  Parameters:     %v\n", groups[0].Params)
		}
	}

	// Optional renderings
	if *plotPath != "" {
		if err := viz.RenderSchedule(sched, *plotPath, viz.Options{}); err != nil {
			fmt.Printf("⚠ Failed to render schedule: %v\n", err)
		} else {
			fmt.Printf("✓ Schedule plot saved to: %s\n", *plotPath)
		}
	}

	if *lossPlotPath != "" && len(metrics) > 0 {
		xs := make([]float64, len(metrics))
		ys := make([]float64, len(metrics))
		for i, m := range metrics {
			xs[i] = float64(m.Step)
			ys[i] = m.Loss
		}

		if err := viz.RenderSeries(xs, ys, "Training Loss", "step", "loss", *lossPlotPath); err != nil {
			fmt.Printf("⚠ Failed to render loss curve: %v\n", err)
		} else {
			fmt.Printf("✓ Loss plot saved to: %s\n", *lossPlotPath)
		}
	}
}

// buildObjective returns the named objective and a seeded starting point for
// each parameter group. Seeded starts keep repeated invocations comparable.
func buildObjective(name string, seed int64, numGroups int) (train.Objective, [][]float64) {
	rng := rand.New(rand.NewSource(seed))
	params := make([][]float64, numGroups)

	switch name {
	case "quadratic":
		target := []float64{1.0, -2.0, 3.0, 0.5}
		for g := range params {
			p := make([]float64, len(target))
			for i := range p {
				p[i] = rng.NormFloat64()
			}
			params[g] = p
		}
		return train.Quadratic(target), params

	case "rosenbrock":
		for g := range params {
			params[g] = []float64{
				-1.2 + 0.1*rng.NormFloat64(),
				1.0 + 0.1*rng.NormFloat64(),
			}
		}
		return train.Rosenbrock(), params

	default:
		return nil, nil
	}
}

// recordHistory appends the sampled progress of this invocation to the
// bounded metrics history. Failures only warn; the run itself succeeded.
func recordHistory(cfg *config.Config, runID string, metrics []train.StepMetrics) {
	if cfg.Storage.HistoryPath == "" || len(metrics) == 0 {
		return
	}

	history, err := storage.NewMetricsStore(cfg.Storage.HistoryPath, storage.DefaultHistorySize)
	if err != nil {
		fmt.Printf("⚠ Failed to open metrics history: %v\n", err)
		return
	}
	defer history.Close()

	interval := cfg.Training.LogInterval
	for i, m := range metrics {
		if (i+1)%interval != 0 && i != len(metrics)-1 {
			continue
		}
		err := history.Append(storage.StepRecord{
			RunID:         runID,
			Step:          m.Step,
			Loss:          m.Loss,
			LearningRates: m.LearningRates,
		})
		if err != nil {
			fmt.Printf("⚠ Failed to record metrics: %v\n", err)
			return
		}
	}
}
