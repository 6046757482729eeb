package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thyrook/pacer/internal/config"
	"github.com/thyrook/pacer/internal/schedule"
	"github.com/thyrook/pacer/internal/viz"
)

// previewOptimizer holds rates in memory so schedules can be rendered
// without a training run
type previewOptimizer struct {
	lrs []float64
}

func (p *previewOptimizer) NumParamGroups() int {
	return len(p.lrs)
}

func (p *previewOptimizer) LearningRate(group int) float64 {
	return p.lrs[group]
}

func (p *previewOptimizer) SetLearningRate(group int, lr float64) {
	p.lrs[group] = lr
}

func main() {
	// Command-line flags
	configPath := flag.String("config", "config.json", "Path to configuration file")
	outPath := flag.String("out", "schedule.png", "Output image file (.png or .svg)")
	group := flag.Int("group", 0, "Parameter group to plot")
	title := flag.String("title", "", "Plot title (default derives from the schedule)")
	width := flag.Float64("width", 0, "Plot width in inches (0 = default)")
	height := flag.Float64("height", 0, "Plot height in inches (0 = default)")
	preset := flag.String("preset", "", "Canonical shape instead of the configured schedule: warmup, cosine, plateau, complete, or all")

	flag.Parse()

	fmt.Println("Schedule Plotter")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	cfg := config.LoadOrDefault(*configPath)

	baseLRs := cfg.Schedule.BaseLRs
	if len(baseLRs) == 0 {
		fmt.Fprintf(os.Stderr, "No base learning rates configured\n")
		os.Exit(1)
	}

	source := *configPath
	if *preset != "" {
		source = "preset: " + *preset
	}

	fmt.Println("Rendering Configuration:")
	fmt.Printf("  Source:    %s\n", source)
	fmt.Printf("  Output:    %s\n", *outPath)
	fmt.Printf("  Group:     %d\n", *group)
	fmt.Println()

	opts := viz.Options{
		Title:  *title,
		Group:  *group,
		Width:  *width,
		Height: *height,
	}

	if *preset == "all" {
		for _, name := range []string{"warmup", "cosine", "plateau", "complete"} {
			out := suffixPath(*outPath, name)
			if err := render(presetConfig(name, baseLRs), baseLRs, out, opts); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to render %s: %v\n", name, err)
				os.Exit(1)
			}
			fmt.Printf("✓ Saved %s schedule to: %s\n", name, out)
		}
		return
	}

	schedCfg := cfg.Schedule.ToScheduleConfig(-1)
	if *preset != "" {
		schedCfg = presetConfig(*preset, baseLRs)
		if schedCfg.TotalSteps == 0 {
			fmt.Fprintf(os.Stderr, "Unknown preset: %q\n", *preset)
			os.Exit(1)
		}
	}

	if err := render(schedCfg, baseLRs, *outPath, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Saved schedule to: %s\n", *outPath)
}

// render plans the schedule, prints its shape and writes the image
func render(schedCfg schedule.Config, baseLRs []float64, outPath string, opts viz.Options) error {
	opt := &previewOptimizer{lrs: make([]float64, len(baseLRs))}
	copy(opt.lrs, baseLRs)

	s, err := schedule.New(opt, schedCfg, nil)
	if err != nil {
		return fmt.Errorf("failed to plan schedule: %w", err)
	}

	fmt.Printf("  %d steps, %d warmup, %d plateaus, effective total %d\n",
		s.TotalSteps(), s.WarmupSteps(), len(s.GetPlateaus()), s.EffectiveTotal())

	return viz.RenderSchedule(s, outPath, opts)
}

// presetConfig returns a canonical schedule shape for visual comparison.
// Unknown names return a zero config.
func presetConfig(name string, baseLRs []float64) schedule.Config {
	base := schedule.Config{
		TotalSteps: 1000,
		MinLRRatio: 0.1,
		BaseLRs:    baseLRs,
		LastStep:   -1,
	}

	switch name {
	case "warmup":
		base.WarmupSteps = 1000
	case "cosine":
		// Bare decay, defaults already describe it
	case "plateau":
		base.Plateaus = []schedule.PlateauSpec{
			{PositionPct: 20, DurationPct: 20},
			{PositionPct: 60, DurationPct: 15},
		}
	case "complete":
		base.WarmupSteps = 100
		base.Plateaus = []schedule.PlateauSpec{
			{PositionPct: 30, DurationPct: 15},
			{PositionPct: 65, DurationPct: 10},
		}
	default:
		return schedule.Config{}
	}

	return base
}

// suffixPath inserts a name before the file extension
func suffixPath(path, name string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + name + ext
}
