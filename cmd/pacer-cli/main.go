package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/thyrook/pacer/internal/config"
	"github.com/thyrook/pacer/internal/schedule"
	"github.com/thyrook/pacer/internal/storage"
	"github.com/thyrook/pacer/internal/viz"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   P.A.C.E.R - Plateau-Aware Cosine schedule Explorer      ║
║                    and Runner                             ║
║                                                           ║
║                    Version %s                          ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
)

// previewOptimizer holds rates in memory so schedules can be inspected
// without a real training run
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

type CLI struct {
	cfg        *config.Config
	configPath string
	running    bool
}

func main() {
	// Command-line flags; any action flag runs non-interactively
	configPath := flag.String("config", "config.json", "Path to configuration file")
	showPlan := flag.Bool("plan", false, "Print the resolved schedule plan and exit")
	simulate := flag.Int("simulate", 0, "Simulate N steps and exit")
	exportPath := flag.String("export", "", "Export the schedule as CSV to the given file and exit")
	plotPath := flag.String("plot", "", "Render the schedule to the given image file and exit")
	group := flag.Int("group", 0, "Parameter group for -plot")

	flag.Parse()

	cli := &CLI{
		cfg:        config.LoadOrDefault(*configPath),
		configPath: *configPath,
		running:    true,
	}

	if *showPlan || *simulate > 0 || *exportPath != "" || *plotPath != "" {
		cli.runActions(*showPlan, *simulate, *exportPath, *plotPath, *group)
		return
	}

	fmt.Printf(banner, version)
	fmt.Println()

	// Show main menu
	cli.mainMenu()
}

// runActions executes the flag-driven actions in a fixed order
func (c *CLI) runActions(showPlan bool, simulate int, exportPath, plotPath string, group int) {
	s, err := c.buildScheduler()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid schedule: %v\n", err)
		os.Exit(1)
	}

	if showPlan {
		c.printPlan(s)
	}

	if simulate > 0 {
		c.runSimulation(s, simulate, func(step int) string { return phaseAt(s, step) })
		// The simulation advanced the counter; later actions evaluate
		// through GetLR and are unaffected.
	}

	if exportPath != "" {
		if err := exportScheduleCSV(s, exportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to export: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Exported to: %s\n", exportPath)
	}

	if plotPath != "" {
		if err := viz.RenderSchedule(s, plotPath, viz.Options{Group: group}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Plot saved to: %s\n", plotPath)
	}
}

func (c *CLI) mainMenu() {
	reader := bufio.NewReader(os.Stdin)

	for c.running {
		fmt.Println("\n" + strings.Repeat("=", 60))
		fmt.Println("MAIN MENU")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Println("1. Schedule Inspection")
		fmt.Println("2. Schedule Simulation")
		fmt.Println("3. Run Management")
		fmt.Println("4. Configuration")
		fmt.Println("5. Help")
		fmt.Println("0. Exit")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			c.inspectionMenu()
		case "2":
			c.simulateMenu()
		case "3":
			c.runMenu()
		case "4":
			c.configMenu()
		case "5":
			c.showHelp()
		case "0":
			c.running = false
			fmt.Println("\n✓ Goodbye!")
		default:
			fmt.Println("Invalid option")
		}
	}
}

// buildScheduler constructs a fresh scheduler from the current settings
func (c *CLI) buildScheduler() (*schedule.Scheduler, error) {
	opt := &previewOptimizer{lrs: make([]float64, len(c.cfg.Schedule.BaseLRs))}
	copy(opt.lrs, c.cfg.Schedule.BaseLRs)

	return schedule.New(opt, c.cfg.Schedule.ToScheduleConfig(-1), nil)
}

func (c *CLI) inspectionMenu() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\n" + strings.Repeat("-", 60))
		fmt.Println("SCHEDULE INSPECTION")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println("1. View plan summary")
		fmt.Println("2. Evaluate at step")
		fmt.Println("3. Export CSV")
		fmt.Println("4. Render plot")
		fmt.Println("0. Back to main menu")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			c.showPlan()
		case "2":
			c.evaluateStep()
		case "3":
			c.exportCSV()
		case "4":
			c.renderPlot()
		case "0":
			return
		default:
			fmt.Println("Invalid option")
		}
	}
}

func (c *CLI) showPlan() {
	s, err := c.buildScheduler()
	if err != nil {
		fmt.Printf("Invalid schedule: %v\n", err)
		return
	}
	c.printPlan(s)
}

func (c *CLI) printPlan(s *schedule.Scheduler) {
	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Println("SCHEDULE PLAN")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Total steps:        %d\n", s.TotalSteps())
	fmt.Printf("Warmup steps:       %d\n", s.WarmupSteps())
	fmt.Printf("Post-warmup steps:  %d\n", s.PostWarmupSteps())
	fmt.Printf("Effective total:    %d (plateau time excluded)\n", s.EffectiveTotal())
	fmt.Printf("Parameter groups:   %d\n", s.NumGroups())

	base := s.BaseLRs()
	floor := s.MinLRs()
	for g := range base {
		fmt.Printf("  Group %d:          base %.6g, floor %.6g\n", g, base[g], floor[g])
	}

	plateaus := s.GetPlateaus()
	if len(plateaus) > 0 {
		fmt.Println("\nPlateaus (absolute steps):")
		warmup := s.WarmupSteps()
		for i, pl := range plateaus {
			fmt.Printf("  %d. [%d, %d)  %d steps at %.6g\n",
				i+1, warmup+pl.Start, warmup+pl.End, pl.End-pl.Start, pl.LRs[0])
		}
	}

	fmt.Println("\nSegments (post-warmup steps):")
	for i, seg := range s.GetSegments() {
		switch seg.Kind {
		case schedule.KindPlateau:
			fmt.Printf("  %d. %-8s [%d, %d)  constant %.6g\n",
				i+1, seg.Kind, seg.Start, seg.End, seg.LRs[0])
		default:
			fmt.Printf("  %d. %-8s [%d, %d)  %.6g → %.6g\n",
				i+1, seg.Kind, seg.Start, seg.End, seg.StartLRs[0], seg.EndLRs[0])
		}
	}
	fmt.Println(strings.Repeat("-", 60))
}

func (c *CLI) evaluateStep() {
	reader := bufio.NewReader(os.Stdin)

	s, err := c.buildScheduler()
	if err != nil {
		fmt.Printf("Invalid schedule: %v\n", err)
		return
	}

	fmt.Print("\nStep to evaluate: ")
	input, _ := reader.ReadString('\n')
	step, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		fmt.Println("Invalid step")
		return
	}

	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Printf("Step %d (%s)\n", step, phaseAt(s, step))
	fmt.Println(strings.Repeat("-", 60))

	for g := 0; g < s.NumGroups(); g++ {
		lr, err := s.GetLR(step, g)
		if err != nil {
			fmt.Printf("Failed to evaluate: %v\n", err)
			return
		}
		fmt.Printf("  Group %d:  %.8f\n", g, lr)
	}
	fmt.Println(strings.Repeat("-", 60))
}

// phaseAt names the schedule phase a step falls in
func phaseAt(s *schedule.Scheduler, step int) string {
	if step < 0 {
		return "invalid"
	}
	if step < s.WarmupSteps() {
		return "warmup"
	}

	pos := step - s.WarmupSteps()
	for _, seg := range s.GetSegments() {
		if pos >= seg.Start && pos < seg.End {
			return seg.Kind.String()
		}
	}
	return "final"
}

// exportScheduleCSV writes the full step-by-step curve for every group
func exportScheduleCSV(s *schedule.Scheduler, outFile string) error {
	file, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"step", "phase"}
	for g := 0; g < s.NumGroups(); g++ {
		header = append(header, fmt.Sprintf("lr_group%d", g))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for step := 0; step < s.TotalSteps(); step++ {
		row := []string{strconv.Itoa(step), phaseAt(s, step)}
		for g := 0; g < s.NumGroups(); g++ {
			lr, err := s.GetLR(step, g)
			if err != nil {
				return fmt.Errorf("failed to evaluate step %d: %w", step, err)
			}
			row = append(row, strconv.FormatFloat(lr, 'g', 12, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func (c *CLI) exportCSV() {
	reader := bufio.NewReader(os.Stdin)

	s, err := c.buildScheduler()
	if err != nil {
		fmt.Printf("Invalid schedule: %v\n", err)
		return
	}

	fmt.Print("\nOutput file (e.g., schedule.csv): ")
	outFile, _ := reader.ReadString('\n')
	outFile = strings.TrimSpace(outFile)
	if outFile == "" {
		fmt.Println("Cancelled")
		return
	}

	fmt.Printf("\nExporting %d steps...\n", s.TotalSteps())
	if err := exportScheduleCSV(s, outFile); err != nil {
		fmt.Printf("Failed to export: %v\n", err)
		return
	}

	fmt.Printf("✓ Exported to: %s\n", outFile)
}

func (c *CLI) renderPlot() {
	reader := bufio.NewReader(os.Stdin)

	s, err := c.buildScheduler()
	if err != nil {
		fmt.Printf("Invalid schedule: %v\n", err)
		return
	}

	fmt.Print("\nOutput file (e.g., schedule.png): ")
	outFile, _ := reader.ReadString('\n')
	outFile = strings.TrimSpace(outFile)
	if outFile == "" {
		fmt.Println("Cancelled")
		return
	}

	group := 0
	if s.NumGroups() > 1 {
		fmt.Printf("Group to plot (0-%d, default 0): ", s.NumGroups()-1)
		input, _ := reader.ReadString('\n')
		if g, err := strconv.Atoi(strings.TrimSpace(input)); err == nil {
			group = g
		}
	}

	fmt.Println("\nRendering...")
	if err := viz.RenderSchedule(s, outFile, viz.Options{Group: group}); err != nil {
		fmt.Printf("Failed to render: %v\n", err)
		return
	}

	fmt.Printf("✓ Plot saved to: %s\n", outFile)
}

func (c *CLI) simulateMenu() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Println("SCHEDULE SIMULATION")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("1. Warmup + cosine (configured plan)")
	fmt.Println("2. Step decay")
	fmt.Println("3. Exponential decay")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Print("\nSelect family (default 1): ")

	family, _ := reader.ReadString('\n')
	family = strings.TrimSpace(family)

	defaultSteps := c.cfg.Schedule.TotalSteps
	fmt.Printf("Steps to simulate (default %d): ", defaultSteps)
	input, _ := reader.ReadString('\n')
	steps := defaultSteps
	if n, err := strconv.Atoi(strings.TrimSpace(input)); err == nil && n > 0 {
		steps = n
	}

	switch family {
	case "2":
		fmt.Print("Decay rate (default 0.95): ")
		rate := readFloat(reader, 0.95)
		fmt.Print("Decay every N steps (default 100): ")
		every := readInt(reader, 100)

		s, err := schedule.NewStepDecay(c.newPreviewOptimizer(), rate, every, c.cfg.Schedule.MinLRRatio)
		if err != nil {
			fmt.Printf("Invalid schedule: %v\n", err)
			return
		}
		c.runSimulation(s, steps, func(int) string { return "decay" })

	case "3":
		fmt.Print("Decay rate per step (default 0.999): ")
		rate := readFloat(reader, 0.999)

		s, err := schedule.NewExponential(c.newPreviewOptimizer(), rate, c.cfg.Schedule.MinLRRatio)
		if err != nil {
			fmt.Printf("Invalid schedule: %v\n", err)
			return
		}
		c.runSimulation(s, steps, func(int) string { return "decay" })

	default:
		s, err := c.buildScheduler()
		if err != nil {
			fmt.Printf("Invalid schedule: %v\n", err)
			return
		}
		c.runSimulation(s, steps, func(step int) string { return phaseAt(s, step) })
	}
}

func (c *CLI) newPreviewOptimizer() *previewOptimizer {
	opt := &previewOptimizer{lrs: make([]float64, len(c.cfg.Schedule.BaseLRs))}
	copy(opt.lrs, c.cfg.Schedule.BaseLRs)
	return opt
}

// runSimulation drives any schedule through the given number of steps and
// charts the first group's rate
func (c *CLI) runSimulation(s schedule.Schedule, steps int, phase func(step int) string) {
	rates := make([]float64, steps)

	startTime := time.Now()
	for i := 0; i < steps; i++ {
		rates[i] = s.Step()[0]
	}
	elapsed := time.Since(startTime)

	maxLR := 0.0
	for _, lr := range rates {
		if lr > maxLR {
			maxLR = lr
		}
	}

	sample := steps / 20
	if sample < 1 {
		sample = 1
	}

	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Printf("%-8s %-10s %-12s %s\n", "Step", "Phase", "LR", "Bar")
	fmt.Println(strings.Repeat("-", 60))

	for step := 0; step < steps; step++ {
		if step%sample != 0 && step != steps-1 {
			continue
		}
		barLen := 0
		if maxLR > 0 {
			barLen = int(rates[step] / maxLR * 40)
		}
		bar := strings.Repeat("█", barLen)
		fmt.Printf("%-8d %-10s %.8f  %s\n", step, phase(step), rates[step], bar)
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Simulated %d steps in %v (%.0f steps/sec)\n",
		steps, elapsed, float64(steps)/elapsed.Seconds())
	fmt.Println(strings.Repeat("-", 60))
}

func readFloat(reader *bufio.Reader, def float64) float64 {
	input, _ := reader.ReadString('\n')
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return def
	}
	return v
}

func readInt(reader *bufio.Reader, def int) int {
	input, _ := reader.ReadString('\n')
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return def
	}
	return v
}

func (c *CLI) runMenu() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\n" + strings.Repeat("-", 60))
		fmt.Println("RUN MANAGEMENT")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println("1. List saved runs")
		fmt.Println("2. Recent training metrics")
		fmt.Println("3. Store statistics")
		fmt.Println("4. Delete a run")
		fmt.Println("5. Clear all runs")
		fmt.Println("0. Back to main menu")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			c.listRuns()
		case "2":
			c.showHistory()
		case "3":
			c.showStoreStats()
		case "4":
			c.deleteRun()
		case "5":
			c.clearRuns()
		case "0":
			return
		default:
			fmt.Println("Invalid option")
		}
	}
}

// openStore opens the run store at the configured path
func (c *CLI) openStore() (*storage.RunStore, error) {
	if err := c.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return storage.NewRunStore(c.cfg.Storage.DBPath)
}

func (c *CLI) listRuns() {
	store, err := c.openStore()
	if err != nil {
		fmt.Printf("Failed to open run store: %v\n", err)
		return
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		fmt.Printf("Failed to list runs: %v\n", err)
		return
	}

	if len(runs) == 0 {
		fmt.Println("\nNo saved runs")
		return
	}

	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Println("SAVED RUNS")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("%-20s %-10s %-12s %s\n", "Run ID", "Last step", "Fingerprint", "Updated")
	fmt.Println(strings.Repeat("-", 60))

	for _, run := range runs {
		fp := run.Fingerprint
		if len(fp) > 10 {
			fp = fp[:10]
		}
		fmt.Printf("%-20s %-10d %-12s %s\n",
			run.RunID, run.LastStep, fp,
			time.Unix(run.UpdatedAt, 0).Format("2006-01-02 15:04:05"))
	}
	fmt.Println(strings.Repeat("-", 60))
}

func (c *CLI) showHistory() {
	reader := bufio.NewReader(os.Stdin)

	if err := c.cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to prepare storage: %v\n", err)
		return
	}

	history, err := storage.NewMetricsStore(c.cfg.Storage.HistoryPath, storage.DefaultHistorySize)
	if err != nil {
		fmt.Printf("Failed to open metrics history: %v\n", err)
		return
	}
	defer history.Close()

	fmt.Print("\nRecords to show (default 20): ")
	n := readInt(reader, 20)

	records, err := history.GetRecent(n)
	if err != nil {
		fmt.Printf("Failed to load metrics: %v\n", err)
		return
	}

	if len(records) == 0 {
		fmt.Println("No training metrics recorded yet")
		return
	}

	maxLoss := 0.0
	for _, r := range records {
		if r.Loss > maxLoss {
			maxLoss = r.Loss
		}
	}

	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Printf("%-14s %-8s %-12s %-12s %s\n", "Run", "Step", "Loss", "LR", "Loss bar")
	fmt.Println(strings.Repeat("-", 60))

	for _, r := range records {
		lr := 0.0
		if len(r.LearningRates) > 0 {
			lr = r.LearningRates[0]
		}
		barLen := 0
		if maxLoss > 0 {
			barLen = int(r.Loss / maxLoss * 30)
		}
		fmt.Printf("%-14s %-8d %-12.6f %-12.8f %s\n",
			r.RunID, r.Step, r.Loss, lr, strings.Repeat("█", barLen))
	}
	fmt.Println(strings.Repeat("-", 60))
}

func (c *CLI) showStoreStats() {
	store, err := c.openStore()
	if err != nil {
		fmt.Printf("Failed to open run store: %v\n", err)
		return
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		fmt.Printf("Failed to get stats: %v\n", err)
		return
	}

	info, err := os.Stat(stats.DBPath)
	size := int64(0)
	if err == nil {
		size = info.Size()
	}

	fmt.Println("\n" + strings.Repeat("-", 60))
	fmt.Println("RUN STORE")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Path:        %s\n", stats.DBPath)
	fmt.Printf("Saved runs:  %d\n", stats.NumRuns)
	fmt.Printf("Size:        %.2f KB\n", float64(size)/1024)
	fmt.Println(strings.Repeat("-", 60))
}

func (c *CLI) deleteRun() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("\nRun ID to delete: ")
	runID, _ := reader.ReadString('\n')
	runID = strings.TrimSpace(runID)
	if runID == "" {
		fmt.Println("Cancelled")
		return
	}

	store, err := c.openStore()
	if err != nil {
		fmt.Printf("Failed to open run store: %v\n", err)
		return
	}
	defer store.Close()

	if err := store.DeleteRun(runID); err != nil {
		fmt.Printf("Failed to delete run: %v\n", err)
		return
	}

	fmt.Printf("✓ Deleted run: %s\n", runID)
}

func (c *CLI) clearRuns() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("\nDelete ALL saved runs? (y/n): ")
	confirm, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(confirm)) != "y" {
		fmt.Println("Cancelled")
		return
	}

	store, err := c.openStore()
	if err != nil {
		fmt.Printf("Failed to open run store: %v\n", err)
		return
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		fmt.Printf("Failed to clear runs: %v\n", err)
		return
	}

	fmt.Println("✓ All runs cleared")
}

func (c *CLI) configMenu() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\n" + strings.Repeat("-", 60))
		fmt.Println("CONFIGURATION")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("Current Settings:\n")
		fmt.Printf("  Total steps:   %d\n", c.cfg.Schedule.TotalSteps)
		fmt.Printf("  Warmup steps:  %d\n", c.cfg.Schedule.WarmupSteps)
		fmt.Printf("  Min LR ratio:  %g\n", c.cfg.Schedule.MinLRRatio)
		fmt.Printf("  Base LRs:      %v\n", c.cfg.Schedule.BaseLRs)
		fmt.Printf("  Plateaus:      %d\n", len(c.cfg.Schedule.Plateaus))
		for i, pl := range c.cfg.Schedule.Plateaus {
			fmt.Printf("    %d. position %g%%, duration %g%%\n", i+1, pl.PositionPct, pl.DurationPct)
		}
		fmt.Printf("  Store path:    %s\n", c.cfg.Storage.DBPath)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println("1. Change total steps")
		fmt.Println("2. Change warmup steps")
		fmt.Println("3. Change min LR ratio")
		fmt.Println("4. Change base LRs")
		fmt.Println("5. Add plateau")
		fmt.Println("6. Remove plateaus")
		fmt.Println("7. Save configuration")
		fmt.Println("8. Reload configuration")
		fmt.Println("0. Back to main menu")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			c.changeTotalSteps(reader)
		case "2":
			c.changeWarmupSteps(reader)
		case "3":
			c.changeMinLRRatio(reader)
		case "4":
			c.changeBaseLRs(reader)
		case "5":
			c.addPlateau(reader)
		case "6":
			c.cfg.Schedule.Plateaus = nil
			fmt.Println("✓ Plateaus removed")
		case "7":
			c.saveConfig()
		case "8":
			c.cfg = config.LoadOrDefault(c.configPath)
			fmt.Println("✓ Configuration reloaded")
		case "0":
			return
		default:
			fmt.Println("Invalid option")
		}
	}
}

func (c *CLI) changeTotalSteps(reader *bufio.Reader) {
	fmt.Print("\nTotal steps: ")
	input, _ := reader.ReadString('\n')
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n <= 0 {
		fmt.Println("Invalid value")
		return
	}
	c.cfg.Schedule.TotalSteps = n
	fmt.Printf("✓ Total steps set to %d\n", n)
}

func (c *CLI) changeWarmupSteps(reader *bufio.Reader) {
	fmt.Print("\nWarmup steps: ")
	input, _ := reader.ReadString('\n')
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		fmt.Println("Invalid value")
		return
	}
	c.cfg.Schedule.WarmupSteps = n
	fmt.Printf("✓ Warmup steps set to %d\n", n)
}

func (c *CLI) changeMinLRRatio(reader *bufio.Reader) {
	fmt.Print("\nMin LR ratio (0-1): ")
	input, _ := reader.ReadString('\n')
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || v < 0 || v > 1 {
		fmt.Println("Invalid value")
		return
	}
	c.cfg.Schedule.MinLRRatio = v
	fmt.Printf("✓ Min LR ratio set to %g\n", v)
}

func (c *CLI) changeBaseLRs(reader *bufio.Reader) {
	fmt.Print("\nBase LRs (comma separated, e.g., 0.001,0.0001): ")
	input, _ := reader.ReadString('\n')
	parts := strings.Split(strings.TrimSpace(input), ",")

	lrs := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v <= 0 {
			fmt.Printf("Invalid learning rate: %s\n", p)
			return
		}
		lrs = append(lrs, v)
	}

	c.cfg.Schedule.BaseLRs = lrs
	fmt.Printf("✓ Base LRs set to %v\n", lrs)
}

func (c *CLI) addPlateau(reader *bufio.Reader) {
	fmt.Print("\nPlateau position (% of post-warmup, 0-100): ")
	posStr, _ := reader.ReadString('\n')
	pos, err := strconv.ParseFloat(strings.TrimSpace(posStr), 64)
	if err != nil || pos < 0 || pos > 100 {
		fmt.Println("Invalid position")
		return
	}

	fmt.Print("Plateau duration (% of post-warmup, 0-100): ")
	durStr, _ := reader.ReadString('\n')
	dur, err := strconv.ParseFloat(strings.TrimSpace(durStr), 64)
	if err != nil || dur <= 0 || dur > 100 {
		fmt.Println("Invalid duration")
		return
	}

	c.cfg.Schedule.Plateaus = append(c.cfg.Schedule.Plateaus, schedule.PlateauSpec{
		PositionPct: pos,
		DurationPct: dur,
	})

	// Surface bad combinations right away
	if _, err := c.buildScheduler(); err != nil {
		c.cfg.Schedule.Plateaus = c.cfg.Schedule.Plateaus[:len(c.cfg.Schedule.Plateaus)-1]
		fmt.Printf("⚠ Rejected: %v\n", err)
		return
	}

	fmt.Printf("✓ Plateau added at %g%% for %g%%\n", pos, dur)
}

func (c *CLI) saveConfig() {
	dir := filepath.Dir(c.configPath)
	if dir != "." {
		os.MkdirAll(dir, 0755)
	}

	if err := c.cfg.Save(c.configPath); err != nil {
		fmt.Printf("Failed to save configuration: %v\n", err)
		return
	}

	fmt.Printf("✓ Configuration saved to: %s\n", c.configPath)
}

func (c *CLI) showHelp() {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("HELP & DOCUMENTATION")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println(`
P.A.C.E.R plans learning-rate schedules with warmup, cosine
annealing and flat plateau regions.

WORKFLOW:
1. Configure the schedule (steps, warmup, plateaus)
2. Inspect the plan and evaluate individual steps
3. Export or plot the curve
4. Drive real training with train-demo, resuming from saved runs

SCHEDULE INSPECTION:
- Plan summary: segment partition and effective totals
- Evaluate: per-group rate at any step
- Export CSV: full curve for external tools
- Render plot: PNG/SVG of the curve with plateau bands

SIMULATION:
- Steps through a schedule in memory and charts the rate
- Step decay and exponential decay families for comparison

RUN MANAGEMENT:
- Lists checkpointed runs with their schedule fingerprints
- A run only resumes when its fingerprint still matches
- Recent training metrics come from the bounded history store

TIPS:
- Plateau percentages are relative to the post-warmup range
- Plateau time does not consume the cosine decay budget
- Keep min LR ratio around 0.1 for a gentle floor

For more information, see README.md`)
	fmt.Println(strings.Repeat("=", 60))
}
