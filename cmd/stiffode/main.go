package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/stiffode/internal/bdf"
	"github.com/san-kum/stiffode/internal/config"
	"github.com/san-kum/stiffode/internal/problems"
	"github.com/san-kum/stiffode/internal/runner"
	"github.com/san-kum/stiffode/internal/store"
	"github.com/san-kum/stiffode/internal/viz"
)

var (
	dataDir    string
	verbose    int
	t0, t1     float64
	dt0        float64
	rtol, atol float64
	maxOrder   int
	maxSteps   int
	samples    int
	configFile string
	preset     string

	log = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stiffode",
		Short: "adaptive BDF integrator for stiff ODE systems",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch {
			case verbose >= 2:
				log.SetLevel(logrus.TraceLevel)
			case verbose == 1:
				log.SetLevel(logrus.DebugLevel)
			default:
				log.SetLevel(logrus.WarnLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".stiffode", "data directory")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "per-step diagnostics (-v debug, -vv trace)")

	runCmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "integrate a problem and store the run",
		Args:  cobra.ExactArgs(1),
		RunE:  runProblem,
	}
	addRunFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list available problems",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range problems.List() {
				fmt.Println(name)
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list presets for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				return fmt.Errorf("no presets for problem: %s", args[0])
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export-csv [run_id] [output.csv]",
		Short: "copy a stored trajectory to a CSV file",
		Args:  cobra.ExactArgs(2),
		RunE:  exportRun,
	}

	liveCmd := &cobra.Command{
		Use:   "live [problem]",
		Short: "integrate with a live terminal view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, problemsCmd, presetsCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&t0, "t0", 0, "start time")
	cmd.Flags().Float64Var(&t1, "t1", config.DefaultT1, "target time")
	cmd.Flags().Float64Var(&dt0, "dt0", config.DefaultDt0, "initial step size")
	cmd.Flags().Float64Var(&rtol, "rtol", config.DefaultRtol, "relative tolerance")
	cmd.Flags().Float64Var(&atol, "atol", config.DefaultAtol, "absolute tolerance")
	cmd.Flags().IntVar(&maxOrder, "max-order", config.DefaultMaxOrder, "highest BDF order (1-6)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step budget per advance (0 = default)")
	cmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "output samples")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// buildRun resolves flags, preset and config file into a concrete problem
// and runner configuration. CLI flags win over the config file; the config
// file wins over the preset.
func buildRun(cmd *cobra.Command, name string) (problems.Stiff, *config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Problem = name

	if preset != "" {
		p := config.GetPreset(name, preset)
		if p == nil {
			return nil, nil, fmt.Errorf("unknown preset %q for problem %s (available: %v)",
				preset, name, config.ListPresets(name))
		}
		c := *p // flags below must not touch the shared preset table
		cfg = &c
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		cfg.Problem = name
	}

	if cmd.Flags().Changed("t0") {
		cfg.T0 = t0
	}
	if cmd.Flags().Changed("t1") {
		cfg.T1 = t1
	}
	if cmd.Flags().Changed("dt0") {
		cfg.Dt0 = dt0
	}
	if cmd.Flags().Changed("rtol") {
		cfg.Solver.Rtol = rtol
	}
	if cmd.Flags().Changed("atol") {
		cfg.Solver.Atol = atol
	}
	if cmd.Flags().Changed("max-order") {
		cfg.Solver.MaxOrder = maxOrder
	}
	if cmd.Flags().Changed("max-steps") {
		cfg.Solver.MaxSteps = maxSteps
	}
	if cmd.Flags().Changed("samples") {
		cfg.Samples = samples
	}

	sys, err := problems.New(cfg.Problem)
	if err != nil {
		return nil, nil, err
	}
	return sys, cfg, nil
}

func solverOptions(sys problems.Stiff, cfg *config.Config) bdf.Options {
	rtolVec, atolVec := cfg.Tolerances(sys.Dim())
	return bdf.Options{
		MaxOrder:     cfg.Solver.MaxOrder,
		MaxSteps:     cfg.Solver.MaxSteps,
		MaxIters:     cfg.Solver.MaxIters,
		DtMin:        cfg.Solver.DtMin,
		EtaMin:       cfg.Solver.EtaMin,
		EtaMax:       cfg.Solver.EtaMax,
		EtaThresh:    cfg.Solver.EtaThresh,
		MaxJacAge:    cfg.Solver.MaxJacAge,
		MaxMatrixAge: cfg.Solver.MaxMatrixAge,
		Rtol:         rtolVec,
		Atol:         atolVec,
		Logger:       log,
	}
}

func runProblem(cmd *cobra.Command, args []string) error {
	sys, cfg, err := buildRun(cmd, args[0])
	if err != nil {
		return err
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	r, err := runner.New(sys, solverOptions(sys, cfg))
	if err != nil {
		return err
	}

	fmt.Printf("integrating %s to t=%g...\n", cfg.Problem, cfg.T1)
	start := time.Now()

	result, err := r.Run(context.Background(), sys.DefaultState(), cfg.T0, cfg.T1, cfg.Dt0, cfg.Samples)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(store.RunMetadata{
		Problem:  cfg.Problem,
		T0:       cfg.T0,
		T1:       cfg.T1,
		Dt0:      cfg.Dt0,
		Rtol:     cfg.Solver.Rtol,
		Atol:     cfg.Solver.Atol,
		MaxOrder: cfg.Solver.MaxOrder,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n\n", runID)
	printStats(result.Stats)
	return nil
}

func printStats(stats bdf.Stats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "steps\t%d\n", stats.Steps)
	fmt.Fprintf(w, "rejected\t%d\n", stats.Rejected)
	fmt.Fprintf(w, "rhs evals\t%d\n", stats.Evals)
	fmt.Fprintf(w, "jacobian evals\t%d\n", stats.JacEvals)
	fmt.Fprintf(w, "factorizations\t%d\n", stats.Factorizations)
	fmt.Fprintf(w, "newton iters\t%d\n", stats.NewtonIters)
	fmt.Fprintf(w, "solver failures\t%d\n", stats.SolverFailures)
	fmt.Fprintf(w, "final order\t%d\n", stats.Order)
	fmt.Fprintf(w, "final dt\t%.3e\n", stats.Dt)
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tT1\tRTOL\tSTEPS\tORDER")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%.1e\t%d\t%d\n",
			run.ID, run.Problem, run.Timestamp.Format("2006-01-02 15:04:05"),
			run.T1, run.Rtol, run.Stats.Steps, run.Stats.Order)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, states, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(viz.Panel(
		viz.Header("run "+meta.ID),
		viz.KV("problem", "%s", meta.Problem),
		viz.KV("samples", "%d", len(times)),
		viz.KV("steps", "%d", meta.Stats.Steps),
	))

	for varIdx := range states[0] {
		data := make([]float64, len(states))
		for i := range states {
			data[i] = states[i][varIdx]
		}
		fmt.Println(viz.Series(data, fmt.Sprintf("y%d vs sample", varIdx)))
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	if _, err := st.Load(args[0]); err != nil {
		return fmt.Errorf("unknown run %s: %w", args[0], err)
	}

	src, err := os.Open(filepath.Join(dataDir, args[0], "solution.csv"))
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", n, args[1])
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	sys, cfg, err := buildRun(cmd, args[0])
	if err != nil {
		return err
	}

	ts, err := bdf.New(sys, solverOptions(sys, cfg))
	if err != nil {
		return err
	}

	steps := make(chan bdf.StepInfo, 64)
	done := make(chan error, 1)
	quit := make(chan struct{})
	ts.SetObserver(viz.StepFeed(steps, quit))

	go func() {
		_, err := ts.Advance(sys.DefaultState(), cfg.T0, cfg.T1, cfg.Dt0, true, false)
		close(steps)
		done <- err
	}()

	_, err = tea.NewProgram(viz.NewLive(steps, done)).Run()
	// Unblock the producer if the view was quit mid-integration.
	close(quit)
	return err
}
