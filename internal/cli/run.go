package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Amayakite/AutoClicker/internal/dispatch"
	"github.com/Amayakite/AutoClicker/internal/engine"
	"github.com/Amayakite/AutoClicker/internal/feedback"
	"github.com/Amayakite/AutoClicker/internal/point"
	"github.com/Amayakite/AutoClicker/internal/script"
	"github.com/Amayakite/AutoClicker/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Dispatcher string
	Serial     string
	ADBPath    string
	Database   string
	Loop       bool
	Count      int
	StartDelay time.Duration
	Debug      bool
	Vibrate    bool
	Trace      bool

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Signals allows injecting interrupts (for testing).
	// If nil, SIGINT and SIGTERM are subscribed.
	Signals <-chan os.Signal
}

// Target is a dispatch backend prepared for one run.
type Target struct {
	Dispatcher engine.Dispatcher

	// Vibrator receives vibration pulses. Without one the console rings the
	// terminal bell instead.
	Vibrator feedback.Sink

	// Watch, if set, runs alongside the run and calls stop when the user asks
	// to stop from the target surface. It must return once ctx is done.
	Watch func(ctx context.Context, stop func())

	// Hint is shown when the dispatcher reports it cannot tap.
	Hint string
}

// TargetFactory builds a Target from run flags.
type TargetFactory func(opts *RunOptions) (Target, error)

var (
	targetsMu sync.RWMutex
	targets   = map[string]TargetFactory{
		"adb":     adbTarget,
		"dry-run": dryRunTarget,
	}
)

// RegisterTarget makes a dispatcher selectable with run --dispatcher name.
// Registering an existing name replaces it.
func RegisterTarget(name string, f TargetFactory) {
	targetsMu.Lock()
	defer targetsMu.Unlock()
	targets[name] = f
}

func lookupTarget(name string) (TargetFactory, bool) {
	targetsMu.RLock()
	defer targetsMu.RUnlock()
	f, ok := targets[name]
	return f, ok
}

func targetNames() []string {
	targetsMu.RLock()
	defer targetsMu.RUnlock()
	return slices.Sorted(maps.Keys(targets))
}

func adbTarget(opts *RunOptions) (Target, error) {
	adb := dispatch.NewADB(dispatch.WithSerial(opts.Serial), dispatch.WithADBPath(opts.ADBPath))
	hint := "check that `adb devices` lists the device as \"device\""
	if opts.Serial != "" {
		hint += " (serial " + opts.Serial + ")"
	}
	return Target{Dispatcher: adb, Vibrator: adb, Hint: hint}, nil
}

func dryRunTarget(*RunOptions) (Target, error) {
	return Target{Dispatcher: dispatch.NewDryRun(nil)}, nil
}

// RunResult is the JSON payload of a finished run.
type RunResult struct {
	RunID      string `json:"run_id"`
	Script     string `json:"script"`
	Outcome    string `json:"outcome"`
	Points     int    `json:"points"`
	Iterations int    `json:"iterations"`
	Taps       int    `json:"taps"`
	DurationMS int64  `json:"duration_ms"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Replay a click script",
		Long: `Replay the enabled points of a click script in order.

Flags override the script's config block when given. Press Ctrl-C once to
stop at the next tap boundary; press it again to abort immediately.

Example:
  autoclicker run rewards.yaml
  autoclicker run --dispatcher dry-run --loop --count 3 rewards.yaml
  autoclicker run --db runs.db --serial emulator-5554 rewards.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Dispatcher, "dispatcher", "adb", "tap target ("+strings.Join(targetNames(), "|")+")")
	cmd.Flags().StringVar(&opts.Serial, "serial", "", "adb device serial")
	cmd.Flags().StringVar(&opts.ADBPath, "adb", "adb", "path to the adb binary")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite run log")
	cmd.Flags().BoolVar(&opts.Loop, "loop", false, "repeat the sequence")
	cmd.Flags().IntVar(&opts.Count, "count", 1, "passes to loop, implies --loop (0 = until stopped)")
	cmd.Flags().DurationVar(&opts.StartDelay, "start-delay", 0, "wait before the first tap")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "print a marker for every tap")
	cmd.Flags().BoolVar(&opts.Vibrate, "vibrate", false, "pulse feedback after every tap")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "log OpenTelemetry spans for the run")

	return cmd
}

// applyOverrides layers explicitly set flags over the script's config.
func applyOverrides(cmd *cobra.Command, opts *RunOptions, cfg point.RunConfig) point.RunConfig {
	flags := cmd.Flags()
	if flags.Changed("loop") {
		cfg.LoopEnabled = opts.Loop
	}
	if flags.Changed("count") {
		cfg.LoopCount = opts.Count
		if !flags.Changed("loop") {
			cfg.LoopEnabled = true
		}
	}
	if flags.Changed("start-delay") {
		cfg.StartDelayMS = int(opts.StartDelay.Milliseconds())
	}
	if flags.Changed("debug") {
		cfg.DebugMode = opts.Debug
	}
	if flags.Changed("vibrate") {
		cfg.VibrationEnabled = opts.Vibrate
	}
	return cfg
}

func runScript(cmd *cobra.Command, opts *RunOptions, path string) error {
	// Feedback arrives from the engine's feedback goroutine while progress is
	// printed from the run loop, so both share locked writers.
	stdout := &lockedWriter{w: cmd.OutOrStdout()}
	stderr := &lockedWriter{w: cmd.ErrOrStderr()}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    stdout,
		ErrWriter: stderr,
		Verbose:   opts.Verbose,
	}
	st := newStyles(cmd.OutOrStdout())

	s, err := loadScript(formatter, path)
	if err != nil {
		return err
	}
	cfg := applyOverrides(cmd, opts, s.Config)
	formatter.VerboseLog("loaded %s: %d points (%d enabled)", path, len(s.Points), s.EnabledCount())

	factory, ok := lookupTarget(opts.Dispatcher)
	if !ok {
		msg := fmt.Sprintf("unknown dispatcher %q (have %s)", opts.Dispatcher, strings.Join(targetNames(), ", "))
		return formatter.fail(ExitCommandError, ErrCodeGeneric, msg, nil)
	}
	target, err := factory(opts)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeUnavailable, "prepare dispatcher", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	// Feedback lines stay off stdout when it carries JSON.
	var consoleOut, consoleTerm io.Writer = stdout, cmd.OutOrStdout()
	if formatter.IsJSON() {
		consoleOut, consoleTerm = stderr, cmd.ErrOrStderr()
	}
	console := feedback.NewConsole(consoleOut, target.Vibrator == nil, feedback.WithTerminal(consoleTerm))
	sinks := feedback.Multi{console}
	if target.Vibrator != nil {
		sinks = append(sinks, target.Vibrator)
	}

	progress := newProgressPrinter(stdout, st, s, formatter.IsJSON())
	engOpts := []engine.EngineOption{
		engine.WithFeedback(sinks),
		engine.WithObserver(progress),
	}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	if opts.Database != "" {
		slog.Debug("opening run log", "path", opts.Database)
		db, err := store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeRunLog, "open run log", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing run log", "error", closeErr)
			}
		}()

		seq, err := db.MaxSeq(ctx)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeRunLog, "read run log", err)
		}
		rec := store.NewRecorder(db, path)
		defer func() {
			rec.Close()
			if n := rec.Failures(); n > 0 {
				slog.Warn("run log incomplete", "failed_writes", n)
			}
		}()
		engOpts = append(engOpts,
			engine.WithSequence(engine.NewSequenceAt(seq)),
			engine.WithObserver(rec),
		)
	}

	var tel *telemetry
	if opts.Trace {
		tel = newTelemetry(slog.Default().With("component", "trace"))
		defer tel.Close()
		engOpts = append(engOpts, engine.WithTracer(tel.Tracer()))
	}

	eng := engine.New(target.Dispatcher, engOpts...)

	signals := opts.Signals
	if signals == nil {
		ch := make(chan os.Signal, 2)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		signals = ch
	}
	go handleInterrupts(ctx, eng, cancel, signals)

	if target.Watch != nil {
		go target.Watch(ctx, eng.Stop)
	}

	err = eng.Execute(ctx, s.Points, cfg, progress.Progress)
	if tel != nil {
		formatter.TraceID = tel.TraceID()
	}
	return reportRun(formatter, st, target, path, progress.Summary(), err)
}

// handleInterrupts turns the first interrupt into a graceful stop and the
// second into cancellation.
func handleInterrupts(ctx context.Context, eng *engine.Engine, cancel context.CancelFunc, signals <-chan os.Signal) {
	stopping := false
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if !stopping {
				stopping = true
				slog.Info("stopping after the current tap, interrupt again to abort", "signal", sig)
				eng.Stop()
				continue
			}
			slog.Warn("aborting run", "signal", sig)
			cancel()
			return
		}
	}
}

func reportRun(f *OutputFormatter, st *styles, target Target, path string, summary engine.RunSummary, err error) error {
	result := RunResult{
		RunID:      summary.ID,
		Script:     path,
		Outcome:    string(summary.Outcome),
		Points:     summary.Points,
		Iterations: summary.Iterations,
		Taps:       summary.Taps,
	}
	if !summary.FinishedAt.IsZero() {
		result.DurationMS = summary.FinishedAt.Sub(summary.StartedAt).Milliseconds()
	}

	if err == nil {
		text := st.SuccessMsg("run %s %s: %s over %s", summary.ID, summary.Outcome,
			plural(summary.Taps, "tap"), plural(summary.Iterations, "pass"))
		return f.Success(result, text)
	}

	exitCode, errCode, msg := ExitFailure, ErrCodeRunFailed, "run failed"
	switch {
	case errors.Is(err, context.Canceled):
		msg = "run aborted"
	case engine.IsServiceUnavailable(err):
		exitCode, errCode, msg = ExitCommandError, ErrCodeUnavailable, "dispatcher unavailable"
		if target.Hint != "" {
			msg += ": " + target.Hint
		}
	case engine.IsNoEnabledPoints(err), engine.CodeOf(err) == engine.ErrCodeInvalidConfig:
		errCode, msg = ErrCodeInvalidScript, "nothing to run"
	case engine.IsDispatchFailed(err):
		msg = "tap failed"
	}

	var details any = err.Error()
	if summary.ID != "" {
		details = result
	}
	if outErr := f.Error(errCode, msg, details); outErr != nil {
		return WrapExitError(ExitCommandError, "write output", outErr)
	}
	return WrapExitError(exitCode, msg, err)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	if strings.HasSuffix(word, "s") {
		return fmt.Sprintf("%d %ses", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// progressPrinter renders run progress as it happens and keeps the final
// summary. It implements engine.Observer; tap lines come from Progress, which
// the engine calls before each tap.
type progressPrinter struct {
	out      io.Writer
	st       *styles
	sequence []point.ClickPoint
	quiet    bool

	mu      sync.Mutex
	summary engine.RunSummary
}

func newProgressPrinter(out io.Writer, st *styles, s *script.Script, quiet bool) *progressPrinter {
	return &progressPrinter{out: out, st: st, sequence: point.ExecutionOrder(s.Points), quiet: quiet}
}

func (p *progressPrinter) RunStarted(info engine.RunInfo) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.st.InfoMsg("run %s: %s, loop %s", info.ID, plural(info.Points, "point"), loopLabel(info.Config)))
}

// Progress prints the tap about to be sent. It is an engine.ProgressFunc.
func (p *progressPrinter) Progress(index, iteration int) {
	if p.quiet || index >= len(p.sequence) {
		return
	}
	pt := p.sequence[index]
	fmt.Fprintf(p.out, "  %s tap %d/%d %s (%.0f, %.0f)\n",
		p.st.Muted(fmt.Sprintf("pass %d", iteration+1)),
		index+1, len(p.sequence), pt.Name, pt.X, pt.Y)
}

func (p *progressPrinter) TapDispatched(engine.TapEvent) {}

func (p *progressPrinter) RunFinished(summary engine.RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary = summary
}

// Summary returns the last finished run, or the zero value if none ran.
func (p *progressPrinter) Summary() engine.RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

// lockedWriter serializes writes from several goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}

func loopLabel(cfg point.RunConfig) string {
	switch {
	case !cfg.LoopEnabled:
		return "off"
	case cfg.LoopCount == 0:
		return "until stopped"
	default:
		return plural(cfg.LoopCount, "pass")
	}
}
