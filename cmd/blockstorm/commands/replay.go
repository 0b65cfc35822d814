package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/dshills/blockstorm/internal/config"
	"github.com/dshills/blockstorm/internal/engine"
	"github.com/dshills/blockstorm/internal/engine/block"
	"github.com/dshills/blockstorm/internal/engine/block/paragraph"
	"github.com/dshills/blockstorm/internal/engine/saver"
	"github.com/dshills/blockstorm/internal/logger"
	"github.com/dshills/blockstorm/internal/printer"
	"github.com/dshills/blockstorm/internal/script"
)

type replayOptions struct {
	configPath string
	maxUndo    int
	format     string
	query      string
	watch      bool
	verbose    bool
	history    bool
}

func newReplayCommand() *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay <script>",
		Short: "Replay an edit script and print the resulting document",
		Long: `Replay runs the steps of a YAML edit script against a fresh engine and
writes the saved document to stdout.

Output Formats:
  json - Indented JSON snapshot (default)
  yaml - YAML snapshot

Examples:
  # Replay a script
  blockstorm replay edits.yaml

  # Print only the text of the first block
  blockstorm replay edits.yaml --query 'blocks.0.data.text'

  # Rerun whenever the script or config changes
  blockstorm replay edits.yaml --config blockstorm.toml --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (TOML or YAML)")
	flags.IntVar(&opts.maxUndo, "max-undo", 0, "Undo stack bound (overrides config)")
	flags.StringVarP(&opts.format, "format", "f", "json", "Output format (json or yaml)")
	flags.StringVarP(&opts.query, "query", "q", "", "gjson path evaluated against the JSON snapshot")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Rerun when the script or config file changes")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print each step as it runs")
	flags.BoolVar(&opts.history, "history", false, "Print the undo history after the run")
	return cmd
}

func runReplay(cmd *cobra.Command, path string, opts replayOptions) error {
	p := printer.New(cmd.ErrOrStderr(), cmd.ErrOrStderr())

	switch opts.format {
	case "json", "yaml", "yml":
	default:
		return p.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", opts.format),
			[]string{"Valid formats: json, yaml"},
		)
	}
	if cmd.Flags().Changed("max-undo") && opts.maxUndo <= 0 {
		return p.Error("invalid --max-undo", fmt.Sprintf("Got %d", opts.maxUndo), []string{"Use a positive number"})
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return p.ErrorWithContext("Failed to load configuration", err.Error(),
			map[string]string{"Config": opts.configPath}, nil)
	}

	log, err := logger.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return p.Error("Failed to set up logging", err.Error(), nil)
	}
	defer log.Close()

	r := &replayer{
		path:   path,
		opts:   opts,
		cfg:    cfg,
		log:    log,
		out:    cmd.OutOrStdout(),
		stderr: p,
	}

	ctx := cmd.Context()
	if err := r.run(ctx); err != nil && !opts.watch {
		return err
	}
	if !opts.watch {
		return nil
	}
	return r.watch(ctx)
}

func loadConfig(opts replayOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.maxUndo > 0 {
		cfg.History.MaxEntries = opts.maxUndo
	}
	return cfg, nil
}

// replayer holds the state shared by the first run and reruns in watch
// mode.
type replayer struct {
	path   string
	opts   replayOptions
	cfg    config.Config
	log    *logger.Logger
	out    io.Writer
	stderr *printer.Printer
}

// newEngine builds an engine configured from r.cfg.
func (r *replayer) newEngine(caret *script.Caret) (*engine.Engine, error) {
	reg := block.NewRegistry(r.cfg.Document.DefaultType)
	reg.Register(paragraph.Type, &paragraph.Tool{KeepEmpty: r.cfg.Document.KeepEmpty})

	return engine.New(
		engine.WithRegistry(reg),
		engine.WithMaxUndoEntries(r.cfg.History.MaxEntries),
		engine.WithReplaceEmpty(r.cfg.Document.ReplacePlaceholder),
		engine.WithProvider(caret),
		engine.WithSetter(caret),
		engine.WithLogger(r.log.Logger),
	)
}

func (r *replayer) run(ctx context.Context) error {
	p := r.stderr

	s, err := script.LoadFile(r.path)
	if err != nil {
		return p.ErrorWithContext("Failed to load script", err.Error(),
			map[string]string{"Script": r.path}, nil)
	}

	caret := script.NewCaret()
	e, err := r.newEngine(caret)
	if err != nil {
		return p.Error("Failed to create engine", err.Error(), nil)
	}
	defer e.Close()

	var opts []script.Option
	opts = append(opts, script.WithCaret(caret), script.WithLogger(r.log.Logger))
	if r.opts.verbose {
		opts = append(opts, script.WithObserver(func(sr script.StepResult) {
			p.Step("%s %s", sr.Path, sr.Op)
			if sr.ID != "" {
				p.Detail(" %s", sr.ID)
			}
			if sr.Aborted {
				p.Detail(" (rolled back)")
			}
			p.Info("\n")
		}))
	}

	res, err := script.NewRunner(e, opts...).Run(ctx, s)
	if err != nil {
		var se *script.StepError
		if errors.As(err, &se) {
			return p.ErrorWithContext("Replay failed", se.Err.Error(),
				map[string]string{"Script": r.path, "Step": se.Path, "Op": se.Op},
				[]string{"Fix the step or add an expect clause naming the error"})
		}
		return p.ErrorWithContext("Replay failed", err.Error(), map[string]string{"Script": r.path}, nil)
	}

	out := saver.New(e.Registry(), saver.WithLogger(r.log.Logger)).Save(e.Snapshot())
	for _, sk := range out.Skipped {
		p.Warning("skipped block %s (%s): %s\n", sk.ID, sk.Type, sk.Reason)
	}

	if err := r.write(out); err != nil {
		return p.Error("Failed to write output", err.Error(), nil)
	}

	if r.opts.history {
		for _, info := range e.History() {
			p.Detail("#%d %s\n", info.Seq, info.Label)
		}
	}
	p.Success("replayed %d steps of %s\n", len(res.Steps), filepath.Base(r.path))
	return nil
}

func (r *replayer) write(out saver.Output) error {
	if r.opts.query == "" {
		return saver.Encode(r.out, r.opts.format, out)
	}

	var buf bytes.Buffer
	if err := saver.EncodeJSON(&buf, out); err != nil {
		return err
	}
	result := gjson.GetBytes(buf.Bytes(), r.opts.query)
	if !result.Exists() {
		return fmt.Errorf("query %q matched nothing", r.opts.query)
	}
	if result.IsObject() || result.IsArray() {
		_, err := fmt.Fprintln(r.out, result.Raw)
		return err
	}
	_, err := fmt.Fprintln(r.out, result.String())
	return err
}

// watch reruns the script whenever it or the config file changes. A config
// change reloads the configuration, including the log level and the undo
// bound, before the rerun.
func (r *replayer) watch(ctx context.Context) error {
	paths := []string{r.path}
	if r.opts.configPath != "" {
		paths = append(paths, r.opts.configPath)
	}
	configAbs, _ := filepath.Abs(r.opts.configPath)

	r.stderr.Detail("watching %d file(s), press Ctrl+C to stop\n", len(paths))
	return config.WatchFiles(ctx, paths, func(changed string) {
		if r.opts.configPath != "" && changed == configAbs {
			cfg, err := loadConfig(r.opts)
			if err != nil {
				r.stderr.Warning("config not reloaded: %v\n", err)
				return
			}
			r.cfg = cfg
			r.log.SetLevel(cfg.Log.Level)
		}
		_ = r.run(ctx)
	})
}
