// Package cli implements the cardstack command tree.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phanxgames/cardstack"
	"github.com/phanxgames/cardstack/internal/config"
	"github.com/phanxgames/cardstack/internal/logging"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// App carries state shared by every subcommand.
type App struct {
	ConfigPath string
	LogLevel   string
	Debug      bool

	cfg config.Config
	log *slog.Logger
}

// NewRootCmd builds the cardstack command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "cardstack",
		Short:        "Play and replay card stacks",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open a stack in a window
  cardstack run demo.yaml

  # Run a stack without a window
  cardstack run --headless demo.yaml

  # Replay a scripted session and write the result
  cardstack replay demo.yaml session.json --out result.yaml
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default: $HOME/.config/cardstack/config.toml, or $CARDSTACK_CONFIG)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error); overrides the config file")
	cmd.PersistentFlags().BoolVar(&app.Debug, "debug", false, "Enable stack debug checks and per-tick stats")

	cmd.AddCommand(newRunCmd(app))
	cmd.AddCommand(newReplayCmd(app))
	cmd.AddCommand(newNewCmd(app))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (a *App) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	if a.Debug {
		cfg.Runtime.Debug = true
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cmd.ErrOrStderr(), level, cfg.Log.NoColor || !isTerminal(cmd))
	return nil
}

// stackOptions maps the runtime config onto stack options.
func (a *App) stackOptions() cardstack.Options {
	opts := cardstack.Options{
		TPS:           a.cfg.Runtime.TPS,
		PeriodicEvery: a.cfg.Runtime.PeriodicEvery,
		Editing:       a.cfg.Runtime.Editing,
		Debug:         a.cfg.Runtime.Debug,
		Logger:        a.log,
	}
	if a.cfg.Runtime.SystemClipboard {
		opts.Clipboard = cardstack.SystemClipboard{}
	}
	return opts
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println("cardstack " + Version)
			return nil
		},
	}
}
