package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/cardstack"
	"github.com/phanxgames/cardstack/internal/script"
	"github.com/phanxgames/cardstack/internal/stackfile"
	"github.com/phanxgames/cardstack/player"
)

func newRunCmd(app *App) *cobra.Command {
	var headless, showFPS bool
	cmd := &cobra.Command{
		Use:   "run <stack-file>",
		Short: "Play a stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return app.run(ctx, args[0], headless, showFPS)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "Run without a window until interrupted")
	cmd.Flags().BoolVar(&showFPS, "fps", false, "Show FPS and TPS in the window")
	return cmd
}

// openStack loads path into a new stack with a script runner attached. The
// runner has OnSetup for every entity and OnShowCard for the first card
// queued.
func (a *App) openStack(path string, opts cardstack.Options) (*cardstack.Stack, *cardstack.Runner, error) {
	root, err := stackfile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	s := cardstack.NewStack(opts)
	if err := s.Load(root); err != nil {
		return nil, nil, err
	}
	r := cardstack.NewRunner(s, &script.Interpreter{Logger: a.log})
	r.RunSetup(s.Root())
	if card := s.CurrentCard(); card != nil && !s.IsEditing() {
		r.RunHandler(card, "OnShowCard")
	}
	a.log.Info("stack loaded", "path", path, "cards", len(s.Cards()), "id", s.ID)
	return s, r, nil
}

func (a *App) run(ctx context.Context, path string, headless, showFPS bool) error {
	s, r, err := a.openStack(path, a.stackOptions())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return quiet(r.Run(gctx)) })

	// The window (or headless ticker) must own the calling goroutine.
	if headless {
		err = quiet(s.Run(gctx))
	} else {
		err = player.Run(gctx, s, player.RunConfig{
			Title:   a.cfg.Player.Title,
			Width:   a.cfg.Player.Width,
			Height:  a.cfg.Player.Height,
			TPS:     a.cfg.Runtime.TPS,
			ShowFPS: showFPS,
		})
	}
	cancel()
	r.Stop()
	return errors.Join(err, g.Wait())
}

// quiet drops the errors that mean a clean shutdown.
func quiet(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, cardstack.ErrRunnerStopped) {
		return nil
	}
	return err
}
