package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/cardstack"
	"github.com/phanxgames/cardstack/internal/stackfile"
)

func newReplayCmd(app *App) *cobra.Command {
	var out string
	var maxTicks int
	cmd := &cobra.Command{
		Use:   "replay <stack-file> <session.json>",
		Short: "Replay a scripted session headlessly on a virtual clock",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.replay(cmd.Context(), args[0], args[1], maxTicks)
			if err != nil {
				return err
			}
			for _, e := range res.session.Errors() {
				app.log.Warn("session step failed", "err", e)
			}
			app.log.Info("replay finished", "ticks", res.ticks, "dirty", res.stack.Dirty(),
				"undo", res.stack.Commands().UndoName())
			if out != "" {
				return stackfile.Save(out, res.stack.Root())
			}
			return stackfile.Encode(cmd.OutOrStdout(), res.stack.Root())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the resulting stack here instead of stdout")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 100000, "Give up after this many ticks")
	return cmd
}

type replayResult struct {
	stack   *cardstack.Stack
	session *cardstack.Session
	ticks   int
}

func (a *App) replay(ctx context.Context, stackPath, sessionPath string, maxTicks int) (*replayResult, error) {
	data, err := os.ReadFile(sessionPath)
	if err != nil {
		return nil, err
	}
	session, err := cardstack.LoadSession(data)
	if err != nil {
		return nil, err
	}

	// Virtual clock: each tick advances by exactly one frame so animations
	// replay identically regardless of host speed.
	now := time.Unix(0, 0)
	opts := a.stackOptions()
	opts.Clock = func() time.Time { return now }
	frame := time.Second / time.Duration(opts.TPS)

	s, r, err := a.openStack(stackPath, opts)
	if err != nil {
		return nil, err
	}
	s.SetSession(session)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return quiet(r.Run(gctx)) })

	ticks := 0
	settled := func() bool {
		return session.Done() && r.Idle() && !s.Root().IsAnimatingTree()
	}
	for ; !settled(); ticks++ {
		if ticks >= maxTicks {
			cancel()
			r.Stop()
			_ = g.Wait()
			return nil, fmt.Errorf("replay: session not finished after %d ticks", maxTicks)
		}
		if err := gctx.Err(); err != nil {
			r.Stop()
			return nil, err
		}
		s.Update(gctx)
		if err := s.Settle(gctx); err != nil {
			r.Stop()
			return nil, err
		}
		now = now.Add(frame)
	}
	r.Stop()
	cancel()
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &replayResult{stack: s, session: session, ticks: ticks}, nil
}
