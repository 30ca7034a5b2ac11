// Package player hosts a cardstack Stack in an Ebitengine window. The ebiten
// game loop is the coordinating goroutine: every ebiten Update calls
// Stack.Update, and Draw paints the current card as flat frames.
package player

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/phanxgames/cardstack"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title   string
	Width   int
	Height  int
	TPS     int
	ShowFPS bool
}

// Game implements ebiten.Game for a Stack.
type Game struct {
	ctx     context.Context
	stack   *cardstack.Stack
	showFPS bool
	white   *ebiten.Image
	rects   []frame
}

// NewGame returns a Game driving s. The game terminates once ctx is done.
func NewGame(ctx context.Context, s *cardstack.Stack, showFPS bool) *Game {
	return &Game{ctx: ctx, stack: s, showFPS: showFPS}
}

// Run opens a window and runs the game loop until the window closes or ctx
// is done.
func Run(ctx context.Context, s *cardstack.Stack, cfg RunConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		sz := s.Root().Size()
		cfg.Width, cfg.Height = int(sz.Width), int(sz.Height)
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if cfg.TPS > 0 {
		ebiten.SetTPS(cfg.TPS)
	}
	err := ebiten.RunGame(NewGame(ctx, s, cfg.ShowFPS))
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Update feeds mouse input into the stack and advances it one tick.
func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	mx, my := ebiten.CursorPosition()
	x, y := float64(mx), float64(my)
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.stack.InjectPress(x, y)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		g.stack.InjectRelease(x, y)
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		if p := g.stack.MousePos(); p.X != x || p.Y != y {
			g.stack.InjectMove(x, y)
		}
	}
	g.stack.Update(g.ctx)
	return nil
}

// Draw paints the current card.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.white == nil {
		g.white = ebiten.NewImage(1, 1)
		g.white.Fill(color.White)
	}
	card := g.stack.CurrentCard()
	if card == nil {
		return
	}
	g.rects = appendFrames(g.rects[:0], card)

	var op ebiten.DrawImageOptions
	for i := range g.rects {
		f := &g.rects[i]
		if f.fill.A > 0 {
			g.fillRect(screen, &op, f.rect, f.fill)
		}
		if f.pen > 0 && f.stroke.A > 0 {
			g.strokeRect(screen, &op, f.rect, f.pen, f.stroke)
		}
		if f.label != "" {
			ebitenutil.DebugPrintAt(screen, f.label, int(f.rect.X)+4, int(f.rect.Y)+4)
		}
	}

	if g.showFPS {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("FPS: %.0f  TPS: %.0f", ebiten.ActualFPS(), ebiten.ActualTPS()), 4, 4)
	}
}

// Layout uses the stack's size as the logical screen.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	sz := g.stack.Root().Size()
	if sz.Width <= 0 || sz.Height <= 0 {
		return outsideWidth, outsideHeight
	}
	return int(sz.Width), int(sz.Height)
}

func (g *Game) fillRect(dst *ebiten.Image, op *ebiten.DrawImageOptions, r cardstack.Rect, c color.RGBA) {
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	op.GeoM.Reset()
	op.GeoM.Scale(r.Width, r.Height)
	op.GeoM.Translate(r.X, r.Y)
	op.ColorScale.Reset()
	op.ColorScale.ScaleWithColor(c)
	dst.DrawImage(g.white, op)
}

func (g *Game) strokeRect(dst *ebiten.Image, op *ebiten.DrawImageOptions, r cardstack.Rect, pen float64, c color.RGBA) {
	g.fillRect(dst, op, cardstack.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: pen}, c)
	g.fillRect(dst, op, cardstack.Rect{X: r.X, Y: r.Y + r.Height - pen, Width: r.Width, Height: pen}, c)
	g.fillRect(dst, op, cardstack.Rect{X: r.X, Y: r.Y, Width: pen, Height: r.Height}, c)
	g.fillRect(dst, op, cardstack.Rect{X: r.X + r.Width - pen, Y: r.Y, Width: pen, Height: r.Height}, c)
}
