// Package script is a minimal line-oriented handler language for the
// cardstack CLI. Each non-blank line of a handler body is one command; lines
// starting with # are comments. $1, $2, ... expand to handler arguments.
//
//	set title "Clicked"
//	move [200, 100] 0.5 OutQuad
//	color fillColor red 1
//	send other_button ping
//	goto next
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phanxgames/cardstack"
)

// SyntaxError reports a malformed handler line.
type SyntaxError struct {
	Line int
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// Interpreter runs handler bodies written in the line language.
type Interpreter struct {
	Logger *slog.Logger
}

var _ cardstack.Interpreter = (*Interpreter)(nil)

// Invoke executes body line by line, stopping at the first error.
func (in *Interpreter) Invoke(ctx context.Context, self *cardstack.Proxy, handler, body string, args []any) error {
	for i, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(expandArgs(raw, args))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := in.exec(ctx, self, handler, line); err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				se.Line = i + 1
				return se
			}
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) exec(ctx context.Context, self *cardstack.Proxy, handler, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	bad := func(msg string) error { return &SyntaxError{Text: line, Msg: msg} }

	switch cmd {
	case "set":
		key, val, ok := strings.Cut(rest, " ")
		if !ok || key == "" {
			return bad("want: set <key> <value>")
		}
		return self.Set(ctx, key, parseValue(strings.TrimSpace(val)))
	case "show":
		return self.Show(ctx)
	case "hide":
		return self.Hide(ctx)
	case "front":
		return self.OrderToFront(ctx)
	case "back":
		return self.OrderToBack(ctx)
	case "delete":
		return self.Delete(ctx)
	case "stop":
		return self.StopAnimating(ctx, rest)
	case "goto":
		if rest == "" {
			return bad("want: goto <index|name|next|previous|first|last>")
		}
		return self.GoToCard(ctx, parseValue(rest))
	case "send":
		name, msg, ok := strings.Cut(rest, " ")
		if !ok {
			return bad("want: send <name> <message>")
		}
		target, err := in.lookup(ctx, self, name)
		if err != nil {
			return err
		}
		if target == nil {
			return fmt.Errorf("send: no entity named %q", name)
		}
		return target.SendMessage(ctx, strings.TrimSpace(msg))
	case "move", "size":
		end, dur, easing, err := splitAnim(rest)
		if err != nil {
			return bad(err.Error())
		}
		if cmd == "move" {
			return self.AnimatePosition(ctx, dur, end, easing, nil)
		}
		return self.AnimateSize(ctx, dur, end, easing, nil)
	case "color":
		f := strings.Fields(rest)
		if len(f) < 3 {
			return bad("want: color <key> <color> <seconds> [easing]")
		}
		dur, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return bad("bad duration")
		}
		easing := ""
		if len(f) > 3 {
			easing = f[3]
		}
		return self.AnimateColor(ctx, f[0], dur, f[1], easing, nil)
	case "log":
		name, _ := self.Name(ctx)
		in.logger().Info(rest, "entity", name, "handler", handler)
		return nil
	}
	return bad("unknown command")
}

// lookup resolves "self", "card", a name on the enclosing card, or a card
// name.
func (in *Interpreter) lookup(ctx context.Context, self *cardstack.Proxy, name string) (*cardstack.Proxy, error) {
	if name == "self" {
		return self, nil
	}
	card, err := self.Card(ctx)
	if err != nil || card == nil {
		return nil, err
	}
	if name == "card" {
		return card, nil
	}
	if p, err := card.Child(ctx, name); err != nil || p != nil {
		return p, err
	}
	stack, err := card.Parent(ctx)
	if err != nil || stack == nil {
		return nil, err
	}
	return stack.Child(ctx, name)
}

func (in *Interpreter) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}

// splitAnim parses "<point> <seconds> [easing]" where point is a JSON array.
func splitAnim(s string) (end any, dur float64, easing string, err error) {
	open := strings.IndexByte(s, '[')
	closing := strings.IndexByte(s, ']')
	if open != 0 || closing < 0 {
		return nil, 0, "", fmt.Errorf("want: [x, y] <seconds> [easing]")
	}
	var pt []any
	if err := json.Unmarshal([]byte(s[:closing+1]), &pt); err != nil {
		return nil, 0, "", fmt.Errorf("bad point")
	}
	f := strings.Fields(s[closing+1:])
	if len(f) == 0 {
		return nil, 0, "", fmt.Errorf("missing duration")
	}
	dur, err = strconv.ParseFloat(f[0], 64)
	if err != nil {
		return nil, 0, "", fmt.Errorf("bad duration")
	}
	if len(f) > 1 {
		easing = f[1]
	}
	return pt, dur, easing, nil
}

// parseValue decodes s as JSON when possible and falls back to the raw
// string, so `set title Hello` and `set title "Hello"` agree.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func expandArgs(line string, args []any) string {
	if !strings.Contains(line, "$") {
		return line
	}
	for i := len(args); i >= 1; i-- {
		line = strings.ReplaceAll(line, "$"+strconv.Itoa(i), fmt.Sprint(args[i-1]))
	}
	return line
}
