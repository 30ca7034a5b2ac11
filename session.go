package cardstack

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrEmptySession is returned by LoadSession for a script without steps.
var ErrEmptySession = errors.New("parse session: no steps")

// sessionStep is a single action in a session script.
type sessionStep struct {
	Action    string  `json:"action"`
	Target    string  `json:"target,omitempty"`
	Key       string  `json:"key,omitempty"`
	Value     any     `json:"value,omitempty"`
	Handler   string  `json:"handler,omitempty"`
	Body      string  `json:"body,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Extend    bool    `json:"extend,omitempty"`
	Card      int     `json:"card,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	FromX     float64 `json:"fromX,omitempty"`
	FromY     float64 `json:"fromY,omitempty"`
	ToX       float64 `json:"toX,omitempty"`
	ToY       float64 `json:"toY,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Frames    int     `json:"frames,omitempty"`
}

// sessionScript is the top-level JSON structure for a session script.
type sessionScript struct {
	Steps []sessionStep `json:"steps"`
}

var sessionActions = map[string]bool{
	"set": true, "handler": true, "undo": true, "redo": true, "wait": true,
	"animate": true, "select": true, "card": true, "add": true, "delete": true,
	"group": true, "ungroup": true, "reorder": true, "message": true,
	"click": true, "drag": true, "copy": true, "paste": true,
}

// Session replays a scripted editing and interaction session, one step per
// tick. Attach it to a Stack via SetSession.
type Session struct {
	steps     []sessionStep
	cursor    int
	waitCount int
	done      bool
	errs      []error
}

// LoadSession parses a JSON session script.
func LoadSession(jsonData []byte) (*Session, error) {
	var script sessionScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, ErrEmptySession
	}
	for i, st := range script.Steps {
		if !sessionActions[st.Action] {
			return nil, fmt.Errorf("parse session: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Session{steps: script.Steps}, nil
}

// SetSession attaches a session. Its steps run from Update.
func (s *Stack) SetSession(session *Session) {
	s.session = session
}

// Done reports whether every step has executed.
func (r *Session) Done() bool {
	return r.done
}

// Errors returns the steps that could not be applied, such as a missing
// target.
func (r *Session) Errors() []error {
	return r.errs
}

// step advances the session by one tick. Called from Stack.Update.
func (r *Session) step(s *Stack) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if s.PendingInjections() > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++
	if err := r.apply(s, st); err != nil {
		r.errs = append(r.errs, fmt.Errorf("step %d (%s): %w", r.cursor-1, st.Action, err))
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && s.PendingInjections() == 0 {
		r.done = true
	}
}

func (r *Session) apply(s *Stack, st sessionStep) error {
	var target *Entity
	if st.Target != "" {
		target = s.root.FindByName(st.Target)
		if target == nil {
			return fmt.Errorf("no entity named %q", st.Target)
		}
	}
	needTarget := func() error {
		if target == nil {
			return errors.New("target required")
		}
		return nil
	}

	switch st.Action {
	case "set":
		if err := needTarget(); err != nil {
			return err
		}
		s.SetProperty(target, st.Key, st.Value)
	case "handler":
		if err := needTarget(); err != nil {
			return err
		}
		s.SetHandler(target, st.Handler, st.Body)
	case "undo":
		s.Undo()
	case "redo":
		s.Redo()
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this tick counts as one
		}
	case "animate":
		if err := needTarget(); err != nil {
			return err
		}
		d := time.Duration(st.Duration * float64(time.Second))
		target.AnimatePosition(d, Point{st.X, st.Y}, nil, nil)
	case "select":
		s.Select(target, st.Extend)
	case "card":
		s.LoadCard(st.Card)
	case "add":
		kind, ok := ParseKind(st.Kind)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKind, st.Kind)
		}
		if kind == KindCard {
			s.AddCard()
		} else if s.AddEntity(kind) == nil {
			return fmt.Errorf("cannot add a %s", kind)
		}
	case "delete":
		if target != nil {
			s.DeleteEntities([]*Entity{target})
		} else {
			s.DeleteEntities(s.Selection())
		}
	case "group":
		s.GroupSelection()
	case "ungroup":
		s.UngroupSelection()
	case "reorder":
		dir, ok := ParseDirection(st.Direction)
		if !ok {
			return fmt.Errorf("unknown direction %q", st.Direction)
		}
		if target != nil && target.kind == KindCard {
			s.LoadCardEntity(target)
			s.ReorderCurrentCard(dir)
		} else {
			s.ReorderSelection(dir)
		}
	case "message":
		if err := needTarget(); err != nil {
			return err
		}
		if s.runner != nil {
			msg, _ := st.Value.(string)
			s.runner.RunHandler(target, "OnMessage", msg)
		}
	case "click":
		s.InjectClick(st.X, st.Y)
	case "drag":
		s.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "copy":
		return s.Copy()
	case "paste":
		_, err := s.Paste()
		return err
	}
	return nil
}
