package cardstack

import (
	"fmt"
	"log/slog"
	"time"
)

// globalDebug mirrors the most recently set Stack debug flag so that entity
// operations (which may lack an owner) can check it cheaply. Only valid with a
// single Stack; multiple Stacks with differing debug modes reflect whichever
// called SetDebugMode last.
var globalDebug bool

// debugStats holds per-tick timing metrics.
// Only populated when Stack.debug is true.
type debugStats struct {
	drainTime    time.Duration
	animateTime  time.Duration
	periodicTime time.Duration
	tasks        int
	updates      int
	finishes     int
}

// debugLog reports tick timing at debug level.
func (s *Stack) debugLog(stats debugStats) {
	if !s.debug {
		return
	}
	s.logger.Debug("tick",
		slog.Duration("drain", stats.drainTime),
		slog.Duration("animate", stats.animateTime),
		slog.Duration("periodic", stats.periodicTime),
		slog.Int("tasks", stats.tasks),
		slog.Int("updates", stats.updates),
		slog.Int("finishes", stats.finishes),
	)
}

// debugCheckTornDown panics with a descriptive message when a torn down
// entity is used as the target of a tree operation. Only called in debug mode.
func debugCheckTornDown(e *Entity, op string) {
	if e.IsTornDown() {
		panic(fmt.Sprintf("cardstack debug: %s on torn down entity %q (ID %d)", op, e.Name(), e.ID))
	}
}

// debugCheckTreeDepth warns if tree depth exceeds the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(e *Entity) {
	depth := 0
	for p := e; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		debugLogger(e).Warn("tree depth exceeds threshold",
			"depth", depth, "threshold", debugMaxTreeDepth, "entity", e.Name())
	}
}

// debugCheckChildCount warns if an entity has more than 1000 children.
const debugMaxChildCount = 1000

func debugCheckChildCount(e *Entity) {
	if len(e.children) > debugMaxChildCount {
		debugLogger(e).Warn("child count exceeds threshold",
			"entity", e.Name(), "children", len(e.children), "threshold", debugMaxChildCount)
	}
}

func debugLogger(e *Entity) *slog.Logger {
	if e.owner != nil {
		return e.owner.logger
	}
	return slog.Default()
}
