package cardstack

import (
	"strconv"
	"strings"
)

// reservedNames are the globals and keywords of the handler environment that
// no entity may be named. Built once; read-only afterwards.
var reservedNames = func() map[string]struct{} {
	names := []string{
		// handler globals
		"self", "stack", "card", "event", "mousePos", "message", "keyName", "elapsedTime",
		"Wait", "Time", "Distance", "Alert", "AskYesNo", "AskText", "GotoCard", "GotoNextCard",
		"GotoPreviousCard", "RunStack", "Color", "Point", "Size", "IsKeyPressed", "IsMouseDown",
		"GetMousePos", "PlaySound", "StopSound", "BroadcastMessage", "Paste", "Quit",
		// language keywords and builtins
		"False", "True", "None", "and", "as", "assert", "async", "await", "break", "class",
		"continue", "def", "del", "elif", "else", "except", "finally", "for", "from", "global",
		"if", "import", "in", "is", "lambda", "nonlocal", "not", "or", "pass", "raise", "return",
		"try", "while", "with", "yield", "abs", "str", "bool", "list", "int", "float", "dict",
		"tuple", "len", "min", "max", "print", "range",
	}
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}()

// IsReservedName reports whether name is reserved by the handler environment.
func IsReservedName(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// DeduplicateName returns candidate unchanged when it is free. When it
// collides with existing or a reserved name, trailing digits and underscores
// are stripped and the smallest positive "_N" suffix not taken is appended.
// The result depends only on the inputs.
func DeduplicateName(candidate string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}
	return dedupe(candidate, taken)
}

func dedupe(candidate string, taken map[string]struct{}) string {
	if !isTaken(candidate, taken) {
		return candidate
	}
	base := strings.TrimRight(candidate, "0123456789_")
	if base == "" {
		base = "object"
	}
	base += "_"
	for i := 1; ; i++ {
		name := base + strconv.Itoa(i)
		if !isTaken(name, taken) {
			return name
		}
	}
}

func isTaken(name string, taken map[string]struct{}) bool {
	if _, ok := taken[name]; ok {
		return true
	}
	_, ok := reservedNames[name]
	return ok
}

// NamesInCard returns the names of every entity in card's subtree,
// including the card itself.
func NamesInCard(card *Entity) []string {
	var names []string
	card.Walk(func(e *Entity) bool {
		names = append(names, e.Name())
		return true
	})
	return names
}

// DeduplicateNamesInCard renames entities (and their descendants) so none
// collides with a name already used on card or with each other. The
// entities must not be attached to card yet. Names are set quietly.
func DeduplicateNamesInCard(card *Entity, entities []*Entity) {
	taken := map[string]struct{}{}
	for _, n := range NamesInCard(card) {
		taken[n] = struct{}{}
	}
	for _, root := range entities {
		root.Walk(func(e *Entity) bool {
			name := dedupe(e.Name(), taken)
			e.SetPropertyQuiet("name", name)
			taken[name] = struct{}{}
			return true
		})
	}
}

// NextAvailableName returns base with the smallest "_N" suffix not used on card.
func NextAvailableName(card *Entity, base string) string {
	taken := map[string]struct{}{}
	for _, n := range NamesInCard(card) {
		taken[n] = struct{}{}
	}
	base = strings.TrimRight(base, "0123456789_")
	return dedupe(base+"_1", taken)
}
