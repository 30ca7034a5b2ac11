package cardstack

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
)

// clipFormat tags clipboard text produced by Copy so Paste can ignore
// anything else on the clipboard.
const clipFormat = "cardstack/entities"

// Clipboard is a text clipboard. Its method set matches the system clipboard
// package so either backend can be used.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard uses the operating system clipboard.
type SystemClipboard struct{}

// ReadAll returns the clipboard text.
func (SystemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }

// WriteAll replaces the clipboard text.
func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// MemoryClipboard is a process-local clipboard, safe for concurrent use.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

// ReadAll returns the stored text.
func (c *MemoryClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

// WriteAll stores text.
func (c *MemoryClipboard) WriteAll(text string) error {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	return nil
}

type clipPayload struct {
	Format   string       `json:"format"`
	Origin   uuid.UUID    `json:"origin"`
	Entities []EntityData `json:"entities"`
}

// Copy puts the selected entities on the clipboard, lowest z-order first so
// a paste keeps their stacking.
func (s *Stack) Copy() error {
	return s.copyEntities(s.orderedSelection())
}

func (s *Stack) copyEntities(entities []*Entity) error {
	if len(entities) == 0 {
		return nil
	}
	p := clipPayload{Format: clipFormat, Origin: s.ID}
	for _, e := range entities {
		p.Entities = append(p.Entities, e.Data())
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cardstack: copy: %w", err)
	}
	if err := s.clipboard.WriteAll(string(b)); err != nil {
		return fmt.Errorf("cardstack: copy: %w", err)
	}
	return nil
}

// Cut copies the selection and deletes it in one undoable step.
func (s *Stack) Cut() error {
	entities := s.orderedSelection()
	if err := s.copyEntities(entities); err != nil {
		return err
	}
	s.DeleteEntities(entities)
	return nil
}

// Paste adds the clipboard's entities. A single card is inserted after the
// current card; views are added to the current card with deduplicated names.
// Returns the pasted entities, or nil when the clipboard holds no entities.
func (s *Stack) Paste() ([]*Entity, error) {
	text, err := s.clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cardstack: paste: %w", err)
	}
	var p clipPayload
	if json.Unmarshal([]byte(text), &p) != nil || p.Format != clipFormat || len(p.Entities) == 0 {
		return nil, nil
	}
	entities := make([]*Entity, 0, len(p.Entities))
	for _, d := range p.Entities {
		e, err := FromData(d)
		if err != nil {
			return nil, fmt.Errorf("cardstack: paste: %w", err)
		}
		entities = append(entities, e)
	}

	if len(entities) == 1 && entities[0].kind == KindCard {
		card := entities[0]
		card.SetPropertyQuiet("name", DeduplicateName(card.Name(), s.cardNames()))
		s.Submit(NewAddCardCommand(s, s.cardIndex+1, card))
		return entities, nil
	}

	views := entities[:0]
	for _, e := range entities {
		if e.kind.IsView() {
			views = append(views, e)
		}
	}
	card := s.CurrentCard()
	if card == nil || len(views) == 0 {
		return nil, nil
	}
	DeduplicateNamesInCard(card, views)
	s.Submit(NewAddEntitiesCommand(s, views))
	return views, nil
}

// orderedSelection returns the selection in tree order.
func (s *Stack) orderedSelection() []*Entity {
	if len(s.selection) == 0 {
		return nil
	}
	if len(s.selection) == 1 {
		return s.Selection()
	}
	var out []*Entity
	s.root.Walk(func(e *Entity) bool {
		for _, sel := range s.selection {
			if sel == e {
				out = append(out, e)
				break
			}
		}
		return true
	})
	return out
}

func (s *Stack) cardNames() []string {
	names := make([]string, 0, s.root.NumChildren())
	for _, c := range s.root.children {
		names = append(names, c.Name())
	}
	return names
}
