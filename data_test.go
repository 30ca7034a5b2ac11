package cardstack

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDataOmitsTransientState(t *testing.T) {
	b := NewEntity(KindButton)
	b.SetProperty("position", Point{3, 4})
	b.SetProperty("speed", Point{1, 1})
	b.SetProperty("hidden", true)
	b.SetHandler("OnClick", "goto next")
	b.SetHandler("OnSetup", "   \n")

	d := b.Data()
	if d.Type != "button" {
		t.Errorf("Type = %q, want %q", d.Type, "button")
	}
	for _, k := range []string{"speed", "hidden", "data"} {
		if _, ok := d.Properties[k]; ok {
			t.Errorf("%s should be omitted", k)
		}
	}
	pos, ok := d.Properties["position"].([]float64)
	if !ok || pos[0] != 3 || pos[1] != 4 {
		t.Errorf("position = %v, want [3 4]", d.Properties["position"])
	}
	if len(d.Handlers) != 1 || d.Handlers["OnClick"] != "goto next" {
		t.Errorf("Handlers = %v, want only OnClick", d.Handlers)
	}
}

func TestFromDataRoundTripJSON(t *testing.T) {
	card := NewEntity(KindCard)
	g := NewEntity(KindGroup)
	card.AddChild(g)
	b := NewEntity(KindButton)
	b.SetProperty("title", "Go")
	b.SetProperty("position", Point{10, 20})
	b.SetProperty("data", map[string]any{"score": 3, "tags": []any{"a", Point{1, 2}}})
	g.AddChild(b)

	raw, err := json.Marshal(card.Data())
	if err != nil {
		t.Fatal(err)
	}
	var d EntityData
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	got, err := FromData(d)
	if err != nil {
		t.Fatal(err)
	}
	if got.Dirty() {
		t.Error("FromData result should be clean")
	}
	gb := got.FindByName("button_1")
	if gb == nil || gb.Parent().Kind() != KindGroup {
		t.Fatal("button should be restored inside the group")
	}
	if gb.StringProperty("title") != "Go" || gb.Position() != (Point{10, 20}) {
		t.Errorf("restored button: title %q position %v", gb.StringProperty("title"), gb.Position())
	}
	data := gb.GetProperty("data").(map[string]any)
	if data["score"] != 3.0 {
		t.Errorf("data.score = %v, want 3", data["score"])
	}
	if gb.ID == b.ID {
		t.Error("restored entities should get fresh IDs")
	}
}

func TestFromDataErrors(t *testing.T) {
	if _, err := FromData(EntityData{Type: "spaceship"}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown type: err = %v, want ErrUnknownKind", err)
	}
	bad := EntityData{Type: "card", Children: []EntityData{{Type: "card"}}}
	if _, err := FromData(bad); err == nil {
		t.Error("card inside card should fail")
	}
}

func TestFromDataLegacyAndInvalidValues(t *testing.T) {
	e, err := FromData(EntityData{Type: "textfield", Properties: map[string]any{
		"text":      "hi",
		"alignment": "Sideways",
		"bogus":     true,
		"size":      []any{1.0, 1.0},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if e.Kind() != KindField {
		t.Errorf("Kind = %v, want field", e.Kind())
	}
	if e.StringProperty("text") != "hi" || e.StringProperty("alignment") != "Left" {
		t.Errorf("text %q alignment %q", e.StringProperty("text"), e.StringProperty("alignment"))
	}
	if e.Size() != MinSize(KindField) {
		t.Errorf("Size = %v, want clamped %v", e.Size(), MinSize(KindField))
	}
}

func TestDataDropsCycles(t *testing.T) {
	b := NewEntity(KindButton)
	m := map[string]any{"x": 1}
	m["self"] = m
	b.SetProperty("data", m)
	d := b.Data()
	got := d.Properties["data"].(map[string]any)
	if _, ok := got["self"]; ok {
		t.Error("cyclic values should be dropped")
	}
	if _, err := json.Marshal(d); err != nil {
		t.Errorf("sanitized data should marshal: %v", err)
	}
}

func TestCopyCarriesTransientState(t *testing.T) {
	b := NewEntity(KindButton)
	b.SetProperty("hidden", true)
	b.SetProperty("speed", Point{2, 0})
	c := b.Copy()
	if c == b || c.ID == b.ID {
		t.Fatal("Copy should return a new entity")
	}
	if !c.BoolProperty("hidden") || c.Speed() != (Point{2, 0}) {
		t.Error("Copy should keep hidden and speed")
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"stack", "card", "group", "button", "roundrect", "textlabel"} {
		if _, ok := ParseKind(name); !ok {
			t.Errorf("ParseKind(%q) failed", name)
		}
	}
	if k, _ := ParseKind("textlabel"); k != KindLabel {
		t.Errorf("textlabel = %v, want label", k)
	}
	if _, ok := ParseKind("webview2"); ok {
		t.Error("unknown kinds should not parse")
	}
}
