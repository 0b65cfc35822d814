package block

import (
	"errors"
	"testing"
)

type saveOnly struct{}

func (saveOnly) Save(d Data) (Data, error) { return d, nil }
func (saveOnly) Validate(Data) bool        { return true }

type fullTool struct{ saveOnly }

func (fullTool) Merge(target, source Data) (Data, error) { return target, nil }
func (fullTool) Split(d Data, _ int) (Data, Data, error) { return d, Data{}, nil }
func (fullTool) Empty() Data                             { return Data{"text": ""} }

type failingTool struct{ saveOnly }

func (failingTool) Save(Data) (Data, error) { return nil, errors.New("boom") }

func TestDataCloneIsDeep(t *testing.T) {
	orig := Data{
		"text":  "hi",
		"items": []any{"a", map[string]any{"k": "v"}},
		"meta":  map[string]any{"level": 1},
	}
	clone := orig.Clone()

	clone["meta"].(map[string]any)["level"] = 2
	clone["items"].([]any)[1].(map[string]any)["k"] = "changed"

	if orig["meta"].(map[string]any)["level"] != 1 {
		t.Error("nested map shared with clone")
	}
	if orig["items"].([]any)[1].(map[string]any)["k"] != "v" {
		t.Error("nested slice shared with clone")
	}
	if !orig.Equal(Data{
		"text":  "hi",
		"items": []any{"a", map[string]any{"k": "v"}},
		"meta":  map[string]any{"level": 1},
	}) {
		t.Error("original modified")
	}
}

func TestDataEqualNilAndEmpty(t *testing.T) {
	if !Data(nil).Equal(Data{}) {
		t.Error("nil and empty data should be equal")
	}
	if (Data{"a": 1}).Equal(Data{"a": 2}) {
		t.Error("different data should not be equal")
	}
}

func TestBlockCloneAndEqual(t *testing.T) {
	b := Block{ID: "b1", Type: "paragraph", Data: Data{"text": "x"}, Tunes: Data{"align": "left"}}
	c := b.Clone()
	if !b.Equal(c) {
		t.Fatal("clone should equal original")
	}
	c.Data["text"] = "y"
	if b.Data.String("text") != "x" {
		t.Error("clone shares data with original")
	}
	if b.Equal(c) {
		t.Error("modified clone should differ")
	}
}

func TestNewAssignsID(t *testing.T) {
	a := New("paragraph", Data{"text": "a"})
	b := New("paragraph", nil)
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
}

func TestSequentialIDs(t *testing.T) {
	gen := SequentialIDs("blk-")
	for _, want := range []string{"blk-1", "blk-2", "blk-3"} {
		if got := gen(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestCapabilityQueries(t *testing.T) {
	var plain Tool = saveOnly{}
	if _, ok := AsMerger(plain); ok {
		t.Error("plain tool should not merge")
	}
	if _, ok := AsSplitter(plain); ok {
		t.Error("plain tool should not split")
	}
	if _, ok := AsEmptier(plain); ok {
		t.Error("plain tool should not provide empty data")
	}
	if _, ok := AsMerger(nil); ok {
		t.Error("nil tool should not merge")
	}

	var full Tool = fullTool{}
	if _, ok := AsMerger(full); !ok {
		t.Error("full tool should merge")
	}
	if _, ok := AsSplitter(full); !ok {
		t.Error("full tool should split")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry("paragraph")
	r.Register("paragraph", fullTool{})
	r.Register("delimiter", saveOnly{})

	if r.DefaultType() != "paragraph" {
		t.Errorf("default type = %q", r.DefaultType())
	}
	if got := r.Types(); len(got) != 2 || got[0] != "delimiter" || got[1] != "paragraph" {
		t.Errorf("Types() = %v", got)
	}
	if _, ok := r.Tool("image"); ok {
		t.Error("image should not be registered")
	}

	if d := r.EmptyData("paragraph"); !d.Equal(Data{"text": ""}) {
		t.Errorf("EmptyData(paragraph) = %v", d)
	}
	if d := r.EmptyData("delimiter"); d == nil || len(d) != 0 {
		t.Errorf("EmptyData(delimiter) = %v, want empty non-nil", d)
	}

	r.SetDefaultType("delimiter")
	if r.DefaultType() != "delimiter" {
		t.Error("SetDefaultType did not apply")
	}
}

func TestRegistrySave(t *testing.T) {
	r := NewRegistry("paragraph")
	r.Register("paragraph", fullTool{})
	r.Register("broken", failingTool{})

	data, ok, err := r.Save(Block{ID: "1", Type: "paragraph", Data: Data{"text": "x"}})
	if err != nil || !ok || data.String("text") != "x" {
		t.Errorf("Save = %v, %v, %v", data, ok, err)
	}

	if _, _, err := r.Save(Block{ID: "2", Type: "image"}); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
	if _, _, err := r.Save(Block{ID: "3", Type: "broken"}); err == nil {
		t.Error("expected save error")
	}
}
