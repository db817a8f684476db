package question

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func sampleCollection() *Collection {
	c := NewCollection()
	c.Add(&Question{ID: 1, Question: "2+2", Answer: "4", Distractors: []string{"3", "5"}})
	c.Add(&Question{ID: 2, Question: "capital of France", Answer: "Paris", Distractors: []string{"London", "Berlin"}})
	return c
}

func TestCollectionIterationIsRestartable(t *testing.T) {
	c := sampleCollection()
	for pass := 0; pass < 2; pass++ {
		var ids []int64
		for q := range c.All() {
			ids = append(ids, q.ID)
		}
		if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
			t.Fatalf("pass %d: unexpected order %v", pass, ids)
		}
	}
}

func TestCollectionDelimited(t *testing.T) {
	want := "id|question|answer|distractors\n" +
		"1|2+2|4|3, 5\n" +
		"2|capital of France|Paris|London, Berlin\n"
	if got := sampleCollection().Delimited(); got != want {
		t.Fatalf("Delimited got %q want %q", got, want)
	}
	if got := NewCollection().Delimited(); got != DelimitedHeader {
		t.Fatalf("empty collection got %q", got)
	}
}

func TestCollectionJSON(t *testing.T) {
	b, err := sampleCollection().JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[1]["answer"] != "Paris" {
		t.Fatalf("unexpected payload %s", b)
	}

	empty, err := NewCollection().JSON()
	if err != nil {
		t.Fatalf("JSON empty: %v", err)
	}
	if string(empty) != "[]" {
		t.Fatalf("expected [] for empty collection, got %s", empty)
	}
}

func TestCollectionYAML(t *testing.T) {
	b, err := sampleCollection().YAML()
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	var out []Question
	if err := yaml.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(out) != 2 || out[0].Distractors[1] != "5" {
		t.Fatalf("unexpected yaml payload %s", b)
	}
}

func TestCollectionWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleCollection().WriteExcel(&buf); err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "distractors" || rows[2][1] != "capital of France" || rows[2][3] != "London, Berlin" {
		t.Fatalf("unexpected rows %q", rows)
	}
}
