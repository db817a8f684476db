package question

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// DelimitedHeader is the first line of every delimited export.
const DelimitedHeader = "id|question|answer|distractors\n"

var exportColumns = []string{"id", "question", "answer", "distractors"}

// Collection is an ordered list of questions produced by a query.
type Collection struct {
	items []*Question
}

func NewCollection() *Collection {
	return &Collection{items: make([]*Question, 0)}
}

func (c *Collection) Add(q *Question) {
	c.items = append(c.items, q)
}

func (c *Collection) Len() int {
	return len(c.items)
}

// Items returns a copy of the member slice.
func (c *Collection) Items() []*Question {
	return append([]*Question(nil), c.items...)
}

// All iterates members in insertion order. The sequence can be ranged over
// more than once.
func (c *Collection) All() iter.Seq[*Question] {
	return func(yield func(*Question) bool) {
		for _, q := range c.items {
			if !yield(q) {
				return
			}
		}
	}
}

func (c *Collection) Structured() []map[string]any {
	out := make([]map[string]any, 0, len(c.items))
	for _, q := range c.items {
		out = append(out, q.Structured())
	}
	return out
}

// JSON renders an indented array with sorted keys.
func (c *Collection) JSON() ([]byte, error) {
	return json.MarshalIndent(c.Structured(), "", "    ")
}

func (c *Collection) Delimited() string {
	var sb strings.Builder
	sb.WriteString(DelimitedHeader)
	for _, q := range c.items {
		sb.WriteString(q.DelimitedRow())
	}
	return sb.String()
}

func (c *Collection) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c.Structured()); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteExcel writes a single-sheet workbook using the same columns as the
// delimited export.
func (c *Collection) WriteExcel(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, h := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, q := range c.items {
		row := i + 2
		values := []any{
			q.ID,
			q.Question,
			q.Answer,
			strings.Join(q.Distractors, DistractorSeparator),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "B", "D", 40)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write excel: %w", err)
	}
	return nil
}
