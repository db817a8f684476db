package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrIdentityConflict = errors.New("question identity already assigned")
	ErrInvalidID        = errors.New("invalid question id")
)

// DistractorSeparator joins distractors in the delimited format.
const DistractorSeparator = ", "

const fieldDelimiter = "|"

// Question is a single quiz item. ID is zero until a Repository assigns it.
type Question struct {
	ID          int64    `json:"id" yaml:"id"`
	Question    string   `json:"question" yaml:"question"`
	Answer      string   `json:"answer" yaml:"answer"`
	Distractors []string `json:"distractors" yaml:"distractors"`
}

// ParseID converts a textual id into an int64.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

// SetFromRow fills the record from a question|answer|distractors row.
// Rows of any other width are rejected and leave q unchanged.
func (q *Question) SetFromRow(row []string) bool {
	if len(row) != 3 {
		return false
	}
	q.Question = row[0]
	q.Answer = row[1]
	q.Distractors = strings.Split(row[2], DistractorSeparator)
	return true
}

// SetFromStructured fills the record from decoded JSON. All three keys must be
// present; q is only modified when every value has the expected shape.
func (q *Question) SetFromStructured(data map[string]any) bool {
	if data == nil {
		return false
	}
	rawQuestion, okQ := data["question"]
	rawAnswer, okA := data["answer"]
	rawDistractors, okD := data["distractors"]
	if !okQ || !okA || !okD {
		return false
	}

	text, ok := rawQuestion.(string)
	if !ok {
		return false
	}
	answer, ok := rawAnswer.(string)
	if !ok {
		return false
	}
	distractors, ok := stringList(rawDistractors)
	if !ok {
		return false
	}

	q.Question = text
	q.Answer = answer
	q.Distractors = distractors
	return true
}

func stringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// AssignID sets the identity exactly once.
func (q *Question) AssignID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if q.ID != 0 {
		return fmt.Errorf("%w: tried to change id from %d to %d", ErrIdentityConflict, q.ID, id)
	}
	q.ID = id
	return nil
}

// Clone returns a deep copy.
func (q *Question) Clone() *Question {
	out := *q
	if q.Distractors != nil {
		out.Distractors = append([]string(nil), q.Distractors...)
	}
	return &out
}

// Structured returns the map form used for JSON output.
func (q *Question) Structured() map[string]any {
	distractors := q.Distractors
	if distractors == nil {
		distractors = []string{}
	}
	return map[string]any{
		"id":          q.ID,
		"question":    q.Question,
		"answer":      q.Answer,
		"distractors": distractors,
	}
}

// JSON renders the question as indented JSON with sorted keys.
func (q *Question) JSON() ([]byte, error) {
	return json.MarshalIndent(q.Structured(), "", "    ")
}

// DelimitedRow renders id|question|answer|distractors. Values are written as-is;
// a delimiter inside a field is not escaped.
func (q *Question) DelimitedRow() string {
	return strconv.FormatInt(q.ID, 10) + fieldDelimiter +
		q.Question + fieldDelimiter +
		q.Answer + fieldDelimiter +
		strings.Join(q.Distractors, DistractorSeparator) + "\n"
}

func containsAny(values []string, sub string) bool {
	for _, v := range values {
		if strings.Contains(v, sub) {
			return true
		}
	}
	return false
}
