package question

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
)

const (
	SortByID          = "i"
	SortByQuestion    = "q"
	SortByAnswer      = "a"
	SortByDistractors = "d"
)

var sortFuncs = map[string]func(a, b *Question) int{
	SortByID:          func(a, b *Question) int { return cmp.Compare(a.ID, b.ID) },
	SortByQuestion:    func(a, b *Question) int { return strings.Compare(a.Question, b.Question) },
	SortByAnswer:      func(a, b *Question) int { return strings.Compare(a.Answer, b.Answer) },
	SortByDistractors: func(a, b *Question) int { return cmp.Compare(len(a.Distractors), len(b.Distractors)) },
}

// Filters holds the optional inputs of GetWithFilters. Nil fields are ignored.
type Filters struct {
	// IDs restricts the base set to these ids, in order. Unknown ids are skipped.
	IDs []string

	// Start is 1-based; pagination applies only when both Start and Num are set.
	Start *int
	Num   *int

	QuestionContains   *string
	AnswerContains     *string
	DistractorContains *string

	SortKey    string
	Descending bool
}

// Repository is the in-memory question store. The store keeps its own copies:
// values passed in and handed out are never aliased with stored records.
type Repository struct {
	mu     sync.RWMutex
	store  map[int64]*Question
	nextID int64
}

func NewRepository() *Repository {
	return &Repository{
		store:  make(map[int64]*Question),
		nextID: 1,
	}
}

// Create assigns the next id to q and stores it. A question that already
// carries an id is rejected with ErrIdentityConflict.
func (r *Repository) Create(q *Question) (*Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := q.AssignID(r.nextID); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	if _, exists := r.store[q.ID]; !exists {
		r.store[q.ID] = q.Clone()
	}
	r.nextID++
	return q, nil
}

// Change replaces the stored record with the same id. It reports false when
// the id is unknown.
func (r *Repository) Change(q *Question) (*Question, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[q.ID]; !exists {
		return nil, false
	}
	r.store[q.ID] = q.Clone()
	return q, true
}

func (r *Repository) Remove(q *Question) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store, q.ID)
}

func (r *Repository) Get(id int64) (*Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.store[id]
	if !ok {
		return nil, false
	}
	return q.Clone(), true
}

// GetByID parses raw as an id and looks it up. ErrInvalidID is returned for
// non-integer input; an unknown id is reported through the bool.
func (r *Repository) GetByID(raw string) (*Question, bool, error) {
	id, err := ParseID(strings.TrimSpace(raw))
	if err != nil {
		return nil, false, err
	}
	q, ok := r.Get(id)
	return q, ok, nil
}

func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}

// GetWithFilters runs the composite query: base set, stable sort, value
// filters, then pagination. Each stage works on the previous stage's output.
func (r *Repository) GetWithFilters(f Filters) (*Collection, error) {
	working, err := r.baseSet(f.IDs)
	if err != nil {
		return nil, err
	}

	compare, ok := sortFuncs[strings.ToLower(f.SortKey)]
	if !ok {
		compare = sortFuncs[SortByID]
	}
	if f.Descending {
		asc := compare
		compare = func(a, b *Question) int { return asc(b, a) }
	}
	slices.SortStableFunc(working, compare)

	if f.QuestionContains != nil {
		sub := *f.QuestionContains
		working = slices.DeleteFunc(working, func(q *Question) bool {
			return !strings.Contains(q.Question, sub)
		})
	}
	if f.AnswerContains != nil {
		sub := *f.AnswerContains
		working = slices.DeleteFunc(working, func(q *Question) bool {
			return !strings.Contains(q.Answer, sub)
		})
	}
	if f.DistractorContains != nil {
		sub := *f.DistractorContains
		working = slices.DeleteFunc(working, func(q *Question) bool {
			return !containsAny(q.Distractors, sub)
		})
	}

	if f.Start != nil && f.Num != nil {
		lo, hi := window(len(working), *f.Start-1, pageEnd(*f.Start, *f.Num))
		working = working[lo:hi]
	}

	out := NewCollection()
	for _, q := range working {
		out.Add(q)
	}
	return out, nil
}

func (r *Repository) baseSet(ids []string) ([]*Question, error) {
	if ids != nil {
		parsed := make([]int64, 0, len(ids))
		for _, raw := range ids {
			id, err := ParseID(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("get with filters: %w", err)
			}
			parsed = append(parsed, id)
		}

		r.mu.RLock()
		defer r.mu.RUnlock()
		out := make([]*Question, 0, len(parsed))
		for _, id := range parsed {
			if q, ok := r.store[id]; ok {
				out = append(out, q.Clone())
			}
		}
		return out, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]int64, 0, len(r.store))
	for id := range r.store {
		keys = append(keys, id)
	}
	slices.Sort(keys)

	out := make([]*Question, 0, len(keys))
	for _, id := range keys {
		out = append(out, r.store[id].Clone())
	}
	return out, nil
}

// pageEnd returns start+num-1, saturated at the int bounds.
func pageEnd(start, num int) int {
	if num > 0 && start > math.MaxInt-num+1 {
		return math.MaxInt
	}
	if num < 0 && start < math.MinInt-num+1 {
		return math.MinInt
	}
	return start + num - 1
}

// window resolves a [lo:hi] slice over n elements the way negative-index slice
// semantics do: negative bounds count from the end, everything is clamped, and
// hi below lo yields an empty window.
func window(n, lo, hi int) (int, int) {
	clamp := func(i int) int {
		if i < 0 {
			i += n
			if i < 0 {
				return 0
			}
		}
		if i > n {
			return n
		}
		return i
	}
	lo, hi = clamp(lo), clamp(hi)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
