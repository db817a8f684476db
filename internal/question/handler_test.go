package question

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type mockQuestionStore struct {
	createFn  func(q *Question) (*Question, error)
	changeFn  func(q *Question) (*Question, bool)
	removeFn  func(q *Question)
	getFn     func(id int64) (*Question, bool)
	filtersFn func(f Filters) (*Collection, error)
}

func (m *mockQuestionStore) Create(q *Question) (*Question, error) {
	if m.createFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createFn(q)
}

func (m *mockQuestionStore) Change(q *Question) (*Question, bool) {
	if m.changeFn == nil {
		return nil, false
	}
	return m.changeFn(q)
}

func (m *mockQuestionStore) Remove(q *Question) {
	if m.removeFn != nil {
		m.removeFn(q)
	}
}

func (m *mockQuestionStore) Get(id int64) (*Question, bool) {
	if m.getFn == nil {
		return nil, false
	}
	return m.getFn(id)
}

func (m *mockQuestionStore) GetWithFilters(f Filters) (*Collection, error) {
	if m.filtersFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.filtersFn(f)
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return out
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleHandler(t *testing.T) (*Handler, *Repository) {
	t.Helper()
	repo := seededRepo(t,
		Question{Question: "2+2", Answer: "4", Distractors: []string{"3", "5"}},
		Question{Question: "capital of France", Answer: "Paris", Distractors: []string{"London", "Berlin"}},
		Question{Question: "largest planet", Answer: "Jupiter", Distractors: []string{"Mars", "Saturn"}},
	)
	return NewHandler(repo, nil), repo
}

func TestListQuestionsDefaultJSON(t *testing.T) {
	h, _ := sampleHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/questions", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	out := decodeList(t, w)
	if len(out) != 3 || out[0]["id"].(float64) != 1 || out[2]["answer"] != "Jupiter" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestListQuestionsQueryArguments(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []float64
	}{
		{name: "sort by answer descending", query: "?sk=a&sd=d", want: []float64{2, 3, 1}},
		{name: "descending flag is case insensitive", query: "?sk=i&sd=D", want: []float64{3, 2, 1}},
		{name: "question filter", query: "?qf=planet", want: []float64{3}},
		{name: "answer filter", query: "?af=4", want: []float64{1}},
		{name: "distractor filter", query: "?df=Ber", want: []float64{2}},
		{name: "pagination", query: "?start=2&num=1", want: []float64{2}},
		{name: "pagination with huge num", query: "?start=2&num=9223372036854775807", want: []float64{2, 3}},
		{name: "pagination ignored without num", query: "?start=2", want: []float64{1, 2, 3}},
		{name: "empty filter matches everything", query: "?qf=", want: []float64{1, 2, 3}},
		{name: "no match", query: "?qf=zzz", want: []float64{}},
	}

	h, _ := sampleHandler(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/questions"+tc.query, nil)
			w := httptest.NewRecorder()

			h.List(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			out := decodeList(t, w)
			got := make([]float64, 0, len(out))
			for _, item := range out {
				got = append(got, item["id"].(float64))
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got ids %v want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got ids %v want %v", got, tc.want)
				}
			}
		})
	}
}

func TestListQuestionsRejectsBadPagination(t *testing.T) {
	h, _ := sampleHandler(t)
	for _, query := range []string{"?start=0&num=1", "?start=1&num=0", "?start=x&num=1", "?start=1&num=-2"} {
		req := httptest.NewRequest(http.MethodGet, "/questions"+query, nil)
		w := httptest.NewRecorder()

		h.List(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, w.Code)
		}
		body := decodeMap(t, w)
		if body["ok"] != false {
			t.Fatalf("%s: expected ok=false", query)
		}
	}
}

func TestListQuestionsCSV(t *testing.T) {
	h, _ := sampleHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/questions?fmt=csv&start=1&num=2", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	want := "id|question|answer|distractors\n" +
		"1|2+2|4|3, 5\n" +
		"2|capital of France|Paris|London, Berlin\n"
	if w.Body.String() != want {
		t.Fatalf("got %q want %q", w.Body.String(), want)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestListQuestionsYAML(t *testing.T) {
	h, _ := sampleHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/questions?fmt=yaml&af=Paris", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	var out []Question
	if err := yaml.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(out) != 1 || out[0].ID != 2 {
		t.Fatalf("unexpected yaml %s", w.Body.String())
	}
}

func TestListQuestionsExcel(t *testing.T) {
	h, _ := sampleHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/questions?fmt=xlsx", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "questions.xlsx") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil || len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d (%v)", len(rows), err)
	}
}

func TestListByIDs(t *testing.T) {
	h, _ := sampleHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/questions/3,1,99", nil)
	req = withParam(req, "id", "3,1,99")
	w := httptest.NewRecorder()

	h.ListByIDs(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := decodeList(t, w)
	if len(out) != 2 || out[0]["id"].(float64) != 1 || out[1]["id"].(float64) != 3 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestListByIDsRejectsMalformedList(t *testing.T) {
	h, _ := sampleHandler(t)
	for _, raw := range []string{"1,,2", "abc", "1, 2", "1,"} {
		req := httptest.NewRequest(http.MethodGet, "/questions/x", nil)
		req = withParam(req, "id", raw)
		w := httptest.NewRecorder()

		h.ListByIDs(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", raw, w.Code)
		}
	}
}

func TestListQuestionsStoreFailure(t *testing.T) {
	h := &Handler{store: &mockQuestionStore{
		filtersFn: func(f Filters) (*Collection, error) {
			return nil, errors.New("boom")
		},
	}, log: zap.NewNop()}
	req := httptest.NewRequest(http.MethodGet, "/questions", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestCreateQuestionOK(t *testing.T) {
	h, repo := sampleHandler(t)
	payload := []byte(`{"question":"2+3","answer":"5","distractors":["4","6"]}`)
	req := httptest.NewRequest(http.MethodPost, "/questions", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	body := decodeMap(t, w)
	if body["id"].(float64) != 4 || body["answer"] != "5" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if repo.Len() != 4 {
		t.Fatalf("expected 4 stored questions, got %d", repo.Len())
	}
}

func TestCreateQuestionInvalidPayload(t *testing.T) {
	h, repo := sampleHandler(t)
	for _, payload := range []string{
		`{"question":"x"}`,
		`{"question":"x","answer":"y","distractors":"a, b"}`,
		`[1,2]`,
		`null`,
		`{`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader(payload))
		w := httptest.NewRecorder()

		h.Create(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", payload, w.Code)
		}
	}
	if repo.Len() != 3 {
		t.Fatalf("invalid payloads must not be stored")
	}
}

func TestCreateQuestionConflict(t *testing.T) {
	h := &Handler{store: &mockQuestionStore{
		createFn: func(q *Question) (*Question, error) {
			return nil, ErrIdentityConflict
		},
	}, log: zap.NewNop()}
	payload := []byte(`{"question":"x","answer":"y","distractors":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/questions", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestUpdateQuestionOK(t *testing.T) {
	h, repo := sampleHandler(t)
	payload := []byte(`{"id":2,"question":"capital of Italy","answer":"Rome","distractors":["Milan"]}`)
	req := httptest.NewRequest(http.MethodPut, "/questions/2", bytes.NewReader(payload))
	req = withParam(req, "id", "2")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	stored, _ := repo.Get(2)
	if stored.Answer != "Rome" || len(stored.Distractors) != 1 {
		t.Fatalf("question not replaced: %+v", stored)
	}
}

func TestUpdateQuestionErrors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		payload string
		want    int
	}{
		{name: "bad id", id: "abc", payload: `{}`, want: http.StatusBadRequest},
		{name: "unknown id", id: "42", payload: `{"question":"x","answer":"y","distractors":[]}`, want: http.StatusNotFound},
		{name: "id mismatch", id: "1", payload: `{"id":2,"question":"x","answer":"y","distractors":[]}`, want: http.StatusBadRequest},
		{name: "missing fields", id: "1", payload: `{"question":"x"}`, want: http.StatusBadRequest},
		{name: "not an object", id: "1", payload: `"x"`, want: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, repo := sampleHandler(t)
			req := httptest.NewRequest(http.MethodPut, "/questions/"+tc.id, strings.NewReader(tc.payload))
			req = withParam(req, "id", tc.id)
			w := httptest.NewRecorder()

			h.Update(w, req)

			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			if q, _ := repo.Get(1); q.Question != "2+2" {
				t.Fatalf("rejected update changed stored question: %+v", q)
			}
		})
	}
}

func TestDeleteQuestion(t *testing.T) {
	h, repo := sampleHandler(t)

	req := withParam(httptest.NewRequest(http.MethodDelete, "/questions/1", nil), "id", "1")
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if _, ok := repo.Get(1); ok {
		t.Fatalf("question 1 still stored")
	}

	req = withParam(httptest.NewRequest(http.MethodDelete, "/questions/1", nil), "id", "1")
	w = httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}

	req = withParam(httptest.NewRequest(http.MethodDelete, "/questions/x", nil), "id", "x")
	w = httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
