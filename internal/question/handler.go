package question

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"quizbank/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	formatCSV   = "csv"
	formatYAML  = "yaml"
	formatExcel = "xlsx"

	contentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	store questionStore
	log   *zap.Logger
}

type questionStore interface {
	Create(q *Question) (*Question, error)
	Change(q *Question) (*Question, bool)
	Remove(q *Question)
	Get(id int64) (*Question, bool)
	GetWithFilters(f Filters) (*Collection, error)
}

func NewHandler(repo *Repository, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: repo, log: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, nil)
}

func (h *Handler) ListByIDs(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	if !isValidIDList(raw) {
		writeError(w, r, http.StatusBadRequest, "id list must be comma-separated integers")
		return
	}
	h.list(w, r, strings.Split(raw, ","))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, ids []string) {
	f, err := filtersFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	f.IDs = ids

	items, err := h.store.GetWithFilters(f)
	if err != nil {
		if errors.Is(err, ErrInvalidID) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("query questions", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeCollection(w, r, items)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var q Question
	if !q.SetFromStructured(body) {
		writeError(w, r, http.StatusBadRequest, "question, answer and distractors are required")
		return
	}

	created, err := h.store.Create(&q)
	if err != nil {
		if errors.Is(err, ErrIdentityConflict) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		h.log.Error("create question", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeQuestion(w, r, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid question id")
		return
	}
	current, ok := h.store.Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "question not found")
		return
	}

	body, ok := decodeObject(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if rawID, present := body["id"]; present && !sameID(rawID, id) {
		writeError(w, r, http.StatusBadRequest, "id in body does not match url")
		return
	}
	if !current.SetFromStructured(body) {
		writeError(w, r, http.StatusBadRequest, "question, answer and distractors are required")
		return
	}

	changed, ok := h.store.Change(current)
	if !ok {
		writeError(w, r, http.StatusNotFound, "question not found")
		return
	}
	h.writeQuestion(w, r, http.StatusOK, changed)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid question id")
		return
	}
	current, ok := h.store.Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "question not found")
		return
	}
	h.store.Remove(current)
	w.WriteHeader(http.StatusNoContent)
}

// filtersFromQuery maps fmt-independent query arguments onto Filters.
// start and num must be given together as positive integers.
func filtersFromQuery(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	f := Filters{SortKey: SortByID}

	if q.Has("start") && q.Has("num") {
		start, errStart := strconv.Atoi(strings.TrimSpace(q.Get("start")))
		num, errNum := strconv.Atoi(strings.TrimSpace(q.Get("num")))
		if errStart != nil || errNum != nil || start < 1 || num < 1 {
			return f, errors.New("start and num must be positive integers")
		}
		f.Start = &start
		f.Num = &num
	}

	if q.Has("qf") {
		v := q.Get("qf")
		f.QuestionContains = &v
	}
	if q.Has("af") {
		v := q.Get("af")
		f.AnswerContains = &v
	}
	if q.Has("df") {
		v := q.Get("df")
		f.DistractorContains = &v
	}
	if q.Has("sk") {
		f.SortKey = q.Get("sk")
	}
	f.Descending = strings.EqualFold(q.Get("sd"), "d")
	return f, nil
}

func isValidIDList(raw string) bool {
	if raw == "" || strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return false
	}
	for _, part := range strings.Split(raw, ",") {
		if _, err := ParseID(part); err != nil {
			return false
		}
	}
	return true
}

func decodeObject(r *http.Request) (map[string]any, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, false
	}
	return body, body != nil
}

func sameID(raw any, id int64) bool {
	switch v := raw.(type) {
	case float64:
		return v == float64(id)
	case json.Number:
		n, err := v.Int64()
		return err == nil && n == id
	default:
		return false
	}
}

func (h *Handler) writeQuestion(w http.ResponseWriter, r *http.Request, status int, q *Question) {
	body, err := q.JSON()
	if err != nil {
		h.log.Error("encode question", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteRaw(w, status, "application/json", body)
}

func (h *Handler) writeCollection(w http.ResponseWriter, r *http.Request, c *Collection) {
	var (
		body        []byte
		contentType string
		err         error
	)
	switch strings.ToLower(r.URL.Query().Get("fmt")) {
	case formatCSV:
		body, contentType = []byte(c.Delimited()), "text/csv; charset=utf-8"
	case formatYAML:
		body, err = c.YAML()
		contentType = "application/yaml"
	case formatExcel:
		var buf bytes.Buffer
		err = c.WriteExcel(&buf)
		body, contentType = buf.Bytes(), contentTypeExcel
		w.Header().Set("Content-Disposition", `attachment; filename="questions.xlsx"`)
	default:
		body, err = c.JSON()
		contentType = "application/json"
	}
	if err != nil {
		w.Header().Del("Content-Disposition")
		h.log.Error("encode questions", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteRaw(w, http.StatusOK, contentType, body)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	apiresp.WriteError(w, r, code, msg)
}
