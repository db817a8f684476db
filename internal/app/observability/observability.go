package observability

import (
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type key struct {
	Method string
	Path   string
	Status int
}

type stat struct {
	Count     int64
	LatencyMS float64
}

// StoreSizer reports how many questions are held in memory.
type StoreSizer interface {
	Len() int
}

type Collector struct {
	db    *sql.DB
	store StoreSizer
	log   *zap.Logger

	mu           sync.RWMutex
	requestStats map[key]stat
	startedAt    time.Time
}

// NewCollector builds a collector. db may be nil when no seed database is open.
func NewCollector(store StoreSizer, db *sql.DB, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{
		db:           db,
		store:        store,
		log:          log,
		requestStats: make(map[key]stat),
		startedAt:    time.Now(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		path := normalizedPath(r.URL.Path)

		c.mu.Lock()
		k := key{Method: r.Method, Path: path, Status: rec.status}
		s := c.requestStats[k]
		s.Count++
		s.LatencyMS += latencyMS
		c.requestStats[k] = s
		c.mu.Unlock()

		c.log.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int64s("question_ids", extractQuestionIDs(r.URL.Path)),
			zap.Int("status", rec.status),
			zap.Float64("latency_ms", latencyMS),
			zap.String("remote_ip", strings.TrimSpace(r.RemoteAddr)),
		)
	})
}

func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	statsCopy := make(map[key]stat, len(c.requestStats))
	for k, v := range c.requestStats {
		statsCopy[k] = v
	}
	startedAt := c.startedAt
	c.mu.RUnlock()

	keys := make([]key, 0, len(statsCopy))
	for k := range statsCopy {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Status < keys[j].Status
	})

	var sb strings.Builder
	sb.WriteString("# quizbank observability metrics\n")
	sb.WriteString("# TYPE quizbank_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("quizbank_uptime_seconds %.0f\n", time.Since(startedAt).Seconds()))

	if c.store != nil {
		sb.WriteString("# TYPE quizbank_questions_stored gauge\n")
		sb.WriteString(fmt.Sprintf("quizbank_questions_stored %d\n", c.store.Len()))
	}

	sb.WriteString("# TYPE quizbank_http_requests_total counter\n")
	sb.WriteString("# TYPE quizbank_http_request_latency_ms_sum counter\n")
	sb.WriteString("# TYPE quizbank_http_request_latency_ms_avg gauge\n")
	for _, k := range keys {
		s := statsCopy[k]
		labels := fmt.Sprintf("method=\"%s\",path=\"%s\",status=\"%d\"", k.Method, k.Path, k.Status)
		sb.WriteString(fmt.Sprintf("quizbank_http_requests_total{%s} %d\n", labels, s.Count))
		sb.WriteString(fmt.Sprintf("quizbank_http_request_latency_ms_sum{%s} %.3f\n", labels, s.LatencyMS))
		avg := 0.0
		if s.Count > 0 {
			avg = s.LatencyMS / float64(s.Count)
		}
		sb.WriteString(fmt.Sprintf("quizbank_http_request_latency_ms_avg{%s} %.3f\n", labels, avg))
	}

	if c.db != nil {
		dbs := c.db.Stats()
		sb.WriteString("# TYPE quizbank_seed_db_open_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizbank_seed_db_open_connections %d\n", dbs.OpenConnections))
		sb.WriteString("# TYPE quizbank_seed_db_in_use_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizbank_seed_db_in_use_connections %d\n", dbs.InUse))
		sb.WriteString("# TYPE quizbank_seed_db_idle_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizbank_seed_db_idle_connections %d\n", dbs.Idle))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

// normalizedPath replaces id segments, including comma-separated id lists,
// with {id} so metrics keys stay bounded.
func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if isIDList(p) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func isIDList(segment string) bool {
	for _, p := range strings.Split(segment, ",") {
		if _, err := strconv.ParseInt(p, 10, 64); err != nil {
			return false
		}
	}
	return true
}

func extractQuestionIDs(path string) []int64 {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] != "questions" || !isIDList(parts[i+1]) {
			continue
		}
		var ids []int64
		for _, p := range strings.Split(parts[i+1], ",") {
			id, _ := strconv.ParseInt(p, 10, 64)
			ids = append(ids, id)
		}
		return ids
	}
	return nil
}
