package question

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// maxSeedLineBytes bounds a single seed line.
const maxSeedLineBytes = 1 << 20

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// LoadReport summarizes one seeding pass.
type LoadReport struct {
	Source    string `json:"source"`
	TotalRows int    `json:"total_rows"`
	Loaded    int    `json:"loaded"`
	Skipped   int    `json:"skipped"`
}

// LoadFile seeds repo from a delimited text file, or from a workbook when the
// path ends in .xlsx. A missing or unreadable file leaves repo untouched and is
// only logged.
func LoadFile(repo *Repository, path string, log *zap.Logger) LoadReport {
	log = orNop(log)
	report := LoadReport{Source: path}
	f, err := os.Open(path)
	if err != nil {
		log.Warn("seed file unavailable", zap.String("path", path), zap.Error(err))
		return report
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		report, err = LoadExcel(repo, f, log)
		report.Source = path
		if err != nil {
			log.Warn("seed workbook unreadable", zap.String("path", path), zap.Error(err))
		}
	} else {
		report = LoadDelimited(repo, f, log)
		report.Source = path
	}

	log.Info("seed file loaded",
		zap.String("path", path),
		zap.Int("total_rows", report.TotalRows),
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", report.Skipped),
	)
	return report
}

// LoadDelimited reads |-delimited rows, one per line. The format has no
// quoting, so a field is everything between two delimiters. An optional header
// line is skipped, four-column rows drop their leading id and rows of any other
// width are skipped.
func LoadDelimited(repo *Repository, r io.Reader, log *zap.Logger) LoadReport {
	log = orNop(log)
	var report LoadReport

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxSeedLineBytes)

	first := true
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		row := strings.Split(line, fieldDelimiter)

		if first {
			first = false
			if isHeaderRow(row) {
				continue
			}
		}

		report.TotalRows++
		if loadRow(repo, row, log) {
			report.Loaded++
		} else {
			report.Skipped++
		}
	}
	if err := sc.Err(); err != nil {
		log.Warn("seed read aborted", zap.Int("loaded", report.Loaded), zap.Error(err))
	}
	return report
}

// LoadExcel reads the first sheet of a workbook whose header row names the
// question, answer and distractors columns.
func LoadExcel(repo *Repository, r io.Reader, log *zap.Logger) (LoadReport, error) {
	log = orNop(log)
	var report LoadReport

	f, err := excelize.OpenReader(r)
	if err != nil {
		return report, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return report, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return report, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return report, nil
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"question", "answer", "distractors"} {
		if _, ok := header[col]; !ok {
			return report, fmt.Errorf("missing required column: %s", col)
		}
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		get := func(key string) (string, bool) {
			idx := header[key]
			if idx >= len(row) {
				return "", false
			}
			return row[idx], true
		}

		report.TotalRows++
		text, okQ := get("question")
		answer, okA := get("answer")
		distractors, okD := get("distractors")
		if !okQ || !okA || !okD {
			report.Skipped++
			log.Debug("skip short workbook row", zap.Int("row", i+1))
			continue
		}
		if loadRow(repo, []string{text, answer, distractors}, log) {
			report.Loaded++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}

// LoadFromDB seeds repo from question, answer and distractors columns of a
// table. Distractors are stored as one ", "-joined text value.
func LoadFromDB(ctx context.Context, db *sql.DB, table string, repo *Repository, log *zap.Logger) (LoadReport, error) {
	log = orNop(log)
	report := LoadReport{Source: "db:" + table}
	if db == nil {
		return report, errors.New("seed database is not configured")
	}
	if !tableNamePattern.MatchString(table) {
		return report, fmt.Errorf("invalid seed table name %q", table)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(question, ''), COALESCE(answer, ''), COALESCE(distractors, '')
		FROM `+table+`
		ORDER BY id ASC
	`)
	if err != nil {
		return report, fmt.Errorf("query seed questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var text, answer, distractors string
		report.TotalRows++
		if err := rows.Scan(&text, &answer, &distractors); err != nil {
			report.Skipped++
			log.Debug("skip unreadable seed record", zap.Error(err))
			continue
		}
		if loadRow(repo, []string{text, answer, distractors}, log) {
			report.Loaded++
		} else {
			report.Skipped++
		}
	}
	if err := rows.Err(); err != nil {
		return report, fmt.Errorf("iterate seed questions: %w", err)
	}

	log.Info("seed table loaded",
		zap.String("table", table),
		zap.Int("total_rows", report.TotalRows),
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func loadRow(repo *Repository, row []string, log *zap.Logger) bool {
	if len(row) == len(exportColumns) {
		row = row[1:]
	}
	var q Question
	if !q.SetFromRow(row) {
		log.Debug("skip seed row", zap.Int("fields", len(row)))
		return false
	}
	if _, err := repo.Create(&q); err != nil {
		log.Debug("skip seed row", zap.Error(err))
		return false
	}
	return true
}

func isHeaderRow(row []string) bool {
	cols := make([]string, len(row))
	for i, c := range row {
		cols[i] = strings.ToLower(strings.TrimSpace(c))
	}
	joined := strings.Join(cols, "|")
	return joined == strings.Join(exportColumns, "|") || joined == strings.Join(exportColumns[1:], "|")
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
