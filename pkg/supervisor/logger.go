package supervisor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// maxLogSensors fixes the CSV column count regardless of how many channels a
// given telemetry payload carries.
const maxLogSensors = 10

var (
	ErrLoggingActive   = errors.New("logging already active")
	ErrInvalidFilename = errors.New("invalid filename")
)

// LogStatus describes the raw-CSV logger for the API.
type LogStatus struct {
	OK       bool   `json:"ok"`
	Active   bool   `json:"active"`
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
	Rows     int    `json:"rows"`
}

// Logger appends telemetry payloads to an operator-started CSV file. Safe for
// concurrent use; the broadcaster and the API both touch it.
type Logger struct {
	dir string

	mu     sync.Mutex
	active bool
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewLogger creates a logger writing under dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir}
}

// Start opens a new CSV file and writes the header. An empty filename gets a
// timestamped default. Fails when a log is already open.
func (l *Logger) Start(filename string) (LogStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active {
		return LogStatus{}, ErrLoggingActive
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return LogStatus{}, fmt.Errorf("create log dir: %w", err)
	}

	if filename == "" {
		filename = fmt.Sprintf("tc_log_%s.csv", time.Now().Format("20060102_150405"))
	}
	safe, err := sanitizeFilename(filename)
	if err != nil {
		return LogStatus{}, err
	}

	path := filepath.Join(l.dir, safe)
	f, err := os.Create(path)
	if err != nil {
		return LogStatus{}, fmt.Errorf("create log file: %w", err)
	}

	w := csv.NewWriter(f)
	header := make([]string, 0, maxLogSensors+3)
	header = append(header, "time_s")
	for i := 0; i < maxLogSensors; i++ {
		header = append(header, fmt.Sprintf("temp%d_C", i))
	}
	header = append(header, "valve", "mode")
	if err := w.Write(header); err != nil {
		f.Close()
		return LogStatus{}, fmt.Errorf("write log header: %w", err)
	}
	w.Flush()

	l.active = true
	l.path = path
	l.file = f
	l.writer = w
	l.rows = 0
	return l.statusLocked(), nil
}

// Stop closes the current log. The second return is false when no log was
// open.
func (l *Logger) Stop() (LogStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return LogStatus{}, false
	}

	l.writer.Flush()
	l.file.Close()

	st := LogStatus{
		OK:       true,
		Active:   false,
		Path:     l.path,
		Filename: filepath.Base(l.path),
		Rows:     l.rows,
	}

	l.active = false
	l.path = ""
	l.file = nil
	l.writer = nil
	l.rows = 0
	return st, true
}

// Status reports the logger state.
func (l *Logger) Status() LogStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked()
}

func (l *Logger) statusLocked() LogStatus {
	st := LogStatus{OK: true, Active: l.active, Rows: l.rows}
	if l.active {
		st.Path = l.path
		st.Filename = filepath.Base(l.path)
	}
	return st
}

// Log appends one telemetry payload as a CSV row. Non-telemetry payloads and
// a stopped logger are both no-ops.
func (l *Logger) Log(p Payload) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active || p["type"] != "telemetry" {
		return
	}

	row := make([]string, 0, maxLogSensors+3)
	if t, ok := p["t"].(float64); ok && !math.IsNaN(t) && !math.IsInf(t, 0) {
		row = append(row, fmt.Sprintf("%.3f", t))
	} else {
		row = append(row, "")
	}

	temps, _ := p["temps"].([]any)
	for i := 0; i < maxLogSensors; i++ {
		var v any
		if i < len(temps) {
			v = temps[i]
		}
		if f, ok := v.(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			row = append(row, fmt.Sprintf("%.2f", f))
		} else {
			row = append(row, "nan")
		}
	}

	valve := "0"
	if v, ok := p["valve"].(float64); ok {
		valve = fmt.Sprintf("%d", int(v))
	} else if v, ok := p["valve"].(int); ok {
		valve = fmt.Sprintf("%d", v)
	}
	row = append(row, valve)

	mode := ""
	if m, ok := p["mode"].(string); ok && m != "" {
		mode = m[:1]
	}
	row = append(row, mode)

	if err := l.writer.Write(row); err != nil {
		return
	}
	l.writer.Flush()
	l.rows++
}

// sanitizeFilename reduces an operator-supplied name to a safe basename
// ending in .csv. Path separators, hidden-file prefixes and exotic
// characters are rejected or stripped.
func sanitizeFilename(name string) (string, error) {
	candidate := strings.TrimSpace(filepath.Base(name))
	candidate = strings.ReplaceAll(candidate, " ", "_")

	var b strings.Builder
	for _, c := range candidate {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '-', c == '_', c == '.':
			b.WriteRune(c)
		}
	}

	out := b.String()
	if out == "" || strings.HasPrefix(out, ".") {
		return "", ErrInvalidFilename
	}
	if !strings.HasSuffix(strings.ToLower(out), ".csv") {
		out += ".csv"
	}
	return out, nil
}
