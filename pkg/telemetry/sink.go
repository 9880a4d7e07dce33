package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hfe-lab/rigctl/pkg/sensor"
)

// JSONSink writes one JSON object per line.
type JSONSink struct {
	w   io.Writer
	enc *json.Encoder
}

// NewJSONSink creates a sink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w, enc: json.NewEncoder(w)}
}

// Emit writes rec as a single newline-terminated JSON object.
func (s *JSONSink) Emit(rec *Record) error {
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	return nil
}

// CSVSink writes the legacy column format:
// time_s,temp0_C..temp9_C,valve,mode. Invalid channels print "nan". The
// header goes out once, before the first record.
type CSVSink struct {
	w           io.Writer
	wroteHeader bool
}

// NewCSVSink creates a sink writing to w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: w}
}

// Emit writes rec as one CSV row, preceded by the header on first use.
func (s *CSVSink) Emit(rec *Record) error {
	if !s.wroteHeader {
		if _, err := io.WriteString(s.w, s.header()); err != nil {
			return fmt.Errorf("write telemetry header: %w", err)
		}
		s.wroteHeader = true
	}

	var b strings.Builder
	b.WriteString(strconv.FormatFloat(rec.T, 'f', 3, 64))
	for _, t := range rec.Temps {
		b.WriteByte(',')
		if t != nil {
			b.WriteString(strconv.FormatFloat(*t, 'f', 2, 64))
		} else {
			b.WriteString("nan")
		}
	}
	fmt.Fprintf(&b, ",%d,%s\n", rec.Valve, rec.Mode)

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("write telemetry row: %w", err)
	}
	return nil
}

func (s *CSVSink) header() string {
	var b strings.Builder
	b.WriteString("time_s")
	for i := 0; i < sensor.NumChannels; i++ {
		fmt.Fprintf(&b, ",temp%d_C", i)
	}
	b.WriteString(",valve,mode\n")
	return b.String()
}
