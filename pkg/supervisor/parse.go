package supervisor

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// detectZeroAsNC treats an exact 0.00 in legacy CSV rows as a not-connected
// channel. The firmware-side CSV format cannot express null, and a rig at
// true 0.00 °C is not a case this bench sees.
const detectZeroAsNC = true

// Payload is one parsed console line, shaped for direct JSON fan-out to
// clients. Telemetry payloads carry "type":"telemetry"; header and
// unparseable lines pass through as "header"/"raw" so clients can display
// them verbatim.
type Payload map[string]any

// ParseLine converts one console line (JSON or legacy CSV) into a Payload.
// Returns false for blank lines and comments.
func ParseLine(line string) (Payload, bool) {
	text := strings.TrimSpace(line)
	if text == "" || strings.HasPrefix(text, "#") {
		return nil, false
	}

	// JSON lines pass through, gaining only the headline temperature.
	if strings.HasPrefix(text, "{") {
		var msg Payload
		if err := json.Unmarshal([]byte(text), &msg); err == nil {
			if msg["type"] == "telemetry" {
				addHeadline(msg)
			}
			return msg, true
		}
	}

	if strings.HasPrefix(text, "time_s") {
		return Payload{"type": "header", "line": text}, true
	}

	return parseCSV(text)
}

// parseCSV decodes a legacy telemetry row: time, N temperatures, valve, mode.
func parseCSV(text string) (Payload, bool) {
	parts := strings.Split(text, ",")
	if len(parts) < 3 {
		return Payload{"type": "raw", "line": text}, true
	}

	t, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Payload{"type": "raw", "line": text}, true
	}

	temps := make([]any, 0, len(parts)-3)
	for _, field := range parts[1 : len(parts)-2] {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		switch {
		case err != nil, math.IsNaN(v), math.IsInf(v, 0):
			temps = append(temps, nil)
		case detectZeroAsNC && math.Abs(v) < 1e-12:
			temps = append(temps, nil)
		default:
			temps = append(temps, v)
		}
	}

	payload := Payload{
		"type":  "telemetry",
		"t":     t,
		"temps": temps,
	}

	if valve, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-2])); err == nil {
		payload["valve"] = valve
	}
	if mode := strings.TrimSpace(parts[len(parts)-1]); mode != "" {
		payload["mode"] = mode[:1]
	}

	addHeadline(payload)
	return payload, true
}

// addHeadline sets tC, the readout-line temperature, to the first connected
// channel. A payload that already carries tC keeps it.
func addHeadline(p Payload) {
	if _, ok := p["tC"]; ok {
		return
	}
	temps, _ := p["temps"].([]any)
	for _, v := range temps {
		if f, ok := v.(float64); ok {
			p["tC"] = f
			return
		}
	}
}
