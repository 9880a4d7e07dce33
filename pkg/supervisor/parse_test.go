package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_JSON(t *testing.T) {
	p, ok := ParseLine(`{"type":"telemetry","t":1.5,"valve":1,"mode":"A"}`)
	require.True(t, ok)

	assert.Equal(t, "telemetry", p["type"])
	assert.Equal(t, 1.5, p["t"])
	assert.Equal(t, float64(1), p["valve"])
}

func TestParseLine_CSVRow(t *testing.T) {
	p, ok := ParseLine("12.500,24.50,nan,0.00,26.00,1,O")
	require.True(t, ok)

	assert.Equal(t, "telemetry", p["type"])
	assert.Equal(t, 12.5, p["t"])
	assert.Equal(t, 1, p["valve"])
	assert.Equal(t, "O", p["mode"])

	temps := p["temps"].([]any)
	require.Len(t, temps, 4)
	assert.Equal(t, 24.5, temps[0])
	assert.Nil(t, temps[1]) // nan
	assert.Nil(t, temps[2]) // exact zero reads as not-connected
	assert.Equal(t, 26.0, temps[3])

	// Headline temperature is the first connected channel.
	assert.Equal(t, 24.5, p["tC"])
}

func TestParseLine_JSONTelemetryHeadline(t *testing.T) {
	// The shape rigd's JSON sink emits: first channel connected, one gap.
	line := `{"type":"telemetry","t":12.5,"temps":[24.5,25.1,null,null,null,null,null,null,null,null],"valve":1,"mode":"A","pump":{"cmd_pct":50}}`

	p, ok := ParseLine(line)
	require.True(t, ok)
	assert.Equal(t, 24.5, p["tC"])

	// Leading gaps skip to the first connected channel.
	p, ok = ParseLine(`{"type":"telemetry","t":1,"temps":[null,26.0],"valve":0,"mode":"A"}`)
	require.True(t, ok)
	assert.Equal(t, 26.0, p["tC"])

	// No connected channel, no headline.
	p, ok = ParseLine(`{"type":"telemetry","t":1,"temps":[null,null],"valve":0,"mode":"A"}`)
	require.True(t, ok)
	_, present := p["tC"]
	assert.False(t, present)

	// An upstream tC is left alone.
	p, ok = ParseLine(`{"type":"telemetry","t":1,"temps":[20.0],"tC":99.0,"valve":0,"mode":"A"}`)
	require.True(t, ok)
	assert.Equal(t, 99.0, p["tC"])

	// Non-telemetry JSON passes through untouched.
	p, ok = ParseLine(`{"type":"header","line":"time_s"}`)
	require.True(t, ok)
	_, present = p["tC"]
	assert.False(t, present)
}

func TestParseLine_HeaderAndRaw(t *testing.T) {
	p, ok := ParseLine("time_s,temp0_C,valve,mode")
	require.True(t, ok)
	assert.Equal(t, "header", p["type"])

	p, ok = ParseLine("something unparseable")
	require.True(t, ok)
	assert.Equal(t, "raw", p["type"])
}

func TestParseLine_SkipsBlanksAndComments(t *testing.T) {
	_, ok := ParseLine("")
	assert.False(t, ok)
	_, ok = ParseLine("   ")
	assert.False(t, ok)
	_, ok = ParseLine("# boot banner")
	assert.False(t, ok)
}
