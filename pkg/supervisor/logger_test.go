package supervisor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "run1.csv", want: "run1.csv"},
		{in: "run 1", want: "run_1.csv"},
		{in: "../../etc/passwd", want: "passwd.csv"},
		{in: "heat soak #3!.csv", want: "heat_soak_3.csv"},
		{in: ".hidden", wantErr: true},
		{in: "///", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sanitizeFilename(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFilename)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir)

	st := l.Status()
	assert.False(t, st.Active)
	assert.Zero(t, st.Rows)

	st, err := l.Start("run1")
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, "run1.csv", st.Filename)

	// Double start is refused.
	_, err = l.Start("run2")
	assert.ErrorIs(t, err, ErrLoggingActive)

	p, ok := ParseLine("1.000,24.50,nan,1,A")
	require.True(t, ok)
	l.Log(p)
	l.Log(Payload{"type": "header", "line": "time_s,..."}) // ignored

	st, ok = l.Stop()
	require.True(t, ok)
	assert.Equal(t, 1, st.Rows)

	// Second stop reports inactive.
	_, ok = l.Stop()
	assert.False(t, ok)

	data, err := os.ReadFile(filepath.Join(dir, "run1.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "time_s,temp0_C"))
	assert.Equal(t, "1.000,24.50,nan,nan,nan,nan,nan,nan,nan,nan,nan,1,A", lines[1])
}

func TestLogger_LogWhileStoppedIsNoop(t *testing.T) {
	l := NewLogger(t.TempDir())

	p, ok := ParseLine("1.000,24.50,1,A")
	require.True(t, ok)
	l.Log(p)

	assert.Zero(t, l.Status().Rows)
}
