package debug

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"grape/types"
)

func newTestRecord(t *testing.T) (*Record, *test.Hook) {
	logger, hook := test.NewNullLogger()
	rec := NewRecord(DefaultUnit, logger)
	rec.Init(&types.SystemParameters{
		H0:        mat.NewCDense(2, 2, nil),
		Controls:  []types.Control{{Name: "x"}, {Name: "y"}},
		TotalTime: 2,
		Steps:     4,
	})
	for i := 0; i < 3; i++ {
		rec.Update(&types.Iteration{
			Index:        i * 10,
			Rate:         0.01,
			Loss:         1 / float64(i+1),
			FidelityLoss: 0.5 / float64(i+1),
			Terms:        []types.TermValue{{Kind: types.PenaltyEnvelope, Value: 0.1}},
			Amplitudes:   [][]float64{{0, 1, 2, 1}, {0, -1, -2, -1}},
			Populations:  [][]float64{{1, 0.5, 0}, {0, 0.5, 1}},
		})
	}
	return rec, hook
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("MHz")
	require.NoError(t, err)
	assert.Equal(t, "us", u.Time)
	u, err = ParseUnit("")
	require.NoError(t, err)
	assert.Equal(t, DefaultUnit, u)
	_, err = ParseUnit("THz")
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestRecord(t *testing.T) {
	rec, hook := newTestRecord(t)
	assert.True(t, rec.IsDebug())
	assert.Equal(t, []float64{0, 0.5, 1, 1.5}, rec.Time)
	assert.Equal(t, []int{0, 10, 20}, rec.Iterations)
	assert.Len(t, rec.Terms["envelope"], 3)

	var buf bytes.Buffer
	require.NoError(t, rec.Render(&buf))
	var decoded Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, rec.Loss, decoded.Loss)
	assert.Equal(t, []string{"x", "y"}, decoded.Channels)

	rec.Error(errors.New("boom"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	rec.SetDebug(false)
	assert.False(t, rec.IsDebug())
}

// TestRecordCopiesRows 记录的幅度不随调用方后续修改而变化
func TestRecordCopiesRows(t *testing.T) {
	rec, _ := newTestRecord(t)
	amps := [][]float64{{1, 1, 1, 1}}
	rec.Update(&types.Iteration{Index: 30, Amplitudes: amps})
	amps[0][0] = 9
	assert.Equal(t, 1.0, rec.Amplitudes[0][0])
}

func TestChartsRender(t *testing.T) {
	rec, _ := newTestRecord(t)
	var d types.Debug = &Charts{Record: rec}
	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "fidelity_loss")
	assert.Contains(t, html, "envelope")
}

func TestPNG(t *testing.T) {
	rec, _ := newTestRecord(t)
	p, err := rec.PulsePlot()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, 4, 3, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	dir := t.TempDir()
	require.NoError(t, rec.SavePNG(dir, "00000_x"))
	for _, name := range []string{"00000_x_pulses.png", "00000_x_loss.png"} {
		st, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Greater(t, st.Size(), int64(0))
	}

	rec.Amplitudes = [][]float64{{1, 2}}
	_, err = rec.PulsePlot()
	assert.Error(t, err)
}
