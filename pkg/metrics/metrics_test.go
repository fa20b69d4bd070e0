package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lucidexport/pkg/models"
)

// gathered returns the metric families of r keyed by name
func gathered(t *testing.T, r *Recorder) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func counterWithLabel(mf *dto.MetricFamily, value string) float64 {
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status" && lp.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRecorderCountsOutcomes(t *testing.T) {
	r := NewRecorder()

	r.PageStarted("D1", 1)
	r.PageFinished("D1", models.PageOutcome{PageNumber: 1, Success: true, Size: 100, Started: true, Duration: 20 * time.Millisecond})
	r.PageStarted("D1", 2)
	r.PageFinished("D1", models.PageOutcome{PageNumber: 2, Err: errors.New("empty"), Started: true, Duration: 5 * time.Millisecond})

	r.DocumentFinished(models.DocumentOutcome{DocumentID: "D1", Pages: []models.PageOutcome{{Success: true}, {Success: false}}})
	r.DocumentFinished(models.DocumentOutcome{DocumentID: "D2", Err: errors.New("not found")})
	r.DocumentFinished(models.DocumentOutcome{DocumentID: "D3", Pages: []models.PageOutcome{{Success: true}}})

	families := gathered(t, r)

	pages := families["lucidexport_pages_total"]
	require.NotNil(t, pages)
	assert.Equal(t, 1.0, counterWithLabel(pages, "success"))
	assert.Equal(t, 1.0, counterWithLabel(pages, "failure"))

	docs := families["lucidexport_documents_total"]
	require.NotNil(t, docs)
	assert.Equal(t, 1.0, counterWithLabel(docs, "succeeded"))
	assert.Equal(t, 1.0, counterWithLabel(docs, "partial"))
	assert.Equal(t, 1.0, counterWithLabel(docs, "failed"))

	assert.Equal(t, 100.0, families["lucidexport_page_bytes_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 0.0, families["lucidexport_pages_in_flight"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, uint64(2), families["lucidexport_page_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestRecorderIgnoresUnstartedPagesForInFlight(t *testing.T) {
	r := NewRecorder()
	r.PageStarted("D1", 1)
	// page 2 never got a slot but still carries a measured duration
	r.PageFinished("D1", models.PageOutcome{PageNumber: 2, Err: errors.New("context canceled"), Duration: time.Millisecond})

	families := gathered(t, r)
	assert.Equal(t, 1.0, families["lucidexport_pages_in_flight"].GetMetric()[0].GetGauge().GetValue())

	r.PageFinished("D1", models.PageOutcome{PageNumber: 1, Success: true, Started: true, Duration: time.Millisecond})
	families = gathered(t, r)
	assert.Equal(t, 0.0, families["lucidexport_pages_in_flight"].GetMetric()[0].GetGauge().GetValue())
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.PageStarted("D1", 1)
	r.PageFinished("D1", models.PageOutcome{PageNumber: 1, Success: true, Size: 42, Started: true, Duration: time.Millisecond})

	path := filepath.Join(t.TempDir(), "textfile", "lucidexport.prom")
	require.NoError(t, r.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.True(t, strings.Contains(text, `lucidexport_pages_total{status="success"} 1`), text)
	assert.Contains(t, text, "lucidexport_page_bytes_total 42")
	assert.Contains(t, text, "lucidexport_last_run_timestamp_seconds")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.PageStarted("D1", 1)
	r.PageFinished("D1", models.PageOutcome{Success: true})
	r.DocumentFinished(models.DocumentOutcome{})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile("/nonexistent/metrics.prom"))
}
