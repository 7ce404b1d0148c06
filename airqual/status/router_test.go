package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alepar/airqual/airqual"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatusBeforeFirstCycle(t *testing.T) {
	r := NewRouter(&Store{}, nil)

	assert.Equal(t, http.StatusOK, get(t, r, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/status").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/sensors/porch").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/metrics").Code)
}

func TestStatusServesLatestSnapshot(t *testing.T) {
	store := &Store{}
	aqi := 42.0
	store.Publish(airqual.Snapshot{
		Time: time.Unix(1700000000, 0).UTC(),
		Consensus: airqual.Summary{
			AQI:     airqual.ConsensusResult{Value: 42, Method: airqual.MethodSingle},
			Status:  "Good",
			Sensors: 1,
		},
		Light:   airqual.LightReport{State: "aqi_lit", Level: "good"},
		Sensors: []airqual.SensorReport{{Name: "porch", ID: 7, Measurements: airqual.Measurements{AQI: &aqi}}},
	})

	r := NewRouter(store, prometheus.NewRegistry())

	rec := get(t, r, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap airqual.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "Good", snap.Consensus.Status)
	assert.Equal(t, 42.0, snap.Consensus.AQI.Value)
	assert.Equal(t, "good", snap.Light.Level)

	rec = get(t, r, "/sensors/porch")
	require.Equal(t, http.StatusOK, rec.Code)
	var sensor airqual.SensorReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sensor))
	assert.Equal(t, 7, sensor.ID)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/sensors/garden").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/metrics").Code)
}

func TestPublishCopiesSnapshot(t *testing.T) {
	store := &Store{}
	snap := airqual.Snapshot{Consensus: airqual.Summary{Status: "Good"}}
	store.Publish(snap)
	snap.Consensus.Status = "Hazardous"

	assert.Equal(t, "Good", store.Latest().Consensus.Status)
}
