package main

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/alepar/airqual/airqual"
)

func TestObserve(t *testing.T) {
	aqi, hum := 42.0, 30.0
	observe(airqual.Snapshot{
		Consensus: airqual.Summary{
			AQI:     airqual.ConsensusResult{Value: 42},
			Sensors: 1,
		},
		Sensors: []airqual.SensorReport{
			{Name: "porch", Measurements: airqual.Measurements{AQI: &aqi, Humidity: &hum}},
		},
	})

	assert.Equal(t, 42.0, testutil.ToFloat64(gaugeAQI.WithLabelValues("porch")))
	assert.Equal(t, 30.0, testutil.ToFloat64(gaugeHumidity.WithLabelValues("porch")))
	assert.Equal(t, 42.0, testutil.ToFloat64(gaugeConsensus.WithLabelValues("aqi")))
	assert.Equal(t, 1.0, testutil.ToFloat64(gaugeConsensusSensors))

	observe(airqual.Snapshot{Sensors: []airqual.SensorReport{{Name: "porch"}}})
	assert.Equal(t, 0, testutil.CollectAndCount(gaugeAQI), "expired sensor series is dropped")
}
