package export

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airqual/airqual"
)

const (
	sensorMeasurement    = "air_quality"
	consensusMeasurement = "air_quality_consensus"
)

// Influx writes one point per sensor and one consensus point per snapshot.
type Influx struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInflux(url, token, org, bucket string) *Influx {
	client := influxdb2.NewClient(url, token)
	return &Influx{
		client: client,
		writer: client.WriteAPIBlocking(org, bucket),
	}
}

// Ping checks the server health, for use at startup.
func (i *Influx) Ping(ctx context.Context) error {
	health, err := i.client.Health(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to connect to influxdb")
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return errors.Errorf("influxdb health check failed: %s", msg)
	}
	return nil
}

func (i *Influx) Export(ctx context.Context, snap airqual.Snapshot) error {
	points := Points(snap)
	if len(points) == 0 {
		return nil
	}
	if err := i.writer.WritePoint(ctx, points...); err != nil {
		return errors.Wrap(err, "error writing to influxdb")
	}
	log.Debugf("wrote %d points to influxdb", len(points))
	return nil
}

func (i *Influx) Close() {
	i.client.Close()
}

// Points converts a snapshot to influx points. Sensors without any current
// measurement are skipped.
func Points(snap airqual.Snapshot) []*write.Point {
	var points []*write.Point

	for _, s := range snap.Sensors {
		fields := map[string]interface{}{}
		m := s.Measurements
		addField(fields, "pm2_5_atm", m.PM25Atm)
		addField(fields, "us_epa_pm2_5_aqi", m.AQI)
		addField(fields, "temperature_c", m.TemperatureC)
		addField(fields, "humidity", m.Humidity)
		addField(fields, "pressure", m.Pressure)
		if len(fields) == 0 {
			continue
		}
		points = append(points, influxdb2.NewPoint(
			sensorMeasurement,
			map[string]string{"sensor": s.Name},
			fields,
			s.DataTimestamp,
		))
	}

	c := snap.Consensus
	if c.Sensors > 0 {
		points = append(points, influxdb2.NewPoint(
			consensusMeasurement,
			map[string]string{"method": string(c.AQI.Method), "status": c.Status},
			map[string]interface{}{
				"us_epa_pm2_5_aqi": c.AQI.Value,
				"temperature_c":    c.Temperature.Value,
				"humidity":         c.Humidity.Value,
				"pressure":         c.Pressure.Value,
				"sensors":          c.Sensors,
				"excluded":         len(c.AQI.Excluded),
			},
			snap.Time,
		))
	}

	return points
}

func addField(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}
