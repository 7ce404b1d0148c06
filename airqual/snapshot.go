package airqual

import "time"

// Snapshot is the state of one completed poll cycle, handed to reporting code.
// It is never mutated after it is built.
type Snapshot struct {
	Time      time.Time      `json:"time"`
	Consensus Summary        `json:"consensus"`
	Light     LightReport    `json:"light"`
	Sensors   []SensorReport `json:"sensors"`
}

// Summary is the consensus over every metric.
type Summary struct {
	AQI         ConsensusResult `json:"us_epa_pm2_5_aqi"`
	Status      string          `json:"status"`
	Temperature ConsensusResult `json:"temperature_c"`
	Humidity    ConsensusResult `json:"humidity"`
	Pressure    ConsensusResult `json:"pressure"`
	// sensors that contributed a non-expired AQI
	Sensors int `json:"sensors"`
}

type LightReport struct {
	State string `json:"state"`
	Level string `json:"level,omitempty"`
}

type SensorReport struct {
	Name          string       `json:"name"`
	ID            int          `json:"id"`
	DataTimestamp time.Time    `json:"data_timestamp"`
	Location      *Location    `json:"location"`
	Measurements  Measurements `json:"measurements"`
	APIURL        string       `json:"api_url,omitempty"`
}

type Measurements struct {
	PM25Atm      *float64 `json:"pm2_5_atm"`
	AQI          *float64 `json:"us_epa_pm2_5_aqi"`
	TemperatureC *float64 `json:"temperature_c"`
	TemperatureF *float64 `json:"temperature_f"`
	Humidity     *float64 `json:"humidity"`
	Pressure     *float64 `json:"pressure"`
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Report captures the sensor's current, TTL-checked values.
func (s *Sensor) Report() SensorReport {
	r := SensorReport{
		Name:          s.Name,
		ID:            s.ID,
		DataTimestamp: s.DataTime(),
		Measurements: Measurements{
			PM25Atm:      optional(s.PM25()),
			AQI:          optional(s.AQI()),
			TemperatureC: optional(s.Temperature()),
			TemperatureF: optional(s.TemperatureF()),
			Humidity:     optional(s.Humidity()),
			Pressure:     optional(s.Pressure()),
		},
	}
	if loc, ok := s.Location(); ok {
		r.Location = &loc
	}
	return r
}

// Metric reads one value from a sensor.
type Metric func(*Sensor) (float64, bool)

var (
	MetricAQI         Metric = (*Sensor).AQI
	MetricTemperature Metric = (*Sensor).Temperature
	MetricHumidity    Metric = (*Sensor).Humidity
	MetricPressure    Metric = (*Sensor).Pressure
)

// Collect returns the metric of every sensor that currently has it, in sensor order.
func Collect(sensors []*Sensor, metric Metric) []float64 {
	values := make([]float64, 0, len(sensors))
	for _, s := range sensors {
		if v, ok := metric(s); ok {
			values = append(values, v)
		}
	}
	return values
}

// NewSummary aggregates every metric over the sensors.
func NewSummary(sensors []*Sensor) Summary {
	aqiValues := Collect(sensors, MetricAQI)
	c := Summary{
		AQI:         Aggregate(aqiValues),
		Temperature: Aggregate(Collect(sensors, MetricTemperature)),
		Humidity:    Aggregate(Collect(sensors, MetricHumidity)),
		Pressure:    Aggregate(Collect(sensors, MetricPressure)),
		Sensors:     len(aqiValues),
	}
	if len(aqiValues) == 0 {
		c.Status = Status(nil)
	} else {
		c.Status = Status(&c.AQI.Value)
	}
	return c
}
