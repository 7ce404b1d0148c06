package airqual

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultTTL = 10 * time.Minute

var ErrNoPayload = errors.New("payload has no sensor section")

// Payload is the provider's snapshot of one sensor, replaced wholesale on every update.
type Payload struct {
	// unix seconds
	DataTimeStamp float64 `json:"data_time_stamp"`

	Sensor *PayloadValues `json:"sensor"`
}

type PayloadValues struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`

	// units: degrees Fahrenheit
	Temperature *float64 `json:"temperature"`

	// units: % of relative Humidity
	Humidity *float64 `json:"humidity"`

	// units: hPa
	Pressure *float64 `json:"pressure"`

	// units: µg/m³
	PM25Atm *float64 `json:"pm2.5_atm"`
}

func (p *Payload) Time() time.Time {
	if p == nil {
		return time.Unix(0, 0)
	}
	sec := int64(p.DataTimeStamp)
	nsec := int64((p.DataTimeStamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Resolve returns p when it is still fresh at now, nil otherwise.
func Resolve(p *Payload, now time.Time, ttl time.Duration) *Payload {
	if p == nil {
		return nil
	}
	if now.Sub(p.Time()) > ttl {
		return nil
	}
	return p
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  int     `json:"altitude"`
}

// Sensor holds the latest payload of one configured sensor.
// Every accessor treats a payload older than TTL as absent.
type Sensor struct {
	Name string
	ID   int
	TTL  time.Duration

	// Now is the clock used for expiry; time.Now when nil.
	Now func() time.Time

	mu      sync.RWMutex
	payload *Payload
	expired bool
}

func NewSensor(name string, id int, ttl time.Duration) *Sensor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sensor{Name: name, ID: id, TTL: ttl}
}

// Update replaces the payload with the parsed raw response.
// On a parse error the previous payload stays in place.
func (s *Sensor) Update(raw []byte) error {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.Wrapf(err, "failed to parse payload of sensor %s", s.Name)
	}
	if p.Sensor == nil {
		return errors.Wrapf(ErrNoPayload, "sensor %s", s.Name)
	}

	s.mu.Lock()
	s.payload = &p
	s.expired = false
	s.mu.Unlock()
	return nil
}

func (s *Sensor) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sensor) current() *PayloadValues {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Resolve(s.payload, s.now(), s.TTL)
	if p == nil {
		if s.payload != nil && !s.expired {
			log.Warnf("sensor %s data TTL expired", s.Name)
			s.expired = true
		}
		return nil
	}
	return p.Sensor
}

func value(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// DataTime is the capture time of the last payload, or the unix epoch without one.
func (s *Sensor) DataTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payload.Time()
}

func (s *Sensor) Location() (Location, bool) {
	v := s.current()
	if v == nil {
		return Location{}, false
	}
	return Location{Latitude: v.Latitude, Longitude: v.Longitude, Altitude: int(v.Altitude)}, true
}

// Temperature in degrees Celsius.
func (s *Sensor) Temperature() (float64, bool) {
	f, ok := s.TemperatureF()
	if !ok {
		return 0, false
	}
	return (f - 32) * 5 / 9, true
}

// TemperatureF in degrees Fahrenheit, as reported by the provider.
func (s *Sensor) TemperatureF() (float64, bool) {
	v := s.current()
	if v == nil {
		return 0, false
	}
	return value(v.Temperature)
}

func (s *Sensor) Humidity() (float64, bool) {
	v := s.current()
	if v == nil {
		return 0, false
	}
	return value(v.Humidity)
}

func (s *Sensor) Pressure() (float64, bool) {
	v := s.current()
	if v == nil {
		return 0, false
	}
	return value(v.Pressure)
}

func (s *Sensor) PM25() (float64, bool) {
	v := s.current()
	if v == nil {
		return 0, false
	}
	return value(v.PM25Atm)
}

// AQI is the US EPA PM2.5 index of the current concentration.
func (s *Sensor) AQI() (float64, bool) {
	pm, ok := s.PM25()
	if !ok {
		return 0, false
	}
	return ConcentrationToAQI(pm), true
}

func (s *Sensor) String() string {
	aqi, _ := s.AQI()
	return fmt.Sprintf("<Sensor name: %s, id: %d, data time stamp: %s, pm2.5 AQI: %.1f>",
		s.Name, s.ID, s.DataTime().Format("2006-01-02 15:04:05"), aqi)
}
