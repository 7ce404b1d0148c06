package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/alepar/airqual/airqual"
	"github.com/alepar/airqual/airqual/light"
	"github.com/alepar/airqual/airqual/poll"
	"github.com/alepar/airqual/airqual/purpleair"
)

const levelPrefix = "level_"

type SensorConfig struct {
	Name string
	ID   int
}

type Config struct {
	APIURLTemplate  string
	APIKey          string
	ActiveTime      poll.ActiveWindow
	UpdateFrequency time.Duration
	SensorTTL       time.Duration
	StrictFetch     bool
	FetchTimeout    time.Duration
	FetchRetries    int

	Sensors []SensorConfig

	NumberOfLEDs    int
	LightIntensity  float64
	BoardConnection string
	UseHalf         bool
	Levels          light.Levels

	ListenAddress string

	Influx InfluxConfig
	MQTT   MQTTConfig
}

type InfluxConfig struct {
	URL, Token, Org, Bucket string
}

func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

type MQTTConfig struct {
	Broker, Topic, ClientID string
}

func (c MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// LoadEnv reads KEY=value pairs into the environment. A missing file is not
// an error, variables already set win.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "failed to load env file %s", path)
}

// Load parses and validates the config files, later files override earlier ones.
// Values may reference environment variables as ${NAME}.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, errors.New("no config file given")
	}
	sources := make([]interface{}, 0, len(paths)-1)
	for _, p := range paths[1:] {
		sources = append(sources, p)
	}

	f, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, paths[0], sources...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	f.ValueMapper = os.ExpandEnv

	return parse(f)
}

func parse(f *ini.File) (*Config, error) {
	generic := f.Section("generic")
	c := &Config{
		APIURLTemplate:  generic.Key("api_url_tmpl").MustString(purpleair.DefaultURLTemplate),
		APIKey:          generic.Key("api_key").String(),
		UpdateFrequency: time.Duration(generic.Key("update_frequency").MustInt(60)) * time.Second,
		SensorTTL:       time.Duration(generic.Key("sensor_ttl_min").MustInt(10)) * time.Minute,
		StrictFetch:     generic.Key("strict_fetch").MustBool(true),
		FetchTimeout:    time.Duration(generic.Key("fetch_timeout").MustInt(10)) * time.Second,
		FetchRetries:    generic.Key("fetch_retries").MustInt(2),
		ActiveTime:      poll.AlwaysActive,
	}

	if generic.HasKey("active_time") {
		w, err := poll.ParseActiveWindow(generic.Key("active_time").String())
		if err != nil {
			return nil, err
		}
		c.ActiveTime = w
	}
	if !strings.Contains(c.APIURLTemplate, "{sensor_id}") {
		return nil, errors.Errorf("api_url_tmpl %q has no {sensor_id} placeholder", c.APIURLTemplate)
	}
	if c.UpdateFrequency <= 0 {
		return nil, errors.New("update_frequency must be positive")
	}
	if c.SensorTTL <= 0 {
		return nil, errors.New("sensor_ttl_min must be positive")
	}

	for _, key := range f.Section("sensors").Keys() {
		id, err := strconv.Atoi(strings.TrimSpace(key.String()))
		if err != nil {
			return nil, errors.Wrapf(err, "sensor %s: id must be an integer", key.Name())
		}
		c.Sensors = append(c.Sensors, SensorConfig{Name: key.Name(), ID: id})
	}
	if len(c.Sensors) == 0 {
		return nil, errors.New("no sensors configured")
	}

	if err := parseNeopixel(f.Section("neopixel"), c); err != nil {
		return nil, err
	}

	c.ListenAddress = f.Section("status").Key("listen_address").String()

	influx := f.Section("influxdb")
	c.Influx = InfluxConfig{
		URL:    influx.Key("url").String(),
		Token:  influx.Key("token").String(),
		Org:    influx.Key("org").String(),
		Bucket: influx.Key("bucket").MustString("airqual"),
	}

	mqtt := f.Section("mqtt")
	c.MQTT = MQTTConfig{
		Broker:   mqtt.Key("broker").String(),
		Topic:    mqtt.Key("topic").MustString("airqual/status"),
		ClientID: mqtt.Key("client_id").MustString("airqual"),
	}

	return c, nil
}

func parseNeopixel(sec *ini.Section, c *Config) error {
	c.NumberOfLEDs = sec.Key("number_of_leds").MustInt(0)
	if c.NumberOfLEDs <= 0 {
		return errors.New("neopixel number_of_leds must be positive")
	}
	c.LightIntensity = sec.Key("light_intensity").MustFloat64(1)
	if c.LightIntensity < 0 || c.LightIntensity > 1 {
		return errors.Errorf("neopixel light_intensity %v out of range [0, 1]", c.LightIntensity)
	}
	c.BoardConnection = sec.Key("board_connection").MustString("D18")
	c.UseHalf = sec.Key("use_half").MustBool(false)

	var levels []light.Level
	for _, key := range sec.Keys() {
		if !strings.HasPrefix(key.Name(), levelPrefix) {
			continue
		}
		l, err := light.ParseLevel(strings.TrimPrefix(key.Name(), levelPrefix), key.String())
		if err != nil {
			return err
		}
		levels = append(levels, l)
	}
	if len(levels) == 0 {
		return errors.New("no light levels configured")
	}

	var err error
	c.Levels, err = light.NewLevels(levels...)
	if err != nil {
		return err
	}

	top := c.Levels[len(c.Levels)-1]
	if top.Threshold <= 500 {
		log.Warnf("highest light level %s ends at AQI %v, the light will not update above it", top.Name, top.Threshold)
	}
	return nil
}

func (c *Config) NewSensors() []*airqual.Sensor {
	sensors := make([]*airqual.Sensor, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		sensors = append(sensors, airqual.NewSensor(s.Name, s.ID, c.SensorTTL))
	}
	return sensors
}
