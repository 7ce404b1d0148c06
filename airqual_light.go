package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/version"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airqual/airqual"
	"github.com/alepar/airqual/airqual/config"
	"github.com/alepar/airqual/airqual/export"
	"github.com/alepar/airqual/airqual/light"
	"github.com/alepar/airqual/airqual/poll"
	"github.com/alepar/airqual/airqual/purpleair"
	"github.com/alepar/airqual/airqual/status"
)

// CLI args
var (
	configFiles = flag.String("config", "config/airqual.conf", "comma separated config files, later ones override earlier ones")
	envFile     = flag.String("env-file", ".env", "file with environment variables referenced by the config")
	logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
)

// metrics to expose to Prometheus
var (
	gaugePM25        = newGauge("air_pm2_5_atm", "PM2.5 concentration (units: ug/m3)")
	gaugeAQI         = newGauge("air_pm2_5_aqi", "US EPA PM2.5 AQI")
	gaugeTemperature = newGauge("air_temperature", "Air Temperature (units: degrees Celsius)")
	gaugeHumidity    = newGauge("air_humidity", "Humidity (units: % of relative Humidity)")
	gaugeAtmPressure = newGauge("air_atm_pressure", "Atmospheric Pressure (units: hPa)")

	gaugeConsensus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "air_consensus",
			Help: "Consensus value over all sensors with current data",
		},
		[]string{"metric"},
	)
	gaugeConsensusSensors = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "air_consensus_sensors",
		Help: "Number of sensors that contributed to the AQI consensus",
	})
	counterCycleFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "air_cycle_failures_total",
		Help: "Poll cycles that failed",
	})
)

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"sensor"},
	)
}

func init() {
	prometheus.MustRegister(gaugePM25)
	prometheus.MustRegister(gaugeAQI)
	prometheus.MustRegister(gaugeTemperature)
	prometheus.MustRegister(gaugeHumidity)
	prometheus.MustRegister(gaugeAtmPressure)
	prometheus.MustRegister(gaugeConsensus)
	prometheus.MustRegister(gaugeConsensusSensors)
	prometheus.MustRegister(counterCycleFailures)

	// Add Go module build info.
	prometheus.MustRegister(collectors.NewBuildInfoCollector())

	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

func main() {
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("invalid log level: %s", err)
	}
	log.SetLevel(level)

	log.Infof("running airqual %s", version.Info())
	log.Debugf("build context %s", version.BuildContext())

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := config.LoadEnv(*envFile); err != nil {
		return err
	}
	cfg, err := config.Load(strings.Split(*configFiles, ",")...)
	if err != nil {
		return err
	}
	log.Infof("loaded config file(s): %s", *configFiles)

	sensors := cfg.NewSensors()
	log.Debugf("sensors: %v", sensors)

	// No hardware driver is linked in; the strip is simulated.
	strip := light.NewSimulatedStrip(cfg.BoardConnection, cfg.NumberOfLEDs, cfg.LightIntensity)
	log.Infof("created simulated LED strip: %d pixels", cfg.NumberOfLEDs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := &status.Store{}
	runner := &poll.Runner{
		Sensors: sensors,
		Fetcher: purpleair.NewClient(purpleair.Options{
			URLTemplate: cfg.APIURLTemplate,
			APIKey:      cfg.APIKey,
			Timeout:     cfg.FetchTimeout,
			Retries:     cfg.FetchRetries,
		}),
		Light:     light.NewPolicy(strip, cfg.Levels, cfg.UseHalf),
		Window:    cfg.ActiveTime,
		Interval:  cfg.UpdateFrequency,
		Strict:    cfg.StrictFetch,
		Status:    store,
		OnCycle:   observe,
		OnFailure: func(error) { counterCycleFailures.Inc() },
	}

	if cfg.Influx.Enabled() {
		influx := export.NewInflux(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		defer influx.Close()
		if err := influx.Ping(ctx); err != nil {
			return err
		}
		log.Infof("exporting to influxdb %s, bucket %s", cfg.Influx.URL, cfg.Influx.Bucket)
		runner.Exporters = append(runner.Exporters, influx)
	}

	if cfg.MQTT.Enabled() {
		client, err := export.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		log.Infof("publishing to mqtt %s, topic %s", cfg.MQTT.Broker, cfg.MQTT.Topic)
		runner.Exporters = append(runner.Exporters, export.NewPublisher(client, cfg.MQTT.Topic))
	}

	if cfg.ListenAddress != "" {
		router := status.NewRouter(store, prometheus.DefaultGatherer)
		logged := handlers.LoggingHandler(log.StandardLogger().WriterLevel(log.DebugLevel), router)
		go func() {
			log.Infof("status endpoint listening on %s", cfg.ListenAddress)
			log.Panic(http.ListenAndServe(cfg.ListenAddress, logged))
		}()
	}

	return runner.Run(ctx)
}

func observe(snap airqual.Snapshot) {
	for _, s := range snap.Sensors {
		m := s.Measurements
		setGauge(gaugePM25, s.Name, m.PM25Atm)
		setGauge(gaugeAQI, s.Name, m.AQI)
		setGauge(gaugeTemperature, s.Name, m.TemperatureC)
		setGauge(gaugeHumidity, s.Name, m.Humidity)
		setGauge(gaugeAtmPressure, s.Name, m.Pressure)
	}

	c := snap.Consensus
	gaugeConsensus.WithLabelValues("aqi").Set(c.AQI.Value)
	gaugeConsensus.WithLabelValues("temperature").Set(c.Temperature.Value)
	gaugeConsensus.WithLabelValues("humidity").Set(c.Humidity.Value)
	gaugeConsensus.WithLabelValues("pressure").Set(c.Pressure.Value)
	gaugeConsensusSensors.Set(float64(c.Sensors))
}

// setGauge drops the series of a sensor without current data, so stale
// values are not reported.
func setGauge(g *prometheus.GaugeVec, sensor string, v *float64) {
	if v == nil {
		g.DeleteLabelValues(sensor)
		return
	}
	g.WithLabelValues(sensor).Set(*v)
}
