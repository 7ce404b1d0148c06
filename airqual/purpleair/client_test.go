package purpleair

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alepar/airqual/airqual"
)

func TestFetch(t *testing.T) {
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data_time_stamp": 1700000000, "sensor": {"pm2.5_atm": 12}}`))
	}))
	defer srv.Close()

	f := NewClient(Options{URLTemplate: srv.URL + "/v1/sensors/{sensor_id}", APIKey: "secret", Timeout: time.Second})
	sensor := airqual.NewSensor("porch", 4321, time.Minute)

	raw, err := f.Fetch(context.Background(), sensor)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "/v1/sensors/4321", gotPath)
	require.NoError(t, sensor.Update(raw))
}

func TestFetchStatusError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewClient(Options{URLTemplate: srv.URL + "/{sensor_id}", Timeout: time.Second, Retries: 2})
	_, err := f.Fetch(context.Background(), airqual.NewSensor("porch", 1, time.Minute))
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := NewClient(Options{URLTemplate: srv.URL + "/{sensor_id}", Timeout: time.Second, Retries: 1})
	_, err := f.Fetch(context.Background(), airqual.NewSensor("porch", 1, time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestURL(t *testing.T) {
	f := NewClient(Options{})
	assert.Equal(t, "https://api.purpleair.com/v1/sensors/77", f.URL(airqual.NewSensor("x", 77, 0)))
}
