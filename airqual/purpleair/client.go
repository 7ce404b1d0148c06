package purpleair

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airqual/airqual"
)

const (
	DefaultURLTemplate = "https://api.purpleair.com/v1/sensors/{sensor_id}"
	apiKeyHeader       = "X-API-Key"
)

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client reads sensor payloads from the PurpleAir API. One client,
// and thus one connection pool, is shared by all concurrent fetches.
type Client struct {
	URLTemplate string

	client *resty.Client
}

type Options struct {
	URLTemplate string
	APIKey      string
	Timeout     time.Duration
	Retries     int
}

func NewClient(opts Options) *Client {
	tmpl := opts.URLTemplate
	if tmpl == "" {
		tmpl = DefaultURLTemplate
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		client.SetHeader(apiKeyHeader, opts.APIKey)
	}

	return &Client{URLTemplate: tmpl, client: client}
}

func (c *Client) URL(sensor *airqual.Sensor) string {
	return strings.ReplaceAll(c.URLTemplate, "{sensor_id}", strconv.Itoa(sensor.ID))
}

func (c *Client) Fetch(ctx context.Context, sensor *airqual.Sensor) ([]byte, error) {
	url := c.URL(sensor)
	log.Debugf("fetching sensor %s from %s", sensor.Name, url)

	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch sensor %s", sensor.Name)
	}
	if !resp.IsSuccess() {
		return nil, errors.Wrapf(&StatusError{URL: url, StatusCode: resp.StatusCode(), Body: resp.String()},
			"failed to fetch sensor %s", sensor.Name)
	}

	return resp.Body(), nil
}
