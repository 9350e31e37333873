package network

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nepse-data-server/src/helpers"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// AsyncNetworkManager performs HTTP GETs with timeout and retry/backoff.
// Only the live NEPSE provider uses it today.
// -----------------------------------------------------------------------------

type AsyncNetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	return &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries.
func (nm *AsyncNetworkManager) Get(urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	var body []byte
	err = helpers.RetryWithBackoff(nm.Logger, "GET "+finalUrl, nm.Config.Network.MaxRetries+1, time.Second, func() error {
		resp, err := nm.Client.Get(finalUrl)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})

	if err != nil {
		return nil, &helpers.NetworkError{DataServerError: helpers.DataServerError{
			Message: fmt.Sprintf("GET %s failed", finalUrl),
			Cause:   err,
		}}
	}

	return body, nil
}
