package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const healthTimeout = 5 * time.Second

// HealthStatus is the outcome of a service probe.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Unhealthy HealthStatus = "unhealthy"
	Timeout   HealthStatus = "timeout"
	Offline   HealthStatus = "offline"
)

// Service is a backend service with a health endpoint.
type Service struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Required bool   `mapstructure:"required"`
}

type Health struct {
	Service Service
	Status  HealthStatus
	Message string
}

// Check probes the service with a GET bounded by a five second timeout.
func Check(ctx context.Context, client *http.Client, service Service) Health {
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	result := Health{Service: service}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service.URL, nil)
	if err != nil {
		result.Status = Offline
		result.Message = err.Error()
		return result
	}

	resp, err := client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			result.Status = Timeout
			result.Message = fmt.Sprintf("%s connection timeout", service.Name)
			return result
		}

		result.Status = Offline
		result.Message = fmt.Sprintf("%s is not running (%v)", service.Name, err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		result.Status = Healthy
		result.Message = fmt.Sprintf("%s is running", service.Name)
		return result
	}

	result.Status = Unhealthy
	result.Message = fmt.Sprintf("%s returned %d", service.Name, resp.StatusCode)
	return result
}

// CheckAll probes every service in order.
func CheckAll(ctx context.Context, client *http.Client, services []Service) []Health {
	results := make([]Health, 0, len(services))
	for _, service := range services {
		results = append(results, Check(ctx, client, service))
	}
	return results
}
