package api

import (
	"context"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	serviceName    = "gitlab-mr-batch"
	serviceVersion = "v0.1.0"
)

type HealthChecker interface {
	HealthCheck() echo.HandlerFunc
}

type healthChecker struct {
	health *health.Health
}

func NewHealthChecker(checks ...health.Config) (HealthChecker, error) {
	h, err := health.New(health.WithComponent(health.Component{Name: serviceName, Version: serviceVersion}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create health checker")
	}

	for _, check := range checks {
		if err = h.Register(check); err != nil {
			return nil, errors.Wrapf(err, "failed to register health check %s", check.Name)
		}
	}

	return &healthChecker{
		health: h,
	}, nil
}

func (h *healthChecker) HealthCheck() echo.HandlerFunc {
	return echo.WrapHandler(h.health.Handler())
}

// PingCheck adapts any ping function to a health check.
func PingCheck(name string, ping func(ctx context.Context) error, skipOnErr bool) health.Config {
	return health.Config{
		Name:      name,
		Timeout:   3 * time.Second,
		SkipOnErr: skipOnErr,
		Check:     ping,
	}
}
