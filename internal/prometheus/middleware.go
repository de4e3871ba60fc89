package prometheus

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		TotalRequests.Inc()
		path := pathLabel(ctx.Path())
		if ctx.Request().Method == http.MethodPost {
			switch {
			case strings.HasSuffix(path, "/preseed/preview"):
				PreviewRequests.Inc()
			case strings.HasSuffix(path, "/preseed"):
				StoreRequests.Inc()
			}
		}

		timer := prometheus.NewTimer(httpDuration.WithLabelValues(path))
		defer timer.ObserveDuration()

		err := next(ctx)
		httpResponses.WithLabelValues(path, strconv.Itoa(statusCode(ctx, err))).Inc()
		return err
	}
}

// statusCode guesses the status of the response. Errors are turned into
// responses by the HTTP error handler only after the middleware returns.
func statusCode(ctx echo.Context, err error) int {
	if err == nil {
		return ctx.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
