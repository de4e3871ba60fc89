package common

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// LoggerMiddleware gives every request a logger carrying its correlation
// ids. It must run after OperationIDMiddleware and ExternalIDMiddleware.
func LoggerMiddleware(logger *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetLogger(NewEchoLogrusLogger(logger, c.Request().Context()))
			return next(c)
		}
	}
}

// RequestLogger returns the logrus entry of the request logger installed by
// LoggerMiddleware, falling back to the standard logger.
func RequestLogger(c echo.Context) *logrus.Entry {
	if l, ok := c.Logger().(*EchoLogrusLogger); ok {
		return l.Entry()
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
