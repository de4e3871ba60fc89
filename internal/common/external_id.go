package common

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
)

const ExternalIDKey string = "externalID"
const externalIDKeyCtx ctxKey = ctxKey(ExternalIDKey)

// ExternalIDHeader lets callers correlate their own request ids with ours.
const ExternalIDHeader = "X-External-Id"

// Extracts HTTP header X-External-Id and sets it as a request context value
func ExternalIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		eid := strings.TrimSpace(c.Request().Header.Get(ExternalIDHeader))
		if eid == "" {
			return next(c)
		}

		c.Set(ExternalIDKey, eid)

		ctx := c.Request().Context()
		ctx = context.WithValue(ctx, externalIDKeyCtx, eid)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

// ExternalID returns the id stored in ctx by ExternalIDMiddleware, or an
// empty string.
func ExternalID(ctx context.Context) string {
	eid, _ := ctx.Value(externalIDKeyCtx).(string)
	return eid
}
