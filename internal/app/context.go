package app

import (
	"context"
)

type appKey struct{}

// GetAppFromContext returns the App stored by SetAppInContext, or nil when
// the command ran without one.
func GetAppFromContext(ctx context.Context) *App {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(appKey{}).(*App)
	return a
}

// SetAppInContext stores a and attaches its logger, so code holding only the
// context can log through zerolog.Ctx.
func SetAppInContext(ctx context.Context, a *App) context.Context {
	ctx = a.Logger.WithContext(ctx)
	return context.WithValue(ctx, appKey{}, a)
}
