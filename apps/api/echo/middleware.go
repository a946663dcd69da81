package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/nutridash/core/dashboard"
)

const sessionCtxKey = "dashboardSession"

var errSessionNotInCtx = errors.New("dashboard session not found in echo.Context")

// sessionMiddleware loads the session named by the `:id` path param into the context.
func sessionMiddleware(svc *dashboard.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := svc.Get(ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set(sessionCtxKey, sess)
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (*dashboard.Session, error) {
	sess, ok := ctx.Get(sessionCtxKey).(*dashboard.Session)
	if !ok {
		return nil, errSessionNotInCtx
	}
	return sess, nil
}
