package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// teacherMiddleware restricts a route to teacher tokens.
func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTeacher {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// studentMiddleware restricts a route to student tokens.
func studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsStudent && claims.TeacherID != "" {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}
