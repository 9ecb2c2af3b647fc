package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/teacher"
)

type studentApi struct {
	conf *core.Config
	svc  *teacher.Service
}

func registerStudentAPI(g *echo.Group, _ echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{conf: deps.Conf, svc: deps.TeacherSvc}

	sg := g.Group("/students")
	sg.POST("/join", api.join)
}

// join turns a valid class code into an anonymous student session.
func (api *studentApi) join(ctx echo.Context) error {
	var data teacher.JoinClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	s, err := api.svc.Join(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "joining class")
	}

	token, err := GenerateToken(api.conf, GetStudentClaims(api.conf, s))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, JoinResponse{
		StudentID: s.ID,
		TeacherID: s.TeacherID,
		Token:     token,
	})
}

type JoinResponse struct {
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	Token     string `json:"token"`
}
