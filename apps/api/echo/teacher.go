package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/teacher"
)

type teacherApi struct {
	conf *core.Config
	svc  *teacher.Service
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := teacherApi{conf: deps.Conf, svc: deps.TeacherSvc}

	tg := g.Group("/teachers")

	// un-authed endpoints
	tg.POST("/signup", api.signup)
	tg.POST("/login", api.login)

	// authed endpoints
	ag := tg.Group("", jwt, teacherMiddleware())
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
}

func (api *teacherApi) signup(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	t, err := api.svc.Signup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up teacher")
	}

	token, err := GenerateToken(api.conf, GetTeacherClaims(api.conf, t))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, SignupResponse{Teacher: t, Token: token})
}

func (api *teacherApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Email, data.Password, api.svc, api.conf)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *teacherApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *teacherApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	t, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == teacher.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "finding teacher by ID")
	}
	return ctx.JSON(http.StatusOK, t)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SignupResponse struct {
		Teacher teacher.Teacher `json:"teacher"`
		Token   string          `json:"token"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}
