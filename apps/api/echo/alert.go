package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/risk"
)

type alertApi struct {
	conf     *core.Config
	riskSvc  *risk.Service
	alertSvc *alert.Service
}

func registerAlertAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := alertApi{conf: deps.Conf, riskSvc: deps.RiskSvc, alertSvc: deps.AlertSvc}

	g.POST("/messages/classify", api.classify, jwt, studentMiddleware())

	ag := g.Group("/alerts", jwt)
	ag.POST("", api.create, studentMiddleware())
	ag.GET("", api.query, teacherMiddleware())
}

// classify runs the risk pipeline on a free-text message and routes the
// student to the support flow when it escalates.
func (api *alertApi) classify(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ClassifyRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassifyRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	tier := api.riskSvc.Classify(reqCtx, data.Message)

	esc := api.alertSvc.Escalate(reqCtx, alert.Input{
		Tier:        tier,
		Message:     data.Message,
		StudentID:   claims.Subject,
		StudentName: alert.AnonymousName,
		TeacherID:   claims.TeacherID,
	})
	if esc.RedirectURL != "" {
		return ctx.Redirect(http.StatusSeeOther, esc.RedirectURL)
	}
	return ctx.JSON(http.StatusOK, ClassifyResponse{Risk: esc.Tier})
}

// create is the explicit teacher-alert path: classify, then insert an alert
// row only when the message (or delivered mood) warrants one.
func (api *alertApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data NewAlertRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAlertRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	name := core.CleanString(data.StudentName)
	if name == "" {
		name = alert.AnonymousName
	}

	reqCtx := ctx.Request().Context()
	tier := api.riskSvc.Classify(reqCtx, data.Message)

	esc := api.alertSvc.Escalate(reqCtx, alert.Input{
		Tier:        tier,
		Mood:        feedback.Mood(data.Mood),
		Message:     data.Message,
		StudentID:   claims.Subject,
		StudentName: name,
		TeacherID:   claims.TeacherID,
	})
	return ctx.JSON(http.StatusOK, NewAlertResponse{Success: esc.Alerted, Risk: esc.Tier})
}

func (api *alertApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	alerts, err := api.alertSvc.Query(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying alerts")
	}
	if alerts == nil {
		alerts = []alert.Entry{}
	}
	return ctx.JSON(http.StatusOK, alerts)
}

type (
	ClassifyRequest struct {
		Message string `json:"message" validate:"required,max=2000"`
	}

	ClassifyResponse struct {
		Risk risk.Tier `json:"risk"`
	}

	NewAlertRequest struct {
		Message     string `json:"message" validate:"required,max=2000"`
		Mood        string `json:"mood" validate:"omitempty,oneof=terrible bad okay good great"`
		StudentName string `json:"student_name" validate:"omitempty,max=255"`
	}

	NewAlertResponse struct {
		Success bool      `json:"success"`
		Risk    risk.Tier `json:"risk"`
	}
)

func (cr *ClassifyRequest) Validate() error {
	cr.Message = core.CleanString(cr.Message)
	return core.Validate.Struct(cr)
}

func (nr *NewAlertRequest) Validate() error {
	nr.Message = core.CleanString(nr.Message)
	return core.Validate.Struct(nr)
}
