package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/risk"
)

const historyDateLayout = "2006-01-02"

type feedbackApi struct {
	conf        *core.Config
	logger      core.Logger
	feedbackSvc *feedback.Service
	riskSvc     *risk.Service
	alertSvc    *alert.Service
	events      FeedbackSubscriber
}

func registerFeedbackAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := feedbackApi{
		conf:        deps.Conf,
		logger:      deps.Logger,
		feedbackSvc: deps.FeedbackSvc,
		riskSvc:     deps.RiskSvc,
		alertSvc:    deps.AlertSvc,
		events:      deps.FeedbackEvents,
	}

	fg := g.Group("/feedback", jwt)
	fg.POST("", api.submit, studentMiddleware())

	tg := fg.Group("", teacherMiddleware())
	tg.GET("", api.query)
	tg.GET("/history", api.history)
	tg.POST("/reset", api.reset)
	tg.GET("/stream", api.stream)
}

// submit runs a student check-in end to end: classify the message, persist
// the entry, escalate if needed. A failed insert is logged but never blocks
// the safety path.
func (api *feedbackApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data feedback.NewEntry
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	tier := api.riskSvc.Classify(reqCtx, data.Message)

	if _, err = api.feedbackSvc.Create(reqCtx, claims.Subject, claims.TeacherID, data); err != nil {
		api.logger.Error("feedback: failed to store entry", err)
	}

	esc := api.alertSvc.Escalate(reqCtx, alert.Input{
		Tier:        tier,
		Mood:        feedback.Mood(data.Mood),
		Message:     data.Message,
		StudentID:   claims.Subject,
		StudentName: alert.AnonymousName,
		TeacherID:   claims.TeacherID,
	})

	return ctx.JSON(http.StatusOK, SubmitFeedbackResponse{
		Risk:     esc.Tier,
		Redirect: esc.RedirectURL,
	})
}

func (api *feedbackApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	entries, err := api.feedbackSvc.QueryActive(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying active feedback")
	}
	if entries == nil {
		entries = []feedback.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *feedbackApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	day, err := time.Parse(historyDateLayout, ctx.QueryParam("date"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a YYYY-MM-DD date"})
	}

	entries, err := api.feedbackSvc.QueryByDay(ctx.Request().Context(), claims.Subject, day)
	if err != nil {
		return errors.Wrap(err, "querying feedback history")
	}
	if entries == nil {
		entries = []feedback.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *feedbackApi) reset(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if _, err = api.feedbackSvc.Reset(ctx.Request().Context(), claims.Subject); err != nil {
		return errors.Wrap(err, "archiving feedback")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// stream pushes live feedback events to the teacher dashboard over SSE.
func (api *feedbackApi) stream(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	events, cancel := api.events.Subscribe(claims.Subject)
	defer cancel()

	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				api.logger.Error("feedback: failed to marshal event", err)
				continue
			}
			if _, err = fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

type SubmitFeedbackResponse struct {
	Risk     risk.Tier `json:"risk"`
	Redirect string    `json:"redirect,omitempty"`
}
