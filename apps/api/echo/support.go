package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/support"
)

type supportApi struct {
	logger   core.Logger
	svc      *support.Service
	alertSvc *alert.Service
}

func registerSupportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := supportApi{logger: deps.Logger, svc: deps.SupportSvc, alertSvc: deps.AlertSvc}

	sg := g.Group("/support", jwt, studentMiddleware())
	sg.POST("/chat", api.chat)
	sg.POST("/end", api.end)
}

// chat appends the student's message to the session transcript and returns
// the assistant's next turn. The client owns the transcript; nothing is
// stored server side.
func (api *supportApi) chat(ctx echo.Context) error {
	var data ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	turns := data.Turns
	if len(turns) == 0 {
		turns = support.NewConversation()
	}
	turns = append(turns, support.Turn{Sender: support.SenderStudent, Text: data.Message})

	reply, askName := api.svc.Reply(ctx.Request().Context(), turns)
	return ctx.JSON(http.StatusOK, ChatResponse{Reply: reply, AskName: askName})
}

// end closes a support session. A shared name is attached to the student's
// latest alert so the teacher knows who reached out.
func (api *supportApi) end(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data EndChatRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EndChatRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if name := core.CleanString(data.StudentName); name != "" {
		if err = api.alertSvc.AttachStudentName(ctx.Request().Context(), claims.TeacherID, claims.Subject, name); err != nil {
			api.logger.Error("support: failed to attach student name", err)
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	ChatRequest struct {
		Turns   []support.Turn `json:"turns" validate:"omitempty,max=50,dive"`
		Message string         `json:"message" validate:"required,max=2000"`
	}

	ChatResponse struct {
		Reply   string `json:"reply"`
		AskName bool   `json:"ask_name"`
	}

	EndChatRequest struct {
		StudentName string `json:"student_name" validate:"omitempty,max=255"`
	}
)

func (cr *ChatRequest) Validate() error {
	cr.Message = core.CleanString(cr.Message)
	return core.Validate.Struct(cr)
}

func (er *EndChatRequest) Validate() error {
	return core.Validate.Struct(er)
}
