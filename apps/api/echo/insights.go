package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core/insights"
)

type insightsApi struct {
	svc *insights.Service
}

func registerInsightsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := insightsApi{svc: deps.InsightsSvc}

	ig := g.Group("/insights", jwt, teacherMiddleware())
	ig.GET("/summary", api.summary)
	ig.GET("/trends", api.trends)
}

func (api *insightsApi) summary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	summary, err := api.svc.Summarize(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "summarizing feedback")
	}
	return ctx.JSON(http.StatusOK, SummaryResponse{Summary: summary})
}

func (api *insightsApi) trends(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	prediction, err := api.svc.PredictTrends(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "predicting trends")
	}
	return ctx.JSON(http.StatusOK, TrendsResponse{Prediction: prediction})
}

type (
	SummaryResponse struct {
		Summary string `json:"summary"`
	}

	TrendsResponse struct {
		Prediction insights.Prediction `json:"prediction"`
	}
)
