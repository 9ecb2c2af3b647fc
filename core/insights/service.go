package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/feedback"
)

const (
	// EmptySummary is returned when a teacher has no feedback window yet.
	EmptySummary = "No feedback available yet. Once students submit their moods and messages, an AI summary will appear here."

	summaryPromptFmt = `You are an emotional analysis assistant for teachers.
Analyze the following student mood data and messages:

---
%s
---

Give a short, clear summary of:
- the overall emotional state of the class,
- any noticeable patterns or common moods,
- and possible contributing factors.

Keep it under 5 sentences. Be empathetic but professional.
`

	trendPromptFmt = `You are an emotional data analyst for teachers.
You will receive student mood data and short messages.

---
%s
---

Your task:
1. Analyze the emotional tone and describe it in a clear, human-friendly paragraph (at least 4 sentences).
2. Predict the overall emotional trend (e.g. "stressed", "anxious", "positive", "mixed", etc.).
3. Explain your reasoning shortly.

Return your answer as valid JSON:
{
  "trend": "short label for the emotional trend",
  "reason": "short explanation for why you chose this trend",
  "insight": "a full paragraph with your analysis and emotional insights"
}
Important: Only return valid JSON. Do not include markdown, explanations, or notes.
`

	noDataTrendText = "No actual mood or message data is available. " +
		"Generate a realistic, empathetic emotional prediction based on typical classroom moods."
)

// jsonObjectRegex grabs the outermost brace-delimited substring of a reply;
// models like to wrap their JSON in prose.
var jsonObjectRegex = regexp.MustCompile(`(?s)\{.*\}`)

type (
	// Prediction is the structured trend output shown on the teacher
	// dashboard.
	Prediction struct {
		Trend   string `json:"trend"`
		Reason  string `json:"reason"`
		Insight string `json:"insight"`
	}

	Service struct {
		feedbackSvc *feedback.Service
		completer   core.Completer
		model       string
		logger      core.Logger
	}
)

// FallbackPrediction is substituted whenever structured trend output cannot
// be extracted from the model reply.
func FallbackPrediction() Prediction {
	return Prediction{
		Trend:  "Neutral",
		Reason: "The system could not extract structured AI output. This is a fallback response.",
		Insight: "Based on the limited data, the emotional state of the class appears to be relatively stable. " +
			"No significant signs of stress or negativity were detected. " +
			"This is a placeholder analysis to ensure the teacher still receives an insight summary.",
	}
}

func NewService(feedbackSvc *feedback.Service, completer core.Completer, model string, logger core.Logger) *Service {
	return &Service{feedbackSvc: feedbackSvc, completer: completer, model: model, logger: logger}
}

// Summarize narrates the latest feedback window for a teacher. An empty
// window yields the fixed placeholder, not an error.
func (svc *Service) Summarize(ctx context.Context, teacherID string) (string, error) {
	entries, err := svc.feedbackSvc.QueryActive(ctx, teacherID)
	if err != nil {
		return "", errors.Wrap(err, "querying feedback window")
	}
	if len(entries) == 0 {
		return EmptySummary, nil
	}

	reply, err := svc.completer.Complete(ctx, core.CompletionRequest{
		Model: svc.model,
		Messages: []core.ChatMessage{
			{Role: core.RoleUser, Content: fmt.Sprintf(summaryPromptFmt, moodText(entries))},
		},
		Temperature: 0.5,
	})
	if err != nil {
		return "", errors.Wrap(err, "summarizing feedback")
	}
	if reply = core.CleanString(reply); reply == "" {
		reply = "No summary available."
	}
	return reply, nil
}

// PredictTrends asks for structured trend output over the same window.
// Unparsable model output falls back to FallbackPrediction; only transport
// and storage errors surface.
func (svc *Service) PredictTrends(ctx context.Context, teacherID string) (Prediction, error) {
	entries, err := svc.feedbackSvc.QueryActive(ctx, teacherID)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "querying feedback window")
	}

	text := noDataTrendText
	if len(entries) > 0 {
		text = moodText(entries)
	}

	reply, err := svc.completer.Complete(ctx, core.CompletionRequest{
		Model: svc.model,
		Messages: []core.ChatMessage{
			{Role: core.RoleUser, Content: fmt.Sprintf(trendPromptFmt, text)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return Prediction{}, errors.Wrap(err, "predicting trends")
	}
	return ParsePrediction(reply, svc.logger), nil
}

// ParsePrediction extracts the first brace-delimited JSON object from a
// model reply. Any parse failure or missing trend field substitutes the
// fixed fallback; parse errors never propagate.
func ParsePrediction(reply string, logger core.Logger) Prediction {
	raw := jsonObjectRegex.FindString(reply)
	if raw == "" {
		logger.Warn("insights: no JSON object in trend reply, falling back")
		return FallbackPrediction()
	}

	var p Prediction
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logger.Warn("insights: trend reply parse failed, falling back", err)
		return FallbackPrediction()
	}
	if p.Trend == "" {
		logger.Warn("insights: trend reply missing trend field, falling back")
		return FallbackPrediction()
	}
	return p
}

// moodText flattens entries into the "Mood: x | Message: y" lines the
// prompts expect.
func moodText(entries []feedback.Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		mood := core.CleanString(e.Mood.String())
		if mood == "" {
			mood = "Unknown"
		}
		msg := core.CleanString(e.Message)
		if msg == "" {
			msg = "None"
		}
		lines = append(lines, fmt.Sprintf("Mood: %s | Message: %s", mood, msg))
	}
	return strings.Join(lines, "\n")
}
