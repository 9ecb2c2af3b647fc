package risk

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pulseed/pulseed/core"
)

const classifyPromptFmt = `Classify the student's message into one of the following categories:
- "high_risk": clear or strong signs of suicidal thoughts, self-harm, or extreme distress.
- "medium_risk": moderate distress, sadness, anxiety, or struggling emotionally.
- "low_risk": neutral or positive message.

Respond with ONLY one of these exact values:
high_risk
medium_risk
low_risk

Message:
"%s"
`

// classifyMaxTokens only admits the label; anything longer is junk anyway.
const classifyMaxTokens = 10

var spaceRunRegex = regexp.MustCompile(`\s+`)

type classifier struct {
	completer core.Completer
	model     string
	logger    core.Logger
}

// classify asks the model for exactly one of the three labels.
// Every failure mode resolves to TierLow: transport errors, empty replies
// and off-label text never surface to the caller.
func (c classifier) classify(ctx context.Context, msg string) Tier {
	reply, err := c.completer.Complete(ctx, core.CompletionRequest{
		Model: c.model,
		Messages: []core.ChatMessage{
			{Role: core.RoleSystem, Content: fmt.Sprintf(classifyPromptFmt, msg)},
		},
		Temperature: 0,
		MaxTokens:   classifyMaxTokens,
	})
	if err != nil {
		c.logger.Warn(fmt.Sprintf("risk: classification call failed, defaulting to %s", TierLow), err)
		return TierLow
	}

	tier := parseLabel(reply)
	if !tier.Valid() {
		c.logger.Warn(fmt.Sprintf("risk: unexpected classification reply %q, defaulting to %s", reply, TierLow))
		return TierLow
	}
	return tier
}

// parseLabel normalizes a model reply into a Tier: trimmed, lowercased,
// inner whitespace collapsed to underscores. Only exact label matches are
// accepted; everything else returns an invalid Tier.
func parseLabel(reply string) Tier {
	label := core.CleanString(reply, true /* lower */)
	label = spaceRunRegex.ReplaceAllString(label, "_")
	label = strings.Trim(label, `"`)

	switch tier := Tier(label); tier {
	case TierLow, TierMedium, TierHigh:
		return tier
	}
	return ""
}
