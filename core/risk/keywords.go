package risk

import (
	"strings"

	"github.com/pulseed/pulseed/core"
)

// Fixed phrase lists, checked in order of severity. Matching is plain
// substring containment on the lowercased message: no tokenization, no
// negation handling. "I don't want to kill myself" still matches
// "kill myself", and the bare "kill" flags video-game talk.
var (
	highRiskPhrases = []string{
		"kill myself",
		"kill",
		"suicide",
		"end it all",
		"end my life",
		"want to die",
		"hurt myself",
		"self harm",
		"self-harm",
		"no reason to live",
		"better off without me",
	}

	mediumRiskPhrases = []string{
		"anxious",
		"anxiety",
		"depressed",
		"hopeless",
		"worthless",
		"can't cope",
		"cant cope",
		"overwhelmed",
		"so sad",
		"stressed",
		"crying",
		"alone",
		"scared",
	}
)

// MatchKeywords scans msg for the configured risk phrases. The high-risk
// list wins on any match; ok is false when neither list matches and the
// caller should fall through to the model classifier.
func MatchKeywords(msg string) (tier Tier, ok bool) {
	msg = core.CleanString(msg, true /* lower */)
	if msg == "" {
		return "", false
	}
	for _, phrase := range highRiskPhrases {
		if strings.Contains(msg, phrase) {
			return TierHigh, true
		}
	}
	for _, phrase := range mediumRiskPhrases {
		if strings.Contains(msg, phrase) {
			return TierMedium, true
		}
	}
	return "", false
}
