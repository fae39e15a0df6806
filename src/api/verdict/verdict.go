// Package verdict extracts the structured verdict block an agent appends to
// its final reply.
//
// The block looks like:
//
//	[VERDICT]
//	SCORE: 8.5
//	VALUATION: $2M
//	FEEDBACK: Strong team, thin traction.
//	FUNDED: YES
//	[/VERDICT]
package verdict

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	OpenTag  = "[VERDICT]"
	CloseTag = "[/VERDICT]"

	// FundingThreshold is authoritative: a YES flag below it is still a rejection.
	FundingThreshold = 8.0
	MaxScore         = 10.0
)

var blockRe = regexp.MustCompile(`(?is)\[VERDICT\](.*?)\[/VERDICT\]`)

// Verdict is the parsed decision.
type Verdict struct {
	Score     float64
	Valuation string
	Feedback  string
	// Flag is the agent's own YES/NO; Funded applies the score threshold on top.
	Flag   bool
	Funded bool
}

// Parse extracts the verdict from raw agent output. ok is false when the block
// is missing, a field is absent, or the score is not a number in 0..10.
func Parse(text string) (Verdict, bool) {
	m := blockRe.FindStringSubmatch(text)
	if m == nil {
		return Verdict{}, false
	}
	fields := parseFields(m[1])

	rawScore, okScore := fields["SCORE"]
	valuation, okVal := fields["VALUATION"]
	feedback, okFeedback := fields["FEEDBACK"]
	rawFlag, okFlag := fields["FUNDED"]
	if !okScore || !okVal || !okFeedback || !okFlag {
		return Verdict{}, false
	}
	flag, _ := parseFlag(rawFlag)

	score, ok := parseScore(rawScore)
	if !ok {
		return Verdict{}, false
	}

	return Verdict{
		Score:     score,
		Valuation: strings.TrimSpace(valuation),
		Feedback:  strings.TrimSpace(feedback),
		Flag:      flag,
		Funded:    flag && score >= FundingThreshold,
	}, true
}

// Strip removes every verdict block and returns the text shown to the founder.
func Strip(text string) string {
	return strings.TrimSpace(blockRe.ReplaceAllString(text, ""))
}

// parseFields reads KEY: value lines. Other lines continue the previous field,
// which lets FEEDBACK span several lines. Each key starts a field only the
// first time it appears, and FUNDED only with a YES/NO value, so prose such as
// "Score: could improve" inside the feedback stays part of the feedback.
func parseFields(body string) map[string]string {
	out := map[string]string{}
	var current string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if key, val, ok := strings.Cut(trimmed, ":"); ok {
			key = strings.ToUpper(strings.TrimSpace(strings.Trim(key, "*")))
			val = strings.TrimSpace(strings.Trim(val, "*"))
			_, seen := out[key]
			if isKey(key) && !seen {
				if _, isFlag := parseFlag(val); key != "FUNDED" || isFlag {
					current = key
					out[key] = val
					continue
				}
			}
		}
		if current != "" && trimmed != "" {
			if out[current] == "" {
				out[current] = trimmed
			} else {
				out[current] += "\n" + trimmed
			}
		}
	}
	return out
}

func isKey(k string) bool {
	switch k {
	case "SCORE", "VALUATION", "FEEDBACK", "FUNDED":
		return true
	}
	return false
}

// parseFlag reads YES or NO from the first word, ignoring trailing punctuation.
func parseFlag(raw string) (yes, ok bool) {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return false, false
	}
	switch strings.ToUpper(strings.Trim(words[0], ".!,;")) {
	case "YES":
		return true, true
	case "NO":
		return false, true
	}
	return false, false
}

func parseScore(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "/10")
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > MaxScore {
		return 0, false
	}
	return v, true
}
