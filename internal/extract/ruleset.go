// Package extract implements the bounded, deterministic rule-based
// extraction CacheConsolidationAgent runs over a conversation's joined
// text: keyword/regex families for decisions, issues, tasks and next
// steps. It never calls an external service.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/aicfd/aicfd/internal/model"
)

// Ruleset extracts analytical fields from a conversation's Messages.
type Ruleset interface {
	Extract(messages []model.Message) Result
}

// Result holds every analytical field a ConversationRecord needs.
type Result struct {
	UserIntents   []model.UserIntent
	AIActions     []model.AIAction
	TechnicalWork []model.TechnicalWorkItem
	Decisions     []model.Decision
	Flow          []model.FlowStep
	WorkingState  string
}

// DefaultRuleset is the keyword/regex-family extractor grounded in the
// source system's "decision / issue / task / next step" categories.
type DefaultRuleset struct{}

var (
	decisionPattern = regexp.MustCompile(`(?i)\b(decided|we'll go with|chose|opting for|going with|settled on)\b`)
	issuePattern    = regexp.MustCompile(`(?i)\b(bug|issue|error|broken|fails?|failing|crash(es|ed)?)\b`)
	taskPattern     = regexp.MustCompile(`(?i)\b(todo|need to|let's|implement|add|fix|refactor)\b`)
	nextStepPattern = regexp.MustCompile(`(?i)\b(next step|next,? we|then we|after this|following up)\b`)
	intentPattern   = regexp.MustCompile(`(?i)\b(can you|please|i want|i need|help me|could you)\b`)

	categoryPatterns = map[string]*regexp.Regexp{
		"issue":    issuePattern,
		"task":     taskPattern,
		"nextStep": nextStepPattern,
	}
)

// Extract runs every pattern family over each Message's content and builds
// the flow/intent/action/decision/technical-work fields. Confidence on a
// UserIntent is 0.3 plus 0.15 per intent keyword match in that sentence,
// capped at 0.95 — a coarse, explainable score, not a probability.
func (DefaultRuleset) Extract(messages []model.Message) Result {
	var result Result

	for i, m := range messages {
		sentences := splitSentences(m.Content)

		switch m.Role {
		case model.RoleUser:
			for _, s := range sentences {
				if intentPattern.MatchString(s) {
					result.UserIntents = append(result.UserIntents, model.UserIntent{
						Timestamp:  m.Timestamp,
						Text:       strings.TrimSpace(s),
						Confidence: confidenceFor(s, intentPattern),
					})
				}
				if decisionPattern.MatchString(s) {
					result.Decisions = append(result.Decisions, model.Decision{
						Timestamp: m.Timestamp,
						Text:      strings.TrimSpace(s),
					})
				}
			}
		case model.RoleAssistant:
			for _, s := range sentences {
				if decisionPattern.MatchString(s) {
					result.Decisions = append(result.Decisions, model.Decision{
						Timestamp: m.Timestamp,
						Text:      strings.TrimSpace(s),
					})
				}
				result.AIActions = append(result.AIActions, model.AIAction{
					Timestamp: m.Timestamp,
					Text:      strings.TrimSpace(s),
				})
				for category, pattern := range categoryPatterns {
					if pattern.MatchString(s) {
						result.TechnicalWork = append(result.TechnicalWork, model.TechnicalWorkItem{
							Timestamp: m.Timestamp,
							Category:  category,
							Text:      strings.TrimSpace(s),
						})
					}
				}
			}
		}

		result.Flow = append(result.Flow, model.FlowStep{
			N:      i,
			Role:   m.Role,
			Marker: flowMarker(m.Role),
		})
	}

	result.WorkingState = workingState(result)

	return result
}

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

func splitSentences(content string) []string {
	parts := sentenceSplit.Split(content, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func confidenceFor(sentence string, pattern *regexp.Regexp) float64 {
	matches := pattern.FindAllString(sentence, -1)
	score := 0.3 + 0.15*float64(len(matches))
	if score > 0.95 {
		score = 0.95
	}
	return score
}

func flowMarker(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "ask"
	case model.RoleAssistant:
		return "respond"
	default:
		return "system"
	}
}

// workingState produces a one-paragraph summary from the most recent
// decision or technical-work item, falling back to a generic note.
func workingState(r Result) string {
	if len(r.Decisions) > 0 {
		last := r.Decisions[len(r.Decisions)-1]
		return "Most recent decision: " + last.Text
	}
	if len(r.TechnicalWork) > 0 {
		last := r.TechnicalWork[len(r.TechnicalWork)-1]
		return "In progress: " + last.Text
	}
	return "No decisions or technical work extracted yet."
}

// LatestTimestamp returns the latest Timestamp across every extracted item,
// or the zero time if Result is empty.
func (r Result) LatestTimestamp() time.Time {
	var latest time.Time
	consider := func(t time.Time) {
		if t.After(latest) {
			latest = t
		}
	}
	for _, v := range r.UserIntents {
		consider(v.Timestamp)
	}
	for _, v := range r.AIActions {
		consider(v.Timestamp)
	}
	for _, v := range r.Decisions {
		consider(v.Timestamp)
	}
	for _, v := range r.TechnicalWork {
		consider(v.Timestamp)
	}
	return latest
}
