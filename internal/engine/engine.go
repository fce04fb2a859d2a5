package engine

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"call-relay/internal/event"
)

const systemSource = "system"

// Engine binds the decision function to the process-wide filter.
type Engine struct{ cfg FilterConfig }

func NewEngine(cfg FilterConfig) *Engine { return &Engine{cfg: cfg} }

func (e *Engine) Config() FilterConfig { return e.cfg }

func (e *Engine) Decide(ev event.NormalizedEvent) Verdict { return Decide(ev, e.cfg) }

// rule is one classification step. Rules are evaluated in order and the
// first match decides the label, so the order of rules matters.
type rule struct {
	name  string
	label Label
	match func(ev event.NormalizedEvent, cfg FilterConfig) bool
}

var rules = []rule{
	{"zero_duration", LabelNoValue, zeroDuration},
	{"blank_target", LabelNoValue, blankTarget},
	{"system_ended", LabelSystemEnded, systemEnded},
	{"matched_target", LabelMatchedTarget, matchedTarget},
}

// Decide classifies a call event against cfg. It is pure and total:
// malformed input makes a rule not match, it never fails.
func Decide(ev event.NormalizedEvent, cfg FilterConfig) Verdict {
	if ev.CampaignName != cfg.CampaignName {
		return OutOfScope(ReasonCampaignMismatch)
	}
	for _, r := range rules {
		if r.match(ev, cfg) {
			return InScope(r.label, r.name)
		}
	}
	return OutOfScope(ReasonNoRuleMatched)
}

// ParseNumber interprets a numeric-looking field without raising.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{Kind: Blank}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{Kind: NotANumber}
	}
	return Number{Kind: Numeric, Value: f}
}

func zeroDuration(ev event.NormalizedEvent, _ FilterConfig) bool {
	if !ev.CallLengthFromConnect.Present {
		return false
	}
	n := ParseNumber(ev.CallLengthFromConnect.Value)
	switch n.Kind {
	case Blank:
		return true
	case Numeric:
		return n.Value == 0
	default:
		return false
	}
}

func blankTarget(ev event.NormalizedEvent, _ FilterConfig) bool {
	return strings.TrimSpace(ev.TargetName) == ""
}

func systemEnded(ev event.NormalizedEvent, _ FilterConfig) bool {
	if !ev.EndCallSource.Present {
		return false
	}
	return cases.Fold().String(strings.TrimSpace(ev.EndCallSource.Value)) == systemSource
}

func matchedTarget(ev event.NormalizedEvent, cfg FilterConfig) bool {
	return ev.TargetName == cfg.TargetName
}
