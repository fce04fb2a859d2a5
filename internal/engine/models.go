package engine

// FilterConfig is the single campaign/target combination a deployment
// relays. It is built once at startup and passed by value.
type FilterConfig struct {
	CampaignName string `json:"campaignName"`
	TargetName   string `json:"targetName"`
}

// Label classifies an in-scope call for the notification text.
type Label string

const (
	LabelNoValue       Label = "No Value"
	LabelSystemEnded   Label = "System Ended"
	LabelMatchedTarget Label = "Matched Target"
)

// Out-of-scope reasons, used for logs and metrics only.
const (
	ReasonCampaignMismatch = "campaign_mismatch"
	ReasonNoRuleMatched    = "no_rule_matched"
)

// Verdict is either in scope with a Label, or out of scope. Reason names
// the rule that matched or why nothing did.
type Verdict struct {
	InScope bool
	Label   Label
	Reason  string
}

func InScope(l Label, rule string) Verdict { return Verdict{InScope: true, Label: l, Reason: rule} }
func OutOfScope(reason string) Verdict     { return Verdict{Reason: reason} }

// NumberKind is the outcome of ParseNumber.
type NumberKind int

const (
	Blank NumberKind = iota
	Numeric
	NotANumber
)

// Number is a try-parse result; Value is set only for Numeric.
type Number struct {
	Kind  NumberKind
	Value float64
}
