package event

// RawEvent is the decoded webhook body as received.
type RawEvent map[string]any

// Optional holds a field that may be missing from the payload.
// Value is the raw text of the field; it is never validated here.
type Optional struct {
	Value   string
	Present bool
}

// Some returns a present Optional.
func Some(v string) Optional { return Optional{Value: v, Present: true} }

// NormalizedEvent is built once per request and never mutated.
type NormalizedEvent struct {
	CampaignName          string
	TargetName            string
	CallerID              string
	CallLengthFromConnect Optional
	EndCallSource         Optional
}

const DefaultCallerID = "Unknown"
