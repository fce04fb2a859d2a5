package event

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Alias keys per logical field, in lookup order.
var (
	CampaignNameKeys = []string{"campaignName", "CampaignName", "campaign_name"}
	TargetNameKeys   = []string{"targetName", "TargetName", "target_name"}
	CallerIDKeys     = []string{"callerId", "CallerId", "CallerID", "callerID", "caller_id"}
	CallLengthKeys   = []string{"callLengthFromConnect", "CallLengthFromConnect", "call_length_from_connect"}
	EndCallKeys      = []string{"endCallSource", "EndCallSource", "end_call_source"}
)

// Normalize extracts the fields the filter cares about. It cannot fail:
// missing fields get their defaults and numeric fields are kept as text.
func Normalize(raw RawEvent) NormalizedEvent {
	ev := NormalizedEvent{CallerID: DefaultCallerID}
	if v, ok := Lookup(raw, CampaignNameKeys...); ok {
		ev.CampaignName = v
	}
	if v, ok := Lookup(raw, TargetNameKeys...); ok {
		ev.TargetName = v
	}
	if v, ok := Lookup(raw, CallerIDKeys...); ok {
		ev.CallerID = v
	}
	if v, ok := Lookup(raw, CallLengthKeys...); ok {
		ev.CallLengthFromConnect = Some(v)
	}
	if v, ok := Lookup(raw, EndCallKeys...); ok {
		ev.EndCallSource = Some(v)
	}
	return ev
}

// Lookup returns the first alias present in raw with a non-null value.
// When no alias matches exactly, keys are compared folded (case and
// separators ignored) in sorted key order.
func Lookup(raw RawEvent, aliases ...string) (string, bool) {
	if len(raw) == 0 || len(aliases) == 0 {
		return "", false
	}
	for _, k := range aliases {
		if v, ok := raw[k]; ok && v != nil {
			return text(v), true
		}
	}

	want := foldKey(aliases[0])
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if foldKey(k) != want {
			continue
		}
		if v := raw[k]; v != nil {
			return text(v), true
		}
	}
	return "", false
}

func foldKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "").Replace(k)
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
