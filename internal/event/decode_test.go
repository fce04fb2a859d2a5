package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantNil bool
		wantErr error
	}{
		{"empty", "", true, nil},
		{"whitespace", " \n\t", true, nil},
		{"null", "null", true, nil},
		{"empty object", "{}", true, nil},
		{"array", `[{"campaignName":"X"}]`, true, ErrNotObject},
		{"string", `"hello"`, true, ErrNotObject},
		{"garbage", "campaignName=X", true, ErrNotObject},
		{"trailing data", `{"a":1} {"b":2}`, true, ErrNotObject},
		{"trailing bracket", `{"campaignName":"X"}]`, true, ErrNotObject},
		{"trailing brace", `{"campaignName":"X"}}`, true, ErrNotObject},
		{"trailing junk", `{"campaignName":"X"} junk`, true, ErrNotObject},
		{"invalid utf8", "{\"a\":\"\xff\"}", true, ErrEncoding},
		{"object", `{"campaignName":"X"}`, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Decode([]byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantNil, raw == nil)
		})
	}
}

func TestDecode_KeepsNumberText(t *testing.T) {
	raw, err := Decode([]byte(`{"callLengthFromConnect": 0.0}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("0.0"), raw["callLengthFromConnect"])
	assert.Equal(t, Some("0.0"), Normalize(raw).CallLengthFromConnect)
}
