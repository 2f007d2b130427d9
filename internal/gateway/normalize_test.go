package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"connected", StatusOpen},
		{"open", StatusOpen},
		{"OPEN", StatusOpen},
		{"qrcode", StatusConnecting},
		{"connecting", StatusConnecting},
		{"close", StatusClose},
		{"refused", StatusClose},
		{"", StatusClose},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.raw))
		})
	}
}

func TestNormalizeInstance_PrefersFirstField(t *testing.T) {
	inst, ok := normalizeInstance(map[string]any{
		"instanceName": "a",
		"name":         "b",
		"state":        "",
		"status":       "open",
		"owner":        "",
		"ownerJid":     "5511999999999@s.whatsapp.net",
	})
	assert.True(t, ok)
	assert.Equal(t, "a", inst.InstanceName)
	assert.Equal(t, StatusOpen, inst.Status)
	assert.Equal(t, "5511999999999@s.whatsapp.net", inst.Owner)
}

func TestNormalizeInstance_WithoutName(t *testing.T) {
	_, ok := normalizeInstance(map[string]any{"instance": map[string]any{"state": "open"}})
	assert.False(t, ok)

	_, ok = normalizeInstance(nil)
	assert.False(t, ok)
}
