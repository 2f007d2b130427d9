package jid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDestination(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"mascarado", "(11) 99999-9999", "5511999999999@s.whatsapp.net"},
		{"somente dígitos", "11888888888", "5511888888888@s.whatsapp.net"},
		{"com espaços", "  11 7777-7777 ", "551177777777@s.whatsapp.net"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Destination("55", tt.raw))
		})
	}
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "5511999999999", Phone("5511999999999@s.whatsapp.net"))
	assert.Equal(t, "5511999999999", Phone("5511999999999:12@s.whatsapp.net"))
	assert.Equal(t, "", Phone(""))
	assert.Equal(t, "", Phone("sem-arroba"))
}
