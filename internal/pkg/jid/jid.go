package jid

import (
	"strings"
	"unicode"

	"go.mau.fi/whatsmeow/types"
)

// Digits remove tudo que não for dígito.
func Digits(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// Destination monta o JID de usuário a partir do número digitado pelo operador.
// "(11) 99999-9999" com DDI 55 vira "5511999999999@s.whatsapp.net".
func Destination(countryCode, raw string) string {
	return types.NewJID(Digits(countryCode)+Digits(raw), types.DefaultUserServer).String()
}

// Phone extrai o número de um JID de dono de instância. Retorna vazio quando
// o valor não é um JID válido.
func Phone(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" || !strings.Contains(owner, "@") {
		return ""
	}
	parsed, err := types.ParseJID(owner)
	if err != nil || parsed.User == "" {
		return ""
	}
	if strings.IndexFunc(parsed.User, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return ""
	}
	return parsed.User
}
