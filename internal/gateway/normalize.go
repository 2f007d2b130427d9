package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/open-apime/zapdash/internal/pkg/jid"
)

// NormalizeStatus traduz os vocabulários de estado da API para Status.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "connected", "open":
		return StatusOpen
	case "qrcode", "connecting":
		return StatusConnecting
	default:
		return StatusClose
	}
}

// unwrap devolve o objeto aninhado em "instance", quando existir.
func unwrap(raw map[string]any) map[string]any {
	if inner, ok := raw["instance"].(map[string]any); ok && len(inner) > 0 {
		return inner
	}
	return raw
}

// firstString devolve o primeiro campo string não vazio dentre keys.
func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func normalizeInstance(raw map[string]any) (InstanceDetails, bool) {
	if raw == nil {
		return InstanceDetails{}, false
	}
	raw = unwrap(raw)

	name := firstString(raw, "instanceName", "name")
	if name == "" {
		return InstanceDetails{}, false
	}

	owner := firstString(raw, "owner", "ownerJid")
	return InstanceDetails{
		InstanceName:      name,
		Status:            NormalizeStatus(firstString(raw, "state", "status", "connectionStatus")),
		Owner:             owner,
		OwnerPhone:        jid.Phone(owner),
		ProfileName:       firstString(raw, "profileName"),
		ProfilePictureURL: firstString(raw, "profilePictureUrl"),
	}, true
}

func normalizeInstances(items []map[string]any) []InstanceDetails {
	out := make([]InstanceDetails, 0, len(items))
	for _, item := range items {
		if inst, ok := normalizeInstance(item); ok {
			out = append(out, inst)
		}
	}
	return out
}

// rawState lê o estado de conexão nas formas aninhada e plana.
func rawState(raw map[string]any) (string, bool) {
	state := firstString(unwrap(raw), "state", "status", "connectionStatus")
	return state, state != ""
}

// errorMessage extrai a mensagem de um corpo de erro: message, error, corpo bruto
// e, por último, o status HTTP.
func errorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("erro na API: %d", status)
	text := strings.TrimSpace(string(body))

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		if text != "" {
			return text
		}
		return fallback
	}

	for _, key := range []string{"message", "error"} {
		if msg := messageValue(payload[key]); msg != "" {
			return msg
		}
	}
	if text != "" {
		return text
	}
	return fallback
}

func messageValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := messageValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	case bool:
		if !val {
			return ""
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
