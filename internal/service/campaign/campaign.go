package campaign

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/open-apime/zapdash/internal/config"
	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/pkg/jid"
)

type JobStatus string

const (
	StatusPending JobStatus = "Aguardando"
	StatusSending JobStatus = "Enviando"
	StatusSent    JobStatus = "Enviado"
	StatusFailed  JobStatus = "Falhou"
)

const (
	msgCancelled = "Disparos interrompidos pelo usuário."
	msgCompleted = "Disparos concluídos!"
)

var (
	ErrAlreadyRunning       = errors.New("já existe um disparo em andamento")
	ErrNotRunning           = errors.New("nenhum disparo em andamento")
	ErrInstanceNotConnected = errors.New("instância não conectada")
	errInvalidNumber        = errors.New("número inválido")
)

// ValidationError rejeita a entrada do operador antes de qualquer envio.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Job struct {
	Number string    `json:"number"`
	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`
}

type Input struct {
	Numbers  string `json:"numbers"`
	Message  string `json:"message"`
	Interval int    `json:"interval"`
}

type Snapshot struct {
	Running bool  `json:"running"`
	Jobs    []Job `json:"jobs"`
	Input   Input `json:"input"`
}

type Sender interface {
	SendTextMessage(ctx context.Context, instanceName, number, text string) error
}

// InstanceSource devolve a instância carregada do usuário.
type InstanceSource interface {
	Current(userID string) *gateway.InstanceDetails
}

type Notifier interface {
	Success(userID, message string)
	Error(userID, message string)
}

type Options struct {
	DefaultInterval int
	CountryCode     string
}

func OptionsFromConfig(cfg config.CampaignConfig) Options {
	return Options{DefaultInterval: cfg.DefaultIntervalSeconds, CountryCode: cfg.CountryCode}
}

var separators = regexp.MustCompile(`[,\n/:]`)

// ParseDestinations separa a lista digitada por vírgula, quebra de linha,
// barra ou dois-pontos. Ordem e duplicados são preservados.
func ParseDestinations(input string) []string {
	var out []string
	for _, part := range separators.Split(input, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Destination normaliza o número para o JID de envio.
func Destination(countryCode, raw string) string {
	return jid.Destination(countryCode, raw)
}

// Delay é o intervalo entre envios: 0 usa o padrão, mínimo de 1 segundo.
func Delay(interval, fallback int) time.Duration {
	if interval == 0 {
		interval = fallback
	}
	if interval < 1 {
		interval = 1
	}
	return time.Duration(interval) * time.Second
}
