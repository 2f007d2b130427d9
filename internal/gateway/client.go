package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/config"
	"github.com/open-apime/zapdash/internal/metrics"
)

const defaultIntegration = "WHATSAPP-BAILEYS"

// errServerStatus marca respostas 5xx para que contem como falha no disjuntor.
var errServerStatus = errors.New("gateway: resposta 5xx")

// Client conversa com a API Evolution. É o único lugar que conhece os formatos
// de resposta do gateway.
type Client struct {
	baseURL     string
	apiKey      string
	integration string
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker
	log         *zap.Logger
}

type Option func(*Client)

// WithHTTPClient substitui o http.Client padrão.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreakerSettings substitui as configurações do disjuntor.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = newBreaker(st, c.log) }
}

func NewClient(cfg config.GatewayConfig, log *zap.Logger, opts ...Option) *Client {
	log = log.Named("gateway")
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	integration := cfg.Integration
	if integration == "" {
		integration = defaultIntegration
	}

	failures := cfg.BreakerFailureThreshold
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		integration: integration,
		http:        &http.Client{Timeout: timeout},
		log:         log,
	}
	c.breaker = newBreaker(gobreaker.Settings{
		Name:        "evolution-api",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    time.Duration(cfg.BreakerIntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.BreakerTimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	}, log)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(st gobreaker.Settings, log *zap.Logger) *gobreaker.CircuitBreaker {
	st.IsSuccessful = func(err error) bool {
		return err == nil
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn("gateway: disjuntor mudou de estado",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return gobreaker.NewCircuitBreaker(st)
}

type rawResponse struct {
	status int
	body   []byte
}

// do executa a requisição e devolve o corpo de respostas 2xx. Qualquer outra
// situação vira *Error.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("gateway: marshal %s: %w", op, err)
		}
		body = data
	}

	start := time.Now()
	defer func() {
		metrics.GatewayLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		res := rawResponse{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return res, errServerStatus
		}
		return res, nil
	})

	if err != nil && !errors.Is(err, errServerStatus) {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.GatewayRequests.WithLabelValues(op, metrics.OutcomeOpen).Inc()
			c.log.Warn("gateway: requisição bloqueada pelo disjuntor", zap.String("operation", op))
			return nil, &Error{Operation: op, Message: "gateway indisponível (circuito aberto)"}
		}
		metrics.GatewayRequests.WithLabelValues(op, metrics.OutcomeFailure).Inc()
		c.log.Warn("gateway: falha de rede", zap.String("operation", op), zap.String("path", path), zap.Error(err))
		return nil, &Error{Operation: op, Message: err.Error()}
	}

	res := result.(rawResponse)
	if res.status < 200 || res.status >= 300 {
		metrics.GatewayRequests.WithLabelValues(op, metrics.OutcomeFailure).Inc()
		msg := errorMessage(res.status, res.body)
		c.log.Debug("gateway: resposta de erro",
			zap.String("operation", op),
			zap.String("path", path),
			zap.Int("status", res.status),
			zap.String("message", msg),
		)
		return nil, &Error{Operation: op, StatusCode: res.status, Message: msg}
	}

	metrics.GatewayRequests.WithLabelValues(op, metrics.OutcomeSuccess).Inc()
	if len(bytes.TrimSpace(res.body)) == 0 {
		return []byte("{}"), nil
	}
	return res.body, nil
}

func decode(op string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &Error{Operation: op, Message: fmt.Sprintf("resposta inválida do gateway: %v", err)}
	}
	return nil
}

func instancePath(prefix, name string) string {
	return prefix + url.PathEscape(name)
}

type createInstanceRequest struct {
	InstanceName string `json:"instanceName"`
	QRCode       bool   `json:"qrcode"`
	Integration  string `json:"integration"`
}

// CreateInstance cria a instância configurada para conexão via QR code.
func (c *Client) CreateInstance(ctx context.Context, name string) (CreateResult, error) {
	data, err := c.do(ctx, "create", http.MethodPost, "/instance/create", createInstanceRequest{
		InstanceName: name,
		QRCode:       true,
		Integration:  c.integration,
	})
	if err != nil {
		return CreateResult{}, err
	}

	var raw map[string]any
	if err := decode("create", data, &raw); err != nil {
		return CreateResult{}, err
	}

	inner, _ := raw["instance"].(map[string]any)
	res := CreateResult{InstanceName: name}
	if inner != nil {
		if n := firstString(inner, "instanceName", "name"); n != "" {
			res.InstanceName = n
		}
		res.InstanceID = firstString(inner, "instanceId", "id")
		res.Status = firstString(inner, "status", "state")
	}
	if res.InstanceID == "" {
		res.InstanceID = firstString(raw, "instanceId", "id")
	}
	return res, nil
}

// FetchAllInstances lista todas as instâncias conhecidas pelo gateway.
func (c *Client) FetchAllInstances(ctx context.Context) ([]InstanceDetails, error) {
	data, err := c.do(ctx, "fetch_instances", http.MethodGet, "/instance/fetchInstances", nil)
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		c.log.Error("gateway: resposta de fetchInstances não é uma lista", zap.ByteString("body", data))
		return []InstanceDetails{}, nil
	}
	return normalizeInstances(items), nil
}

// FetchInstanceDetails devolve NotFoundError quando o nome não está na lista.
func (c *Client) FetchInstanceDetails(ctx context.Context, name string) (InstanceDetails, error) {
	all, err := c.FetchAllInstances(ctx)
	if err != nil {
		return InstanceDetails{}, err
	}
	for _, inst := range all {
		if inst.InstanceName == name {
			return inst, nil
		}
	}
	return InstanceDetails{}, &NotFoundError{Name: name}
}

// ConnectInstance pede um novo código de pareamento.
func (c *Client) ConnectInstance(ctx context.Context, name string) (Connection, error) {
	data, err := c.do(ctx, "connect", http.MethodGet, instancePath("/instance/connect/", name), nil)
	if err != nil {
		return Connection{}, err
	}

	var conn Connection
	if err := decode("connect", data, &conn); err != nil {
		return Connection{}, err
	}
	if conn.Code == "" {
		return Connection{}, ErrNoCode
	}
	return conn, nil
}

// GetConnectionState lê o estado atual da conexão.
func (c *Client) GetConnectionState(ctx context.Context, name string) (Status, error) {
	data, err := c.do(ctx, "connection_state", http.MethodGet, instancePath("/instance/connectionState/", name), nil)
	if err != nil {
		return "", err
	}

	var raw map[string]any
	if err := decode("connection_state", data, &raw); err != nil {
		return "", err
	}
	state, ok := rawState(raw)
	if !ok {
		c.log.Error("gateway: estado da conexão em formato inesperado", zap.ByteString("body", data))
		return "", &Error{Operation: "connection_state", Message: "resposta do estado da conexão em formato inesperado"}
	}
	return NormalizeStatus(state), nil
}

func (c *Client) RestartInstance(ctx context.Context, name string) error {
	_, err := c.do(ctx, "restart", http.MethodPut, instancePath("/instance/restart/", name), nil)
	return err
}

func (c *Client) LogoutInstance(ctx context.Context, name string) error {
	_, err := c.do(ctx, "logout", http.MethodDelete, instancePath("/instance/logout/", name), nil)
	return err
}

func (c *Client) DeleteInstance(ctx context.Context, name string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, instancePath("/instance/delete/", name), nil)
	return err
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendTextMessage envia uma mensagem de texto. number já deve estar no formato JID.
func (c *Client) SendTextMessage(ctx context.Context, name, number, text string) error {
	_, err := c.do(ctx, "send_text", http.MethodPost, instancePath("/message/sendText/", name), sendTextRequest{
		Number: number,
		Text:   text,
	})
	return err
}
