package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Payload é o corpo enviado ao webhook quando uma instância é criada.
type Payload struct {
	Email        string `json:"email"`
	ID           string `json:"id"`
	InstanceName string `json:"instanceName"`
	InstanceID   string `json:"instanceId"`
}

// Client faz um único POST por entrega, sem retentativas.
type Client struct {
	url  string
	http *http.Client
	log  *zap.Logger
}

func NewClient(url string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

func (c *Client) Deliver(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("onboarding: serializar payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("onboarding: montar requisição: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "zapdash/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("onboarding: requisição: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("o webhook retornou um erro: %d %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	c.log.Info("onboarding: webhook entregue",
		zap.String("instance", payload.InstanceName),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
