package instance

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/metrics"
)

// PairingState é o modal de QR code visto pelo painel.
type PairingState struct {
	Open        bool   `json:"open"`
	Connected   bool   `json:"connected"`
	Code        string `json:"code,omitempty"`
	QRCode      string `json:"qrCode,omitempty"`
	PairingCode string `json:"pairingCode,omitempty"`
	Countdown   int    `json:"countdown"`
	Error       string `json:"error,omitempty"`
}

// pairing possui as duas goroutines do fluxo de QR code. state e lastSeen
// são protegidos pelo mutex do Controller.
type pairing struct {
	name   string
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
	state  PairingState

	// última leitura do fluxo pelo painel; sem leituras por PairingIdle o
	// fluxo se encerra sozinho
	lastSeen time.Time
}

// closeLocked apaga o código exibido e marca o fluxo como fechado. Exige c.mu.
func (p *pairing) closeLocked() {
	p.state.Open = false
	p.state.Code = ""
	p.state.QRCode = ""
	p.state.PairingCode = ""
}

// teardown cancela as goroutines sem esperá-las; pode ser chamado por elas.
func (p *pairing) teardown() {
	p.once.Do(func() {
		p.cancel()
		metrics.PairingSessions.Dec()
	})
}

func (p *pairing) stop() {
	p.teardown()
	p.wg.Wait()
}

// Connect abre o fluxo de QR code: pede um código na hora e inicia o
// polling de estado e a contagem regressiva de renovação do código.
func (c *Controller) Connect(ctx context.Context, userID string) (PairingState, error) {
	c.mu.Lock()
	st, ok := c.users[userID]
	if !ok || st.instance == nil {
		c.mu.Unlock()
		return PairingState{}, ErrNoInstance
	}
	name := st.instance.InstanceName
	old := st.pairing
	st.pairing = nil
	c.mu.Unlock()

	if old != nil {
		old.stop()
	}

	pctx, cancel := context.WithCancel(c.root)
	p := &pairing{
		name:     name,
		cancel:   cancel,
		state:    PairingState{Open: true, Countdown: c.opts.RefreshSeconds},
		lastSeen: c.clock(),
	}
	metrics.PairingSessions.Inc()

	c.mu.Lock()
	if st.pairing != nil {
		// outro Connect venceu a corrida
		c.mu.Unlock()
		p.teardown()
		return c.Pairing(userID), nil
	}
	st.pairing = p
	c.mu.Unlock()

	c.refreshCode(ctx, userID, p)

	p.wg.Add(2)
	go c.poll(pctx, userID, p)
	go c.countdown(pctx, userID, p)

	c.log.Debug("fluxo de QR code aberto", zap.String("user", userID), zap.String("instance", name))
	return c.Pairing(userID), nil
}

// ClosePairing fecha o modal. Ao retornar, nenhuma chamada do fluxo está em
// andamento.
func (c *Controller) ClosePairing(userID string) {
	c.mu.Lock()
	st, ok := c.users[userID]
	if !ok || st.pairing == nil {
		c.mu.Unlock()
		return
	}
	p := st.pairing
	p.closeLocked()
	c.mu.Unlock()

	p.stop()
}

// detachPairing desvincula o fluxo do usuário e o devolve para ser
// encerrado fora do lock.
func (c *Controller) detachPairing(userID string) *pairing {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.users[userID]
	if !ok || st.pairing == nil {
		return nil
	}
	p := st.pairing
	st.pairing = nil
	p.closeLocked()
	return p
}

// Pairing devolve o estado do modal e conta como leitura do painel.
func (c *Controller) Pairing(userID string) PairingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.users[userID]
	if !ok || st.pairing == nil {
		return PairingState{}
	}
	st.pairing.lastSeen = c.clock()
	return st.pairing.state
}

// QRCodePNG devolve o código atual renderizado em PNG.
func (c *Controller) QRCodePNG(userID string, size int) ([]byte, error) {
	state := c.Pairing(userID)
	if !state.Open || state.Code == "" {
		return nil, ErrNoPairing
	}
	return renderPNG(state.Code, size)
}

// update aplica fn ao estado apenas se p ainda for o fluxo corrente e
// estiver aberto.
func (c *Controller) update(userID string, p *pairing, fn func(st *userState)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.users[userID]
	if !ok || st.pairing != p || !p.state.Open {
		return false
	}
	fn(st)
	return true
}

func (c *Controller) refreshCode(ctx context.Context, userID string, p *pairing) {
	conn, err := c.deps.Gateway.ConnectInstance(ctx, p.name)
	if ctx.Err() != nil {
		return
	}

	var qr string
	if err == nil {
		qr, err = renderDataURL(conn.Code)
	}

	c.update(userID, p, func(*userState) {
		p.state.Countdown = c.opts.RefreshSeconds
		if err != nil {
			p.state.Error = "falha ao gerar QR Code: " + err.Error()
			p.state.Code = ""
			p.state.QRCode = ""
			p.state.PairingCode = ""
			return
		}
		p.state.Error = ""
		p.state.Code = conn.Code
		p.state.QRCode = qr
		p.state.PairingCode = conn.PairingCode
	})
	if err != nil {
		c.log.Warn("falha ao gerar QR code", zap.String("instance", p.name), zap.Error(err))
	}
}

func (c *Controller) poll(ctx context.Context, userID string, p *pairing) {
	defer p.wg.Done()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := c.deps.Gateway.GetConnectionState(ctx, p.name)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Debug("falha ao consultar estado da conexão", zap.String("instance", p.name), zap.Error(err))
			}
			continue
		}
		if status != gateway.StatusOpen {
			continue
		}

		connected := c.update(userID, p, func(st *userState) {
			p.state = PairingState{Connected: true}
			if st.instance != nil {
				st.instance.Status = gateway.StatusOpen
			}
		})
		p.teardown()
		if !connected {
			return
		}

		c.log.Info("instância conectada", zap.String("user", userID), zap.String("instance", p.name))
		c.deps.Notifier.Success(userID, msgConnected)
		if _, err := c.Load(c.root, userID, p.name); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("falha ao atualizar detalhes após conexão", zap.String("instance", p.name), zap.Error(err))
		}
		return
	}
}

func (c *Controller) countdown(ctx context.Context, userID string, p *pairing) {
	defer p.wg.Done()

	ticker := time.NewTicker(c.opts.CountdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		expired, idle := false, false
		c.update(userID, p, func(*userState) {
			if c.clock().Sub(p.lastSeen) >= c.opts.PairingIdle {
				idle = true
				p.closeLocked()
				return
			}
			p.state.Countdown--
			expired = p.state.Countdown <= 0
		})
		if idle {
			c.log.Info("QR code sem leituras, encerrando fluxo",
				zap.String("user", userID),
				zap.String("instance", p.name),
				zap.Duration("idle", c.opts.PairingIdle),
			)
			p.teardown()
			return
		}
		if expired {
			c.refreshCode(ctx, userID, p)
		}
	}
}
