package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/metrics"
	"github.com/open-apime/zapdash/internal/pkg/queue"
)

const eventKind = "onboarding.instance_created"

type deliverer interface {
	Deliver(ctx context.Context, payload Payload) error
}

// Dispatcher desacopla a criação da instância da chamada ao webhook.
type Dispatcher struct {
	queue   queue.Queue
	client  deliverer
	log     *zap.Logger
	enabled bool

	numWorkers int
	taskChan   chan *queue.Event
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	pollEvery  time.Duration
}

// NewDispatcher devolve um dispatcher desabilitado quando client é nil.
func NewDispatcher(q queue.Queue, client *Client, log *zap.Logger, numWorkers int) *Dispatcher {
	d := newDispatcher(q, nil, log, numWorkers)
	if client != nil {
		d.client = client
		d.enabled = true
	}
	return d
}

func newDispatcher(q queue.Queue, client deliverer, log *zap.Logger, numWorkers int) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = 2
	}
	return &Dispatcher{
		queue:      q,
		client:     client,
		log:        log.Named("onboarding"),
		enabled:    client != nil,
		numWorkers: numWorkers,
		taskChan:   make(chan *queue.Event, numWorkers*2),
		pollEvery:  time.Second,
	}
}

// Enqueue agenda a entrega. Sem webhook configurado é um no-op.
func (d *Dispatcher) Enqueue(ctx context.Context, payload Payload) error {
	if !d.enabled {
		d.log.Debug("webhook de onboarding não configurado, ignorando", zap.String("instance", payload.InstanceName))
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("onboarding: serializar payload: %w", err)
	}
	return d.queue.Enqueue(ctx, queue.Event{
		ID:        uuid.New().String(),
		Kind:      eventKind,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	})
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)
	if !d.enabled {
		d.log.Info("dispatcher desabilitado (ONBOARDING_WEBHOOK_URL vazio)")
		return
	}

	d.log.Info("dispatcher: iniciando", zap.Int("workers", d.numWorkers))
	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.runWorker(i)
	}
	d.wg.Add(1)
	go d.runDispatcher()
}

func (d *Dispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
	d.log.Info("dispatcher: encerrado")
}

func (d *Dispatcher) runDispatcher() {
	defer d.wg.Done()

	for {
		if d.ctx.Err() != nil {
			return
		}

		event, err := d.queue.Dequeue(d.ctx, d.pollEvery)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || d.ctx.Err() != nil {
				return
			}
			d.log.Error("dispatcher: erro ao desenfileirar", zap.Error(err))
			continue
		}
		if event == nil {
			continue
		}

		select {
		case d.taskChan <- event:
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) runWorker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case event := <-d.taskChan:
			d.process(id, event)
		}
	}
}

func (d *Dispatcher) process(workerID int, event *queue.Event) {
	if event.Kind != eventKind {
		d.log.Warn("dispatcher: evento desconhecido", zap.String("kind", event.Kind), zap.String("eventId", event.ID))
		return
	}

	var payload Payload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		d.log.Error("dispatcher: payload inválido", zap.String("eventId", event.ID), zap.Error(err))
		metrics.OnboardingDeliveries.WithLabelValues(metrics.OutcomeFailure).Inc()
		return
	}

	if err := d.client.Deliver(d.ctx, payload); err != nil {
		d.log.Error("falha ao chamar webhook de onboarding",
			zap.Int("workerId", workerID),
			zap.String("eventId", event.ID),
			zap.String("instance", payload.InstanceName),
			zap.Error(err),
		)
		metrics.OnboardingDeliveries.WithLabelValues(metrics.OutcomeFailure).Inc()
		return
	}
	metrics.OnboardingDeliveries.WithLabelValues(metrics.OutcomeSuccess).Inc()
}
