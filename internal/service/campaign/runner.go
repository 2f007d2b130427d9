package campaign

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/metrics"
	"github.com/open-apime/zapdash/internal/pkg/jid"
)

// runToken identifica uma execução. Escritas de uma execução cancelada ou
// substituída são descartadas.
type runToken struct {
	cancelled bool
	cancel    context.CancelFunc
}

type runner struct {
	jobs    []Job
	input   Input
	running bool
	token   *runToken
}

// Service executa no máximo um disparo por usuário, em sequência.
type Service struct {
	sender    Sender
	instances InstanceSource
	notifier  Notifier
	opts      Options
	log       *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	// envios em andamento usam root, que Cancel não cancela
	root       context.Context
	cancelRoot context.CancelFunc
	wg         sync.WaitGroup

	mu      sync.Mutex
	runners map[string]*runner
}

func NewService(sender Sender, instances InstanceSource, notifier Notifier, opts Options, log *zap.Logger) *Service {
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = 5
	}
	if opts.CountryCode == "" {
		opts.CountryCode = "55"
	}
	root, cancel := context.WithCancel(context.Background())
	return &Service{
		sender:     sender,
		instances:  instances,
		notifier:   notifier,
		opts:       opts,
		log:        log.Named("campaign"),
		sleep:      sleepCtx,
		root:       root,
		cancelRoot: cancel,
		runners:    make(map[string]*runner),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// runnerLocked exige s.mu.
func (s *Service) runnerLocked(userID string) *runner {
	r, ok := s.runners[userID]
	if !ok {
		r = &runner{}
		s.runners[userID] = r
	}
	return r
}

func (s *Service) Snapshot(userID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[userID]
	if !ok {
		return Snapshot{Jobs: []Job{}}
	}
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return Snapshot{Running: r.running, Jobs: jobs, Input: r.input}
}

func (s *Service) Start(_ context.Context, userID string, in Input) (Snapshot, error) {
	numbers := ParseDestinations(in.Numbers)
	if len(numbers) == 0 {
		return Snapshot{}, &ValidationError{Field: "numbers", Message: "informe ao menos um número de destino"}
	}
	if in.Message == "" {
		return Snapshot{}, &ValidationError{Field: "message", Message: "a mensagem não pode ficar vazia"}
	}

	inst := s.instances.Current(userID)
	if inst == nil || inst.Status != gateway.StatusOpen {
		return Snapshot{}, ErrInstanceNotConnected
	}

	s.mu.Lock()
	r := s.runnerLocked(userID)
	if r.running {
		s.mu.Unlock()
		return Snapshot{}, ErrAlreadyRunning
	}

	waitCtx, cancel := context.WithCancel(s.root)
	tok := &runToken{cancel: cancel}
	r.jobs = make([]Job, len(numbers))
	for i, n := range numbers {
		r.jobs[i] = Job{Number: n, Status: StatusPending}
	}
	r.input = in
	r.running = true
	r.token = tok
	s.mu.Unlock()

	metrics.CampaignsRunning.Inc()
	s.log.Info("disparo iniciado",
		zap.String("user", userID),
		zap.String("instance", inst.InstanceName),
		zap.Int("destinations", len(numbers)),
	)

	s.wg.Add(1)
	go s.run(waitCtx, userID, r, tok, inst.InstanceName, numbers, in.Message, Delay(in.Interval, s.opts.DefaultInterval))

	return s.Snapshot(userID), nil
}

// commit aplica fn somente se tok ainda for a execução corrente.
func (s *Service) commit(r *runner, tok *runToken, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.cancelled || r.token != tok {
		return false
	}
	fn()
	return true
}

func (s *Service) run(waitCtx context.Context, userID string, r *runner, tok *runToken, instance string, numbers []string, message string, delay time.Duration) {
	defer s.wg.Done()
	defer tok.cancel()

	for i, number := range numbers {
		if !s.commit(r, tok, func() { r.jobs[i].Status = StatusSending }) {
			return
		}

		err := s.send(instance, number, message)

		if !s.commit(r, tok, func() {
			if err != nil {
				r.jobs[i].Status = StatusFailed
				r.jobs[i].Error = err.Error()
				return
			}
			r.jobs[i].Status = StatusSent
		}) {
			return
		}

		if err != nil {
			metrics.CampaignMessages.WithLabelValues("failed").Inc()
			s.log.Warn("falha no envio", zap.String("user", userID), zap.String("number", number), zap.Error(err))
		} else {
			metrics.CampaignMessages.WithLabelValues("sent").Inc()
		}

		if i < len(numbers)-1 {
			if err := s.sleep(waitCtx, delay); err != nil {
				return
			}
		}
	}

	if s.commit(r, tok, func() {
		r.running = false
		r.token = nil
	}) {
		metrics.CampaignsRunning.Dec()
		s.log.Info("disparo concluído", zap.String("user", userID), zap.Int("destinations", len(numbers)))
		s.notifier.Success(userID, msgCompleted)
	}
}

func (s *Service) send(instance, number, message string) error {
	if jid.Digits(number) == "" {
		return errInvalidNumber
	}
	return s.sender.SendTextMessage(s.root, instance, Destination(s.opts.CountryCode, number), message)
}

// Cancel interrompe o disparo antes do próximo envio. Um envio em andamento
// termina, mas seu resultado é descartado.
func (s *Service) Cancel(userID string) error {
	if !s.stop(userID) {
		return ErrNotRunning
	}
	s.log.Info("disparo interrompido", zap.String("user", userID))
	s.notifier.Error(userID, msgCancelled)
	return nil
}

func (s *Service) stop(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[userID]
	if !ok || !r.running {
		return false
	}
	r.token.cancelled = true
	r.token.cancel()
	r.token = nil
	r.running = false
	metrics.CampaignsRunning.Dec()
	return true
}

// Reset limpa jobs e entrada do operador.
func (s *Service) Reset(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[userID]
	if !ok {
		return nil
	}
	if r.running {
		return ErrAlreadyRunning
	}
	r.jobs = nil
	r.input = Input{}
	return nil
}

// Shutdown interrompe todos os disparos e aguarda os envios em andamento.
func (s *Service) Shutdown() {
	s.mu.Lock()
	var users []string
	for id, r := range s.runners {
		if r.running {
			users = append(users, id)
		}
	}
	s.mu.Unlock()

	for _, id := range users {
		s.stop(id)
	}
	s.cancelRoot()
	s.wg.Wait()
}
