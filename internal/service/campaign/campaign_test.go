package campaign

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/gateway"
)

type sent struct{ instance, number, text string }

type fakeSender struct {
	mu      sync.Mutex
	calls   []sent
	fail    map[string]error
	block   chan struct{} // quando não nil, cada envio espera um valor
	started chan struct{}
	onSend  func()
}

func (f *fakeSender) SendTextMessage(_ context.Context, instance, number, text string) error {
	f.mu.Lock()
	f.calls = append(f.calls, sent{instance, number, text})
	err := f.fail[number]
	block, started, onSend := f.block, f.started, f.onSend
	f.mu.Unlock()

	if onSend != nil {
		onSend()
	}
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeSender) sentCalls() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.calls...)
}

type fakeInstances struct{ status gateway.Status }

func (f fakeInstances) Current(string) *gateway.InstanceDetails {
	if f.status == "" {
		return nil
	}
	return &gateway.InstanceDetails{InstanceName: "inst1", Status: f.status}
}

type fakeNotifier struct {
	mu      sync.Mutex
	success []string
	errors  []string
}

func (n *fakeNotifier) Success(_, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, msg)
}

func (n *fakeNotifier) Error(_, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *fakeNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.success), len(n.errors)
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestService(t *testing.T, sender *fakeSender, status gateway.Status) (*Service, *fakeNotifier, *sleepRecorder) {
	t.Helper()
	notifier := &fakeNotifier{}
	svc := NewService(sender, fakeInstances{status: status}, notifier, Options{}, zap.NewNop())
	rec := &sleepRecorder{}
	svc.sleep = rec.sleep
	t.Cleanup(svc.Shutdown)
	return svc, notifier, rec
}

func waitIdle(t *testing.T, svc *Service, user string) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return !svc.Snapshot(user).Running }, 2*time.Second, time.Millisecond)
	return svc.Snapshot(user)
}

func TestParseDestinations(t *testing.T) {
	assert.Equal(t,
		[]string{"11999999999", "11888888888", "11777777777"},
		ParseDestinations("11999999999, 11888888888\n11777777777"),
	)
	assert.Equal(t, []string{"1", "2", "1", "3"}, ParseDestinations(" 1 / 2 :1,, \n3\n"))
	assert.Empty(t, ParseDestinations(" , \n / "))
}

func TestDestination(t *testing.T) {
	assert.Equal(t, "5511999999999@s.whatsapp.net", Destination("55", "(11) 99999-9999"))
}

func TestDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, Delay(0, 5))
	assert.Equal(t, time.Second, Delay(-3, 5))
	assert.Equal(t, time.Second, Delay(1, 5))
	assert.Equal(t, 10*time.Second, Delay(10, 5))
}

func TestStart_ValidationCreatesNoJobs(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newTestService(t, sender, gateway.StatusOpen)

	_, err := svc.Start(context.Background(), "u1", Input{Numbers: " , ", Message: "oi"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "numbers", verr.Field)

	_, err = svc.Start(context.Background(), "u1", Input{Numbers: "11999999999", Message: ""})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "message", verr.Field)

	assert.Empty(t, svc.Snapshot("u1").Jobs)
	assert.Empty(t, sender.sentCalls())
}

func TestStart_WhitespaceMessageIsSentAsTyped(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newTestService(t, sender, gateway.StatusOpen)

	_, err := svc.Start(context.Background(), "u1", Input{Numbers: "11999999999", Message: "  "})
	require.NoError(t, err)

	waitIdle(t, svc, "u1")
	calls := sender.sentCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "  ", calls[0].text)
}

func TestStart_RequiresOpenInstance(t *testing.T) {
	for _, status := range []gateway.Status{"", gateway.StatusClose, gateway.StatusConnecting} {
		svc, _, _ := newTestService(t, &fakeSender{}, status)
		_, err := svc.Start(context.Background(), "u1", Input{Numbers: "1", Message: "oi"})
		assert.ErrorIs(t, err, ErrInstanceNotConnected)
	}
}

func TestRun_SequentialWithDelay(t *testing.T) {
	sender := &fakeSender{fail: map[string]error{"11888888888": errors.New("número sem WhatsApp")}}
	svc, notifier, rec := newTestService(t, sender, gateway.StatusOpen)

	maxSending := 0
	var mu sync.Mutex
	sender.onSend = func() {
		sending := 0
		for _, j := range svc.Snapshot("u1").Jobs {
			if j.Status == StatusSending {
				sending++
			}
		}
		mu.Lock()
		if sending > maxSending {
			maxSending = sending
		}
		mu.Unlock()
	}

	_, err := svc.Start(context.Background(), "u1", Input{
		Numbers: "11999999999, 11888888888\n11777777777",
		Message: "promoção",
	})
	require.NoError(t, err)

	snap := waitIdle(t, svc, "u1")
	require.Eventually(t, func() bool { s, _ := notifier.counts(); return s == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, []sent{
		{"inst1", "5511999999999@s.whatsapp.net", "promoção"},
		{"inst1", "5511888888888@s.whatsapp.net", "promoção"},
		{"inst1", "5511777777777@s.whatsapp.net", "promoção"},
	}, sender.sentCalls())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, rec.delays)
	assert.Equal(t, 1, maxSending)

	assert.Equal(t, []Job{
		{Number: "11999999999", Status: StatusSent},
		{Number: "11888888888", Status: StatusFailed, Error: "número sem WhatsApp"},
		{Number: "11777777777", Status: StatusSent},
	}, snap.Jobs)
	assert.Equal(t, []string{"Disparos concluídos!"}, notifier.success)
	assert.Empty(t, notifier.errors)
}

func TestRun_CustomIntervalClamped(t *testing.T) {
	sender := &fakeSender{}
	svc, _, rec := newTestService(t, sender, gateway.StatusOpen)

	_, err := svc.Start(context.Background(), "u1", Input{Numbers: "1,2", Message: "oi", Interval: -2})
	require.NoError(t, err)
	waitIdle(t, svc, "u1")
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}

func TestCancel_DiscardsInFlightResult(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{}), started: make(chan struct{}, 1)}
	svc, notifier, _ := newTestService(t, sender, gateway.StatusOpen)

	_, err := svc.Start(context.Background(), "u1", Input{Numbers: "1,2,3", Message: "oi"})
	require.NoError(t, err)
	<-sender.started

	require.NoError(t, svc.Cancel("u1"))
	snap := svc.Snapshot("u1")
	assert.False(t, snap.Running)

	// o envio em andamento termina depois do cancelamento
	sender.block <- struct{}{}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []Job{
		{Number: "1", Status: StatusSending},
		{Number: "2", Status: StatusPending},
		{Number: "3", Status: StatusPending},
	}, svc.Snapshot("u1").Jobs)
	assert.Len(t, sender.sentCalls(), 1)

	successes, errs := notifier.counts()
	assert.Zero(t, successes)
	assert.Equal(t, 1, errs)
	assert.Equal(t, []string{"Disparos interrompidos pelo usuário."}, notifier.errors)

	assert.ErrorIs(t, svc.Cancel("u1"), ErrNotRunning)
}

func TestCancel_AllowsImmediateRestart(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{}), started: make(chan struct{}, 2)}
	svc, _, _ := newTestService(t, sender, gateway.StatusOpen)

	_, err := svc.Start(context.Background(), "u1", Input{Numbers: "1,2", Message: "oi"})
	require.NoError(t, err)
	<-sender.started
	require.NoError(t, svc.Cancel("u1"))

	// o envio antigo ainda está bloqueado
	_, err = svc.Start(context.Background(), "u1", Input{Numbers: "9", Message: "novo"})
	require.NoError(t, err)
	<-sender.started

	close(sender.block)
	snap := waitIdle(t, svc, "u1")
	assert.Equal(t, []Job{{Number: "9", Status: StatusSent}}, snap.Jobs)
}

func TestStart_AlreadyRunningAndReset(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{}), started: make(chan struct{}, 1)}
	svc, _, _ := newTestService(t, sender, gateway.StatusOpen)

	_, err := svc.Start(context.Background(), "u1", Input{Numbers: "1", Message: "oi"})
	require.NoError(t, err)
	<-sender.started

	_, err = svc.Start(context.Background(), "u1", Input{Numbers: "2", Message: "oi"})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.ErrorIs(t, svc.Reset("u1"), ErrAlreadyRunning)

	close(sender.block)
	waitIdle(t, svc, "u1")

	require.NoError(t, svc.Reset("u1"))
	snap := svc.Snapshot("u1")
	assert.Empty(t, snap.Jobs)
	assert.Equal(t, Input{}, snap.Input)
}
