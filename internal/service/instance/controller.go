package instance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/config"
	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/onboarding"
	"github.com/open-apime/zapdash/internal/pkg/lock"
	"github.com/open-apime/zapdash/internal/storage/model"
)

var (
	ErrNoInstance         = errors.New("usuário não possui instância")
	ErrInstanceExists     = errors.New("usuário já possui uma instância")
	ErrCreationInProgress = errors.New("criação da instância já em andamento")
	ErrNoPairing          = errors.New("nenhum QR code disponível")
)

const (
	msgConnected    = "Instância conectada com sucesso!"
	msgDisconnected = "Desconectado com sucesso! Um novo QR Code será exibido."
)

type Gateway interface {
	CreateInstance(ctx context.Context, name string) (gateway.CreateResult, error)
	FetchInstanceDetails(ctx context.Context, name string) (gateway.InstanceDetails, error)
	ConnectInstance(ctx context.Context, name string) (gateway.Connection, error)
	GetConnectionState(ctx context.Context, name string) (gateway.Status, error)
	LogoutInstance(ctx context.Context, name string) error
	DeleteInstance(ctx context.Context, name string) error
}

type ProfileStore interface {
	SetInstanceName(ctx context.Context, userID, instanceName string) (model.Profile, error)
	ClearInstanceName(ctx context.Context, userID string) error
}

type Onboarder interface {
	Enqueue(ctx context.Context, payload onboarding.Payload) error
}

type Notifier interface {
	Success(userID, message string)
	Error(userID, message string)
}

// Owner identifica o dono da instância a ser criada.
type Owner struct {
	ID    string
	Email string
}

type Options struct {
	NamePrefix     string
	SettleDelay    time.Duration
	PollInterval   time.Duration
	CountdownTick  time.Duration
	RefreshSeconds int
	ProvisionTTL   time.Duration
	CreateLockTTL  time.Duration
	PairingIdle    time.Duration
}

func OptionsFromConfig(cfg config.InstanceConfig) Options {
	return Options{
		NamePrefix:     cfg.NamePrefix,
		SettleDelay:    time.Duration(cfg.SettleDelayMillis) * time.Millisecond,
		PollInterval:   time.Duration(cfg.QRPollSeconds) * time.Second,
		CountdownTick:  time.Second,
		RefreshSeconds: cfg.QRRefreshSeconds,
		ProvisionTTL:   time.Duration(cfg.ProvisionGuardTTL) * time.Hour,
		CreateLockTTL:  2 * time.Minute,
		PairingIdle:    time.Duration(cfg.QRIdleSeconds) * time.Second,
	}
}

func (o Options) withDefaults() Options {
	if o.NamePrefix == "" {
		o.NamePrefix = "inst"
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.CountdownTick <= 0 {
		o.CountdownTick = time.Second
	}
	if o.RefreshSeconds <= 0 {
		o.RefreshSeconds = 45
	}
	if o.ProvisionTTL <= 0 {
		o.ProvisionTTL = 24 * time.Hour
	}
	if o.CreateLockTTL <= 0 {
		o.CreateLockTTL = 2 * time.Minute
	}
	if o.PairingIdle <= 0 {
		o.PairingIdle = 5 * time.Minute
	}
	return o
}

type Deps struct {
	Gateway    Gateway
	Profiles   ProfileStore
	Locker     lock.Locker
	Guard      lock.Guard
	Onboarding Onboarder
	Notifier   Notifier
}

// View é o que o painel do usuário exibe sobre a própria instância.
type View struct {
	Instance     *gateway.InstanceDetails `json:"instance"`
	Creating     bool                     `json:"creating"`
	Provisioning bool                     `json:"provisioning"`
	LastError    string                   `json:"lastError,omitempty"`
	Pairing      PairingState             `json:"pairing"`
}

type userState struct {
	instance     *gateway.InstanceDetails
	creating     bool
	provisioning bool
	lastError    string
	pairing      *pairing
}

// Controller mantém, por usuário, a instância carregada, o fluxo de QR code
// e o estado do provisionamento automático.
type Controller struct {
	deps  Deps
	opts  Options
	log   *zap.Logger
	sleep func(ctx context.Context, d time.Duration) error
	clock func() time.Time

	root       context.Context
	cancelRoot context.CancelFunc
	wg         sync.WaitGroup

	mu    sync.Mutex
	users map[string]*userState
}

func NewController(deps Deps, opts Options, log *zap.Logger) *Controller {
	root, cancel := context.WithCancel(context.Background())
	return &Controller{
		deps:       deps,
		opts:       opts.withDefaults(),
		log:        log.Named("instance"),
		sleep:      sleepCtx,
		clock:      time.Now,
		root:       root,
		cancelRoot: cancel,
		users:      make(map[string]*userState),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InstanceName deriva o nome da instância a partir do id do usuário.
func InstanceName(prefix, userID string) string {
	clean := strings.ReplaceAll(userID, "-", "")
	if len(clean) > 16 {
		clean = clean[:16]
	}
	return prefix + clean
}

func (c *Controller) InstanceName(userID string) string {
	return InstanceName(c.opts.NamePrefix, userID)
}

// stateLocked exige c.mu.
func (c *Controller) stateLocked(userID string) *userState {
	st, ok := c.users[userID]
	if !ok {
		st = &userState{}
		c.users[userID] = st
	}
	return st
}

func (c *Controller) setInstance(userID string, details *gateway.InstanceDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stateLocked(userID)
	if details == nil {
		st.instance = nil
		return
	}
	cp := *details
	st.instance = &cp
}

// Current devolve uma cópia da instância carregada, ou nil.
func (c *Controller) Current(userID string) *gateway.InstanceDetails {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.users[userID]
	if !ok || st.instance == nil {
		return nil
	}
	cp := *st.instance
	return &cp
}

func (c *Controller) View(userID string) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.users[userID]
	if !ok {
		return View{}
	}
	v := View{
		Creating:     st.creating,
		Provisioning: st.provisioning,
		LastError:    st.lastError,
	}
	if st.instance != nil {
		cp := *st.instance
		v.Instance = &cp
	}
	if st.pairing != nil {
		st.pairing.lastSeen = c.clock()
		v.Pairing = st.pairing.state
	}
	return v
}

// Load busca os detalhes da instância salva no perfil. Se o gateway não a
// conhece mais, o nome salvo é limpo e o resultado é nil sem erro.
func (c *Controller) Load(ctx context.Context, userID, storedName string) (*gateway.InstanceDetails, error) {
	if storedName == "" {
		c.setInstance(userID, nil)
		return nil, nil
	}

	details, err := c.deps.Gateway.FetchInstanceDetails(ctx, storedName)
	if err != nil {
		if !gateway.IsNotFound(err) {
			return nil, err
		}
		c.log.Info("instância não existe mais no gateway, limpando perfil",
			zap.String("user", userID),
			zap.String("instance", storedName),
		)
		c.setInstance(userID, nil)
		c.dropPairing(userID)
		if err := c.deps.Profiles.ClearInstanceName(ctx, userID); err != nil {
			c.log.Warn("falha ao limpar instância do perfil", zap.String("user", userID), zap.Error(err))
		}
		return nil, nil
	}

	c.setInstance(userID, &details)
	return &details, nil
}

// dropPairing encerra o fluxo de uma instância que deixou de existir. Não
// espera as goroutines: Load também roda dentro do polling do próprio fluxo.
func (c *Controller) dropPairing(userID string) {
	if p := c.detachPairing(userID); p != nil {
		p.teardown()
	}
}

// Create provisiona a instância do usuário e abre o fluxo de QR code. Em
// caso de falha a instância parcialmente criada é removida do gateway.
func (c *Controller) Create(ctx context.Context, owner Owner) (*gateway.InstanceDetails, error) {
	name := c.InstanceName(owner.ID)

	c.mu.Lock()
	st := c.stateLocked(owner.ID)
	if st.instance != nil {
		c.mu.Unlock()
		return nil, ErrInstanceExists
	}
	c.mu.Unlock()

	release, ok, err := c.deps.Locker.TryAcquire(ctx, "create:"+name, c.opts.CreateLockTTL)
	if err != nil {
		return nil, fmt.Errorf("falha na criação da instância: %w", err)
	}
	if !ok {
		return nil, ErrCreationInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			c.log.Warn("falha ao liberar lock de criação", zap.String("instance", name), zap.Error(err))
		}
	}()

	c.mu.Lock()
	st.creating = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		st.creating = false
		c.mu.Unlock()
	}()

	details, err := c.create(ctx, owner, name)
	if err != nil {
		c.log.Error("falha na criação da instância", zap.String("instance", name), zap.Error(err))
		c.setInstance(owner.ID, nil)
		if p := c.detachPairing(owner.ID); p != nil {
			p.stop()
		}
		if delErr := c.deps.Gateway.DeleteInstance(context.WithoutCancel(ctx), name); delErr != nil {
			c.log.Warn("falha ao remover instância após erro na criação",
				zap.String("instance", name),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("falha na criação da instância: %w", err)
	}
	return details, nil
}

func (c *Controller) create(ctx context.Context, owner Owner, name string) (*gateway.InstanceDetails, error) {
	res, err := c.deps.Gateway.CreateInstance(ctx, name)
	if err != nil {
		return nil, err
	}
	c.log.Info("instância criada no gateway", zap.String("instance", name), zap.String("user", owner.ID))

	if _, err := c.deps.Profiles.SetInstanceName(ctx, owner.ID, name); err != nil {
		return nil, err
	}

	payload := onboarding.Payload{
		Email:        owner.Email,
		ID:           owner.ID,
		InstanceName: name,
		InstanceID:   res.InstanceID,
	}
	if err := c.deps.Onboarding.Enqueue(ctx, payload); err != nil {
		c.log.Error("falha ao agendar webhook de onboarding", zap.String("instance", name), zap.Error(err))
	}

	if err := c.sleep(ctx, c.opts.SettleDelay); err != nil {
		return nil, err
	}

	details, err := c.Load(ctx, owner.ID, name)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, &gateway.NotFoundError{Name: name}
	}

	if _, err := c.Connect(ctx, owner.ID); err != nil {
		return nil, err
	}
	return details, nil
}

// AutoProvision dispara a criação em segundo plano no primeiro carregamento
// da sessão. Devolve true se a criação foi iniciada.
func (c *Controller) AutoProvision(ctx context.Context, owner Owner, sessionID string) bool {
	c.mu.Lock()
	st := c.stateLocked(owner.ID)
	busy := st.instance != nil || st.creating || st.provisioning
	c.mu.Unlock()
	if busy {
		return false
	}

	key := "provision:" + owner.ID + ":" + sessionID
	claimed, err := c.deps.Guard.Claim(ctx, key, c.opts.ProvisionTTL)
	if err != nil {
		c.log.Warn("falha ao reservar provisionamento automático", zap.String("user", owner.ID), zap.Error(err))
		return false
	}
	if !claimed {
		return false
	}

	c.mu.Lock()
	st.provisioning = true
	st.lastError = ""
	c.mu.Unlock()

	c.log.Info("provisionamento automático iniciado", zap.String("user", owner.ID))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		_, err := c.Create(c.root, owner)

		c.mu.Lock()
		st.provisioning = false
		if err != nil {
			st.lastError = err.Error()
		}
		c.mu.Unlock()

		if err != nil && !errors.Is(err, ErrCreationInProgress) {
			c.deps.Notifier.Error(owner.ID, err.Error())
		}
	}()
	return true
}

// Restart desconecta o WhatsApp e reabre o QR code. O status local vira
// close na hora, sem esperar o gateway refletir o logout.
func (c *Controller) Restart(ctx context.Context, userID string) (PairingState, error) {
	current := c.Current(userID)
	if current == nil {
		return PairingState{}, ErrNoInstance
	}

	if err := c.deps.Gateway.LogoutInstance(ctx, current.InstanceName); err != nil {
		return PairingState{}, err
	}
	c.deps.Notifier.Success(userID, msgDisconnected)

	c.mu.Lock()
	if st := c.users[userID]; st != nil && st.instance != nil {
		st.instance.Status = gateway.StatusClose
	}
	c.mu.Unlock()

	return c.Connect(ctx, userID)
}

// Shutdown encerra todos os fluxos de QR code e aguarda provisionamentos
// em andamento.
func (c *Controller) Shutdown() {
	c.cancelRoot()

	c.mu.Lock()
	var open []*pairing
	for _, st := range c.users {
		if st.pairing != nil {
			open = append(open, st.pairing)
		}
	}
	c.mu.Unlock()

	for _, p := range open {
		p.stop()
	}
	c.wg.Wait()
}
