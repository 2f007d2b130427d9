package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-apime/zapdash/internal/api/middleware"
	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/notify"
	"github.com/open-apime/zapdash/internal/service/admin"
	"github.com/open-apime/zapdash/internal/service/auth"
	"github.com/open-apime/zapdash/internal/service/campaign"
	"github.com/open-apime/zapdash/internal/service/instance"
	"github.com/open-apime/zapdash/internal/service/profile"
	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testToken = "tok-u1"

var testSession = auth.Session{UserID: "u1", Email: "ana@example.com", Role: model.RoleUser, SessionID: "s1"}

type fakeParser struct{}

func (fakeParser) ParseToken(token string) (auth.Session, error) {
	if token != testToken {
		return auth.Session{}, auth.ErrInvalidToken
	}
	return testSession, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// newRouter monta /api com o handler sob Auth, como no servidor real.
func newRouter(register func(public, protected *gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.Auth(fakeParser{}))
	register(api, protected)
	return r
}

func call(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validação disparo", &campaign.ValidationError{Field: "message", Message: "x"}, http.StatusBadRequest},
		{"validação cadastro", &auth.ValidationError{Field: "email", Message: "x"}, http.StatusBadRequest},
		{"validação admin", &admin.ValidationError{Field: "role", Message: "x"}, http.StatusBadRequest},
		{"instância inexistente no gateway", &gateway.NotFoundError{Name: "i"}, http.StatusNotFound},
		{"registro ausente", storage.Wrap("profiles.get", storage.ErrNotFound), http.StatusNotFound},
		{"sem instância", instance.ErrNoInstance, http.StatusNotFound},
		{"sem qr", instance.ErrNoPairing, http.StatusNotFound},
		{"disparo em andamento", campaign.ErrAlreadyRunning, http.StatusConflict},
		{"nada a cancelar", campaign.ErrNotRunning, http.StatusConflict},
		{"desconectada", campaign.ErrInstanceNotConnected, http.StatusConflict},
		{"criando", instance.ErrCreationInProgress, http.StatusConflict},
		{"já existe", instance.ErrInstanceExists, http.StatusConflict},
		{"e-mail em uso", auth.ErrEmailTaken, http.StatusConflict},
		{"credenciais", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"gateway", fmt.Errorf("falha na criação da instância: %w", &gateway.Error{StatusCode: 500, Message: "x"}), http.StatusBadGateway},
		{"sem código", gateway.ErrNoCode, http.StatusBadGateway},
		{"banco", storage.Wrap("profiles.get", errors.New("conexão recusada")), http.StatusInternalServerError},
		{"qualquer", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteError_HidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(c, storage.Wrap("profiles.get", errors.New("senha do banco vazou")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "senha do banco")
	assert.Contains(t, w.Body.String(), msgInternal)
	require.Len(t, c.Errors, 1)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	r := newRouter(func(public, _ *gin.RouterGroup) { NewHealthHandler(fakePinger{}).Register(public) })

	for _, path := range []string{"/api/", "/api/healthz"} {
		w, _ := call(t, r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	}

	w, _ := call(t, r, http.MethodGet, "/api/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)
}

func TestHealthHandler_NotReady(t *testing.T) {
	r := newRouter(func(public, _ *gin.RouterGroup) {
		NewHealthHandler(fakePinger{err: errors.New("redis: connection refused")}).Register(public)
	})

	w, _ := call(t, r, http.MethodGet, "/api/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis: connection refused")

	w, _ = call(t, r, http.MethodGet, "/api/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- auth ---

type fakeAuth struct {
	registered []string
}

func (f *fakeAuth) Register(_ context.Context, email, password, confirm string) (model.User, error) {
	if password != confirm {
		return model.User{}, &auth.ValidationError{Field: "confirm", Message: "as senhas não coincidem."}
	}
	if email == "usado@example.com" {
		return model.User{}, auth.ErrEmailTaken
	}
	f.registered = append(f.registered, email)
	return model.User{ID: "novo", Email: email}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (string, auth.Session, error) {
	if email != testSession.Email || password != "segredo" {
		return "", auth.Session{}, auth.ErrInvalidCredentials
	}
	return testToken, testSession, nil
}

func (f *fakeAuth) TTL() time.Duration { return time.Hour }

func (f *fakeAuth) ParseToken(token string) (auth.Session, error) {
	return fakeParser{}.ParseToken(token)
}

type fakePairingCloser struct {
	closed []string
}

func (f *fakePairingCloser) ClosePairing(userID string) { f.closed = append(f.closed, userID) }

func TestAuthHandler(t *testing.T) {
	svc := &fakeAuth{}
	pairings := &fakePairingCloser{}
	r := newRouter(func(public, _ *gin.RouterGroup) { NewAuthHandler(svc, pairings, false).Register(public) })

	t.Run("cadastro", func(t *testing.T) {
		w, env := call(t, r, http.MethodPost, "/api/auth/register", `{"email":"b@example.com","password":"123456","confirmPassword":"123456"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		assert.Equal(t, []string{"b@example.com"}, svc.registered)
	})

	t.Run("senhas diferentes", func(t *testing.T) {
		w, env := call(t, r, http.MethodPost, "/api/auth/register", `{"email":"b@example.com","password":"123456","confirmPassword":"654321"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "validation_error", env.Error.Type)
		assert.Equal(t, "as senhas não coincidem.", env.Error.Message)
	})

	t.Run("e-mail em uso", func(t *testing.T) {
		w, _ := call(t, r, http.MethodPost, "/api/auth/register", `{"email":"usado@example.com","password":"123456","confirmPassword":"123456"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("login", func(t *testing.T) {
		w, env := call(t, r, http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"segredo"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var got loginResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, testToken, got.Token)
		assert.Equal(t, model.RoleUser, got.Role)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.CookieName, cookies[0].Name)
		assert.Equal(t, testToken, cookies[0].Value)
	})

	t.Run("login inválido", func(t *testing.T) {
		w, env := call(t, r, http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"errada"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", env.Error.Type)
	})

	t.Run("login sem corpo", func(t *testing.T) {
		w, _ := call(t, r, http.MethodPost, "/api/auth/login", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("logout", func(t *testing.T) {
		w, _ := call(t, r, http.MethodPost, "/api/auth/logout", "")
		assert.Equal(t, http.StatusOK, w.Code)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "", cookies[0].Value)
		assert.Less(t, cookies[0].MaxAge, 0)
		assert.Equal(t, []string{"u1"}, pairings.closed)
	})

	t.Run("logout com token inválido", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: "expirado"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"u1"}, pairings.closed)
	})
}

func TestAuthHandler_LogoutWithoutPairings(t *testing.T) {
	r := newRouter(func(public, _ *gin.RouterGroup) { NewAuthHandler(&fakeAuth{}, nil, false).Register(public) })
	w, _ := call(t, r, http.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- me ---

type fakeBootstrap struct {
	err error
}

func (f fakeBootstrap) Bootstrap(_ context.Context, s auth.Session) (profile.Dashboard, error) {
	if f.err != nil {
		return profile.Dashboard{}, f.err
	}
	return profile.Dashboard{Email: s.Email, Profile: model.Profile{ID: s.UserID, Role: s.Role}}, nil
}

func TestMeHandler(t *testing.T) {
	feed := notify.NewFeed(notify.DefaultCapacity)
	feed.Success("u1", "Instância conectada com sucesso!")

	r := newRouter(func(_, protected *gin.RouterGroup) {
		NewMeHandler(fakeBootstrap{}, feed).Register(protected)
	})

	w, env := call(t, r, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	var dash profile.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Equal(t, "ana@example.com", dash.Email)
	assert.Equal(t, "u1", dash.Profile.ID)

	w, env = call(t, r, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []notify.Notification
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, notify.KindSuccess, got[0].Kind)

	_, env = call(t, r, http.MethodGet, "/api/notifications", "")
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestMeHandler_RequiresToken(t *testing.T) {
	r := newRouter(func(_, protected *gin.RouterGroup) {
		NewMeHandler(fakeBootstrap{}, notify.NewFeed(1)).Register(protected)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeHandler_ProfileMissing(t *testing.T) {
	r := newRouter(func(_, protected *gin.RouterGroup) {
		NewMeHandler(fakeBootstrap{err: storage.Wrap("profiles.get", storage.ErrNotFound)}, notify.NewFeed(1)).Register(protected)
	})
	w, _ := call(t, r, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- instance ---

type fakeInstances struct {
	createErr  error
	connectErr error
	pairing    instance.PairingState
	png        []byte
	pngSize    int
	closed     bool
	owner      instance.Owner

	createCtxErr      error
	createHasDeadline bool
}

func (f *fakeInstances) View(string) instance.View {
	return instance.View{Pairing: f.pairing}
}

func (f *fakeInstances) Create(ctx context.Context, owner instance.Owner) (*gateway.InstanceDetails, error) {
	f.owner = owner
	f.createCtxErr = ctx.Err()
	_, f.createHasDeadline = ctx.Deadline()
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &gateway.InstanceDetails{InstanceName: "inst_u1"}, nil
}

func (f *fakeInstances) Connect(context.Context, string) (instance.PairingState, error) {
	if f.connectErr != nil {
		return instance.PairingState{}, f.connectErr
	}
	f.pairing = instance.PairingState{Open: true, Code: "2@x", Countdown: 45}
	return f.pairing, nil
}

func (f *fakeInstances) Pairing(string) instance.PairingState { return f.pairing }

func (f *fakeInstances) QRCodePNG(_ string, size int) ([]byte, error) {
	f.pngSize = size
	if f.png == nil {
		return nil, instance.ErrNoPairing
	}
	return f.png, nil
}

func (f *fakeInstances) ClosePairing(string) {
	f.closed = true
	f.pairing = instance.PairingState{}
}

func (f *fakeInstances) Restart(ctx context.Context, userID string) (instance.PairingState, error) {
	return f.Connect(ctx, userID)
}

func TestInstanceHandler(t *testing.T) {
	svc := &fakeInstances{}
	r := newRouter(func(_, protected *gin.RouterGroup) { NewInstanceHandler(svc).Register(protected) })

	w, _ := call(t, r, http.MethodGet, "/api/instance", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodPost, "/api/instance", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, instance.Owner{ID: "u1", Email: "ana@example.com"}, svc.owner)

	w, env := call(t, r, http.MethodPost, "/api/instance/connect", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state instance.PairingState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.True(t, state.Open)
	assert.Equal(t, 45, state.Countdown)

	w, _ = call(t, r, http.MethodGet, "/api/instance/qr", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodDelete, "/api/instance/qr", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.closed)

	w, _ = call(t, r, http.MethodPost, "/api/instance/restart", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInstanceHandler_CreateOutlivesRequest(t *testing.T) {
	svc := &fakeInstances{}
	r := newRouter(func(_, protected *gin.RouterGroup) { NewInstanceHandler(svc).Register(protected) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/instance", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NoError(t, svc.createCtxErr)
	assert.True(t, svc.createHasDeadline)
}

func TestInstanceHandler_Errors(t *testing.T) {
	svc := &fakeInstances{createErr: instance.ErrCreationInProgress, connectErr: instance.ErrNoInstance}
	r := newRouter(func(_, protected *gin.RouterGroup) { NewInstanceHandler(svc).Register(protected) })

	w, env := call(t, r, http.MethodPost, "/api/instance", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", env.Error.Type)

	w, _ = call(t, r, http.MethodPost, "/api/instance/connect", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.connectErr = &gateway.Error{StatusCode: 500, Message: "Internal Server Error"}
	w, env = call(t, r, http.MethodPost, "/api/instance/restart", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Internal Server Error", env.Error.Message)
}

func TestInstanceHandler_QRPNG(t *testing.T) {
	svc := &fakeInstances{}
	r := newRouter(func(_, protected *gin.RouterGroup) { NewInstanceHandler(svc).Register(protected) })

	w, _ := call(t, r, http.MethodGet, "/api/instance/qr.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.png = []byte("\x89PNG")
	w, _ = call(t, r, http.MethodGet, "/api/instance/qr.png", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, defaultQRSize, svc.pngSize)

	w, _ = call(t, r, http.MethodGet, "/api/instance/qr.png?size=512", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 512, svc.pngSize)

	w, _ = call(t, r, http.MethodGet, "/api/instance/qr.png?size=10", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- campaign ---

type fakeCampaign struct {
	snap     campaign.Snapshot
	startErr error
	running  bool
}

func (f *fakeCampaign) Snapshot(string) campaign.Snapshot { return f.snap }

func (f *fakeCampaign) Start(_ context.Context, _ string, in campaign.Input) (campaign.Snapshot, error) {
	if f.startErr != nil {
		return campaign.Snapshot{}, f.startErr
	}
	if strings.TrimSpace(in.Message) == "" {
		return campaign.Snapshot{}, &campaign.ValidationError{Field: "message", Message: "a mensagem não pode ficar vazia"}
	}
	f.running = true
	f.snap = campaign.Snapshot{Running: true, Input: in, Jobs: []campaign.Job{{Number: in.Numbers, Status: campaign.StatusPending}}}
	return f.snap, nil
}

func (f *fakeCampaign) Cancel(string) error {
	if !f.running {
		return campaign.ErrNotRunning
	}
	f.running = false
	f.snap.Running = false
	return nil
}

func (f *fakeCampaign) Reset(string) error {
	f.snap = campaign.Snapshot{Jobs: []campaign.Job{}}
	return nil
}

func TestCampaignHandler(t *testing.T) {
	svc := &fakeCampaign{snap: campaign.Snapshot{Jobs: []campaign.Job{}}}
	r := newRouter(func(_, protected *gin.RouterGroup) { NewCampaignHandler(svc).Register(protected) })

	w, env := call(t, r, http.MethodGet, "/api/campaign", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"running":false,"jobs":[],"input":{"numbers":"","message":"","interval":0}}`, string(env.Data))

	w, _ = call(t, r, http.MethodPost, "/api/campaign/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = call(t, r, http.MethodPost, "/api/campaign", `{"numbers":"11999999999","message":"olá","interval":2}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var snap campaign.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Running)
	assert.Equal(t, 2, snap.Input.Interval)

	w, _ = call(t, r, http.MethodPost, "/api/campaign/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodDelete, "/api/campaign", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCampaignHandler_Errors(t *testing.T) {
	svc := &fakeCampaign{}
	r := newRouter(func(_, protected *gin.RouterGroup) { NewCampaignHandler(svc).Register(protected) })

	w, env := call(t, r, http.MethodPost, "/api/campaign", `{"numbers":"1","message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "a mensagem não pode ficar vazia", env.Error.Message)

	w, _ = call(t, r, http.MethodPost, "/api/campaign", `{"numbers":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.startErr = campaign.ErrInstanceNotConnected
	w, _ = call(t, r, http.MethodPost, "/api/campaign", `{"numbers":"1","message":"oi"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- admin ---

type fakeAdmin struct {
	calls     []string
	deleteErr error
}

func (f *fakeAdmin) overview() admin.Overview {
	return admin.Overview{Instances: []gateway.InstanceDetails{}, Users: []model.UserProfile{}}
}

func (f *fakeAdmin) Overview(context.Context) (admin.Overview, error) {
	f.calls = append(f.calls, "overview")
	return f.overview(), nil
}

func (f *fakeAdmin) RestartInstance(_ context.Context, name string) (admin.Overview, error) {
	f.calls = append(f.calls, "restart:"+name)
	return f.overview(), nil
}

func (f *fakeAdmin) DeleteInstance(_ context.Context, name string) (admin.Overview, error) {
	f.calls = append(f.calls, "delete:"+name)
	if f.deleteErr != nil {
		return admin.Overview{}, f.deleteErr
	}
	return f.overview(), nil
}

func (f *fakeAdmin) UpdateRole(_ context.Context, userID string, role model.Role) (admin.Overview, error) {
	if !role.Valid() {
		return admin.Overview{}, &admin.ValidationError{Field: "role", Message: "papel inválido: use admin ou user"}
	}
	f.calls = append(f.calls, "role:"+userID+":"+string(role))
	return f.overview(), nil
}

func (f *fakeAdmin) DeleteUser(_ context.Context, userID string) (admin.Overview, error) {
	f.calls = append(f.calls, "user:"+userID)
	return f.overview(), nil
}

func TestAdminHandler(t *testing.T) {
	svc := &fakeAdmin{}
	r := newRouter(func(_, protected *gin.RouterGroup) {
		NewAdminHandler(svc).Register(protected.Group("/admin"))
	})

	w, _ := call(t, r, http.MethodGet, "/api/admin/overview", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodPost, "/api/admin/instances/inst_a/restart", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodDelete, "/api/admin/instances/inst_a", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodPatch, "/api/admin/users/u9/role", `{"role":"admin"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodDelete, "/api/admin/users/u9", "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"overview", "restart:inst_a", "delete:inst_a", "role:u9:admin", "user:u9"}, svc.calls)
}

func TestAdminHandler_Errors(t *testing.T) {
	svc := &fakeAdmin{deleteErr: fmt.Errorf("instância deletada da API, mas falhou ao atualizar o perfil: %w",
		storage.Wrap("profiles.admin_clear_instance_name", errors.New("timeout")))}
	r := newRouter(func(_, protected *gin.RouterGroup) {
		NewAdminHandler(svc).Register(protected.Group("/admin"))
	})

	w, _ := call(t, r, http.MethodPatch, "/api/admin/users/u9/role", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := call(t, r, http.MethodPatch, "/api/admin/users/u9/role", `{"role":"root"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "papel inválido: use admin ou user", env.Error.Message)

	w, _ = call(t, r, http.MethodDelete, "/api/admin/instances/inst_a", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
