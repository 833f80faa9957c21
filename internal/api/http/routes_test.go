package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AtharvDutare/Scan-Crop/internal/auth"
	"github.com/AtharvDutare/Scan-Crop/internal/catalog"
	"github.com/AtharvDutare/Scan-Crop/internal/result"
	"github.com/AtharvDutare/Scan-Crop/internal/scan"
	"github.com/AtharvDutare/Scan-Crop/internal/store"
	"github.com/AtharvDutare/Scan-Crop/internal/weather"
)

type stubProvider struct {
	report weather.Report
	err    error
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) Current(ctx context.Context, query string) (weather.Report, error) {
	if p.err != nil {
		return weather.Report{}, p.err
	}
	r := p.report
	r.LocationName = query
	return r, nil
}

// gatedProvider holds every call until release is closed, then echoes the
// query it was given.
type gatedProvider struct {
	release chan struct{}

	mu   sync.Mutex
	seen []string
}

func (p *gatedProvider) Name() string { return "gated" }

func (p *gatedProvider) Current(ctx context.Context, query string) (weather.Report, error) {
	select {
	case <-p.release:
	case <-ctx.Done():
		return weather.Report{}, ctx.Err()
	}

	p.mu.Lock()
	p.seen = append(p.seen, strings.Clone(query))
	p.mu.Unlock()
	return weather.Report{LocationName: query}, nil
}

type capturingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *capturingMailer) SendVerification(ctx context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *capturingMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type testServer struct {
	app    *fiber.App
	svc    Services
	mailer *capturingMailer
}

func newTestServer(t *testing.T, provider weather.Provider) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	cat, err := catalog.Load(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mailer := &capturingMailer{codes: make(map[string]string)}
	svc := Services{
		Weather: weather.NewService(&logger, provider),
		Auth: auth.NewService(&logger, store.NewMemoryStore(), mailer, auth.Config{
			SessionTTL:      time.Hour,
			VerificationTTL: time.Hour,
			BcryptCost:      bcrypt.MinCost,
		}),
		Scanner: scan.NewScanner(&logger, cat, 20*time.Millisecond),
		Catalog: cat,
		Logger:  &logger,
	}
	t.Cleanup(svc.Weather.Close)
	t.Cleanup(svc.Scanner.Close)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(&logger)})
	app.Use(RequestLogger(&logger, nil))
	RegisterRoutes(app, svc)

	return &testServer{app: app, svc: svc, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, target string, body any, token string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, 2000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type errorBody struct {
	Error   bool     `json:"error"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func TestWeatherIsUnsetBeforeLookup(t *testing.T) {
	s := newTestServer(t, stubProvider{})

	code, raw := s.do(t, http.MethodGet, "/api/v1/weather", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"unset"}`, string(raw))
}

func TestLookupRejectsEmptyQuery(t *testing.T) {
	s := newTestServer(t, stubProvider{})

	code, raw := s.do(t, http.MethodPost, "/api/v1/weather/lookup?q=%20%20", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)

	body := decode[errorBody](t, raw)
	assert.True(t, body.Error)
	assert.Equal(t, weather.ErrEmptyQuery.Error(), body.Message)

	_, ok := s.svc.Weather.State()
	assert.False(t, ok, "a rejected lookup must not publish")
}

func TestLookupResolvesToSuccess(t *testing.T) {
	s := newTestServer(t, stubProvider{report: weather.Report{TemperatureC: 21.5, HumidityPct: 40}})

	code, raw := s.do(t, http.MethodPost, "/api/v1/weather/lookup?q=London", nil, "")
	assert.Equal(t, http.StatusAccepted, code)
	status := decode[result.View[weather.Report]](t, raw).Status
	assert.Contains(t, []string{"loading", "success"}, status)

	assert.Eventually(t, func() bool {
		st, ok := s.svc.Weather.State()
		return ok && st.Kind() == result.KindSuccess
	}, time.Second, 5*time.Millisecond)

	code, raw = s.do(t, http.MethodGet, "/api/v1/weather", nil, "")
	require.Equal(t, http.StatusOK, code)
	view := decode[result.View[weather.Report]](t, raw)
	assert.Equal(t, "success", view.Status)
	require.NotNil(t, view.Data)
	assert.Equal(t, "London", view.Data.LocationName)
	assert.Equal(t, 21.5, view.Data.TemperatureC)
	assert.Equal(t, 40, view.Data.HumidityPct)
}

func TestLookupKeepsQueryAcrossLaterRequests(t *testing.T) {
	provider := &gatedProvider{release: make(chan struct{})}
	s := newTestServer(t, provider)

	code, _ := s.do(t, http.MethodPost, "/api/v1/weather/lookup?q=paris", nil, "")
	require.Equal(t, http.StatusAccepted, code)

	// Later requests reuse the request buffers of the first one.
	code, _ = s.do(t, http.MethodGet, "/api/v1/alerts?limit=1", nil, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/market/posts?q=soybeans", nil, "")
	require.Equal(t, http.StatusOK, code)

	close(provider.release)
	assert.Eventually(t, func() bool {
		st, ok := s.svc.Weather.State()
		return ok && st.Kind() == result.KindSuccess
	}, time.Second, 5*time.Millisecond)

	provider.mu.Lock()
	assert.Equal(t, []string{"paris"}, provider.seen)
	provider.mu.Unlock()

	_, raw := s.do(t, http.MethodGet, "/api/v1/weather", nil, "")
	view := decode[result.View[weather.Report]](t, raw)
	require.NotNil(t, view.Data)
	assert.Equal(t, "paris", view.Data.LocationName)
}

func TestLookupFailureShowsFixedMessage(t *testing.T) {
	s := newTestServer(t, stubProvider{err: errors.New("unexpected status code: 403")})

	code, _ := s.do(t, http.MethodPost, "/api/v1/weather/lookup?q=Nowhere", nil, "")
	require.Equal(t, http.StatusAccepted, code)

	assert.Eventually(t, func() bool {
		st, ok := s.svc.Weather.State()
		return ok && st.Kind() == result.KindError
	}, time.Second, 5*time.Millisecond)

	_, raw := s.do(t, http.MethodGet, "/api/v1/weather", nil, "")
	assert.JSONEq(t, `{"status":"error","message":"Failed to Load Data"}`, string(raw))
}

func TestWeatherStreamStartsWithCurrentState(t *testing.T) {
	s := newTestServer(t, stubProvider{})
	done := make(chan struct{})
	time.AfterFunc(100*time.Millisecond, func() { close(done) })

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(s.svc.Logger)})
	svc := s.svc
	svc.Done = done
	RegisterRoutes(app, svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/weather/stream", nil), 2000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "event: state\ndata: {\"status\":\"unset\"}\n\n"), string(raw))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, stubProvider{})
	creds := credentials{Email: "farmer@example.com", Password: "secret1"}

	code, raw := s.do(t, http.MethodPost, "/api/v1/auth/signup", creds, "")
	require.Equal(t, http.StatusCreated, code, string(raw))
	grant := decode[auth.Grant](t, raw)
	require.NotEmpty(t, grant.Token)
	assert.NotContains(t, string(raw), "passwordHash")

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/signup", creds, "")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, raw = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, grant.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, creds.Email, decode[auth.User](t, raw).Email)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/signin", credentials{Email: creds.Email, Password: "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/verification", nil, grant.Token)
	require.Equal(t, http.StatusAccepted, code)
	verification := s.mailer.code(creds.Email)
	require.NotEmpty(t, verification)

	code, raw = s.do(t, http.MethodPost, "/api/v1/auth/verify?code="+verification, nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[auth.User](t, raw).EmailVerified)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/verify?code="+verification, nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/signout", nil, grant.Token)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, grant.Token)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSignUpValidation(t *testing.T) {
	s := newTestServer(t, stubProvider{})

	code, raw := s.do(t, http.MethodPost, "/api/v1/auth/signup", credentials{Email: "nope", Password: "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, auth.ErrInvalidEmail.Error(), decode[errorBody](t, raw).Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/signup", credentials{Email: "a@example.com", Password: "123"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuthEventsStreamOnlyOwnEvents(t *testing.T) {
	s := newTestServer(t, stubProvider{})
	mine := signUp(t, s, "mine@example.com")
	theirs := signUp(t, s, "theirs@example.com")

	done := make(chan struct{})
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(s.svc.Logger)})
	svc := s.svc
	svc.Done = done
	RegisterRoutes(app, svc)

	go func() {
		time.Sleep(100 * time.Millisecond)
		ctx := context.Background()
		_ = s.svc.Auth.SendEmailVerification(ctx, theirs)
		_ = s.svc.Auth.SendEmailVerification(ctx, mine)
		time.Sleep(200 * time.Millisecond)
		close(done)
	}()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/events", nil)
	req.Header.Set("Authorization", "Bearer "+mine)
	resp, err := app.Test(req, 3000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "event: auth\n")
	assert.Contains(t, body, `"kind":"verification_sent"`)
	assert.Contains(t, body, "mine@example.com")
	assert.NotContains(t, body, "theirs@example.com")
}

func TestAuthEventsRequireSession(t *testing.T) {
	s := newTestServer(t, stubProvider{})

	code, _ := s.do(t, http.MethodGet, "/api/v1/auth/events", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func signUp(t *testing.T, s *testServer, email string) string {
	t.Helper()
	code, raw := s.do(t, http.MethodPost, "/api/v1/auth/signup", credentials{Email: email, Password: "secret1"}, "")
	require.Equal(t, http.StatusCreated, code, string(raw))
	return decode[auth.Grant](t, raw).Token
}

func TestMarketPosts(t *testing.T) {
	s := newTestServer(t, stubProvider{})

	code, raw := s.do(t, http.MethodGet, "/api/v1/market/posts?crop=corn", nil, "")
	require.Equal(t, http.StatusOK, code)
	posts := decode[[]catalog.MarketPost](t, raw)
	require.Len(t, posts, 1)
	assert.Equal(t, "Yellow Corn", posts[0].CropName)

	code, raw = s.do(t, http.MethodGet, "/api/v1/market/posts?crop=All&q=wntr", nil, "")
	require.Equal(t, http.StatusOK, code)
	posts = decode[[]catalog.MarketPost](t, raw)
	require.Len(t, posts, 1)
	assert.Equal(t, "Winter Wheat", posts[0].CropName)

	code, _ = s.do(t, http.MethodGet, "/api/v1/market/posts?crop=barley", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreatePost(t *testing.T) {
	s := newTestServer(t, stubProvider{})
	post := catalog.NewPost{
		CropName:    "Sweet Corn",
		Description: "Picked this morning",
		Quantity:    300,
		Price:       "$5.00/bushel",
		SellerName:  "someone else",
	}

	code, _ := s.do(t, http.MethodPost, "/api/v1/market/posts", post, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	token := signUp(t, s, "seller@example.com")

	code, raw := s.do(t, http.MethodPost, "/api/v1/market/posts", post, token)
	require.Equal(t, http.StatusCreated, code, string(raw))
	created := decode[catalog.MarketPost](t, raw)
	assert.Equal(t, "seller@example.com", created.SellerName)
	assert.Equal(t, catalog.CropCorn, created.CropType)

	post.Quantity = 0
	code, raw = s.do(t, http.MethodPost, "/api/v1/market/posts", post, token)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, decode[errorBody](t, raw).Errors)
}

func TestScanLifecycle(t *testing.T) {
	s := newTestServer(t, stubProvider{})

	code, raw := s.do(t, http.MethodGet, "/api/v1/scans/current", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"unset","running":false,"progress":0}`, string(raw))

	code, _ = s.do(t, http.MethodPost, "/api/v1/scans?field=North%20Plot", nil, "")
	require.Equal(t, http.StatusAccepted, code)

	code, raw = s.do(t, http.MethodPost, "/api/v1/scans?field=South%20Plot", nil, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, scan.ErrScanInProgress.Error(), decode[errorBody](t, raw).Message)

	assert.Eventually(t, func() bool { return !s.svc.Scanner.Running() }, 3*time.Second, 10*time.Millisecond)

	_, raw = s.do(t, http.MethodGet, "/api/v1/scans", nil, "")
	scans := decode[[]catalog.Scan](t, raw)
	require.Len(t, scans, 4)
	assert.Equal(t, "North Plot", scans[0].Name)

	code, raw = s.do(t, http.MethodGet, "/api/v1/scans/"+scans[0].ID, nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "North Plot", decode[catalog.Scan](t, raw).Name)
}

func TestScanByID(t *testing.T) {
	s := newTestServer(t, stubProvider{})

	code, raw := s.do(t, http.MethodGet, "/api/v1/scans/2", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Maria Garcia", decode[catalog.Scan](t, raw).Name)

	code, raw = s.do(t, http.MethodGet, "/api/v1/scans/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, catalog.ErrScanNotFound.Error(), decode[errorBody](t, raw).Message)
}

func TestHomeAndAlerts(t *testing.T) {
	s := newTestServer(t, stubProvider{})

	code, raw := s.do(t, http.MethodGet, "/api/v1/home/recent-scans", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]catalog.RecentScan](t, raw), 3)

	code, raw = s.do(t, http.MethodGet, "/api/v1/alerts?limit=2", nil, "")
	require.Equal(t, http.StatusOK, code)
	alerts := decode[[]catalog.Alert](t, raw)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Weather Warning", alerts[0].Title)

	code, _ = s.do(t, http.MethodGet, "/api/v1/alerts?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{weather.ErrEmptyQuery, fiber.StatusBadRequest},
		{auth.ErrSessionExpired, fiber.StatusUnauthorized},
		{auth.ErrVerificationExpired, fiber.StatusGone},
		{scan.ErrScanInProgress, fiber.StatusConflict},
		{catalog.ErrScanNotFound, fiber.StatusNotFound},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
