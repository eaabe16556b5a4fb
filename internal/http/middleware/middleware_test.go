package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/http/response"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/accounts-service/internal/service"
	"github.com/stretchr/testify/require"
)

// capHandler — тестовый slog.Handler, который:
//   - аккумулирует базовые attrs, приходящие через Logger.With(...);
//   - запоминает attrs последней записи;
//   - не делает реального I/O.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	h.count++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) > 0 {
		h.base = append(h.base, attrs...)
	}
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestChain_Order(t *testing.T) {
	order := []string{}
	m1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m1-end")
		})
	}
	m2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-begin")
			next.ServeHTTP(w, r)
			order = append(order, "m2-end")
		})
	}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Chain(final, m1, m2).ServeHTTP(rr, makeReq("/chain"))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenHeader, seenCtx string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get(response.HeaderRequestID)
		seenCtx = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	Chain(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get(response.HeaderRequestID)
	require.Len(t, respID, 32) // 16 байт → 32 hex-символа
	require.Equal(t, respID, seenHeader)
	require.Equal(t, respID, seenCtx)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"
	var seenCtx string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtx = RequestIDFromContext(r.Context())
	})

	rr := httptest.NewRecorder()
	req := makeReq("/rid2")
	req.Header.Set(response.HeaderRequestID, given)
	Chain(h, RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get(response.HeaderRequestID))
	require.Equal(t, given, seenCtx)
}

func TestLogging_RequestScopedLogger(t *testing.T) {
	ch := &capHandler{}
	l := slog.New(ch)

	var fromCtx *slog.Logger
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = log.From(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})

	req := makeReq("/logme")
	req.Header.Set(response.HeaderRequestID, "rid-7")
	rr := httptest.NewRecorder()
	Chain(h, RequestID(), Logging(l)).ServeHTTP(rr, req)

	require.NotNil(t, fromCtx)
	require.Equal(t, "http", ch.lastMsg)
	require.Equal(t, slog.LevelInfo, ch.lastLvl)
	require.Equal(t, "rid-7", ch.attrs["request_id"])
	require.EqualValues(t, http.StatusCreated, ch.attrs["status"])
	require.EqualValues(t, 5, ch.attrs["bytes"])
	require.Equal(t, "/logme", ch.attrs["path"])
}

func TestRecover_WritesEnvelope(t *testing.T) {
	ch := &capHandler{}
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		Chain(h, RequestID(), Logging(slog.New(ch)), Recover()).ServeHTTP(rr, makeReq("/panic"))
	})

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	env := decodeEnvelope(t, rr)
	require.False(t, env.Success)
	require.Equal(t, "internal error", env.Message)
	require.NotEmpty(t, env.RequestID)
	require.NotContains(t, rr.Body.String(), "boom")

	// Итоговая запись логирования видит 500.
	require.Equal(t, slog.LevelError, ch.lastLvl)
}

func TestTimeout_SetsDeadline_WhenAbsent(t *testing.T) {
	var hasDeadline bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	Chain(h, Timeout(50*time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))
	require.True(t, hasDeadline)
}

func TestTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	parentDL := time.Now().Add(time.Hour)
	var childDL time.Time
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	ctx, cancel := context.WithDeadline(context.Background(), parentDL)
	defer cancel()

	Chain(h, Timeout(time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/t").WithContext(ctx))
	require.True(t, parentDL.Equal(childDL))
}

func TestTimeout_NonPositiveIsNoop(t *testing.T) {
	var hasDeadline bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	Chain(h, Timeout(0)).ServeHTTP(httptest.NewRecorder(), makeReq("/t"))
	require.False(t, hasDeadline)
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())

	var pattern string
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
		pattern = chi.RouteContext(r.Context()).RoutePattern()
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, makeReq("/users/42"))

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "/users/{id}", pattern)
}

type stubVerifier struct {
	token   string
	account *models.PublicAccount
	err     error
}

func (s *stubVerifier) VerifyIdentity(_ context.Context, token string) (*models.PublicAccount, error) {
	s.token = token
	return s.account, s.err
}

func TestAuthenticate_CookieThenBearer(t *testing.T) {
	acc := &models.PublicAccount{ID: uuid.New(), Username: "alice"}
	v := &stubVerifier{account: acc}

	var got *models.PublicAccount
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AccountFromContext(r.Context())
	})
	chain := Chain(h, Authenticate(v))

	// Cookie приоритетнее заголовка.
	req := makeReq("/me")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "cookie-token", v.token)
	require.Equal(t, acc, got)

	req = makeReq("/me")
	req.Header.Set("Authorization", "bearer header-token")
	chain.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "header-token", v.token)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	v := &stubVerifier{}
	called := false
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	req := makeReq("/me")
	req.Header.Set("Authorization", "Basic abc")
	rr := httptest.NewRecorder()
	Chain(h, Authenticate(v)).ServeHTTP(rr, req)

	require.False(t, called)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, v.token)
	require.Equal(t, "unauthorized request", decodeEnvelope(t, rr).Message)
}

func TestAuthenticate_VerifierError(t *testing.T) {
	v := &stubVerifier{err: errors.Join(service.ErrTokenExpired)}
	called := false
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	req := makeReq("/me")
	req.Header.Set("Authorization", "Bearer expired")
	rr := httptest.NewRecorder()
	Chain(h, Authenticate(v)).ServeHTTP(rr, req)

	require.False(t, called)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "token expired", decodeEnvelope(t, rr).Message)
}

func TestAccountFromContext_Empty(t *testing.T) {
	_, ok := AccountFromContext(context.Background())
	require.False(t, ok)

	_, ok = AccountFromContext(WithAccount(context.Background(), nil))
	require.False(t, ok)
}
