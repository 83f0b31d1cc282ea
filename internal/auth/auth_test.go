package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testEnv(t *testing.T) *Authenv {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &Authenv{TokenKey: []byte("test-key"), APIKeyHash: string(hash)}
}

func TestIssueAndVerify(t *testing.T) {
	env := testEnv(t)
	tok, err := env.Issue("sales")
	require.NoError(t, err)
	sub, err := env.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "sales", sub)

	other := &Authenv{TokenKey: []byte("other-key")}
	_, err = other.Verify(tok.Token)
	require.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	env := testEnv(t)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env.now = func() time.Time { return issued }
	tok, err := env.Issue("sales")
	require.NoError(t, err)

	env.now = func() time.Time { return issued.Add(TokenTTL + time.Minute) }
	_, err = env.Verify(tok.Token)
	require.Error(t, err)
}

func TestTokenHandler(t *testing.T) {
	env := testEnv(t)

	rec := httptest.NewRecorder()
	env.TokenHandler(rec, httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`{"apiKey":"s3cret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)

	rec = httptest.NewRecorder()
	env.TokenHandler(rec, httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`{"apiKey":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	env.TokenHandler(rec, httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`nope`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMiddleware(t *testing.T) {
	env := testEnv(t)
	var seen string
	h := env.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Subject(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/configs/a", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := env.Issue("sales")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/configs/a", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sales", seen)
}

func TestRateLimiterPerAddress(t *testing.T) {
	l := NewIPRateLimiter(0, 2)
	h := l.LimitMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	codes := func(addr string, n int) []int {
		var out []int
		for i := 0; i < n; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/lookup/reels/CPR-040", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			out = append(out, rec.Code)
		}
		return out
	}
	assert.Equal(t, []int{200, 200, 429}, codes("10.0.0.1:5000", 3))
	// a new port on the same host shares the bucket
	assert.Equal(t, []int{429}, codes("10.0.0.1:5001", 1))
	assert.Equal(t, []int{200}, codes("10.0.0.2:5000", 1))
}

func TestHashKey(t *testing.T) {
	h, err := HashKey("s3cret")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret")))
}
