// Package auth guards configuration writes with bearer tokens issued against a
// bcrypt-hashed API key, and rate limits the API per client address.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

type contextKey string

const subjectKey contextKey = "subject"

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 30 * 24 * time.Hour

type Authenv struct {
	TokenKey   []byte
	APIKeyHash string
	Log        zerolog.Logger
	now        func() time.Time
}

type TokenRequest struct {
	APIKey string `json:"apiKey"`
	Client string `json:"client"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (env *Authenv) clock() time.Time {
	if env.now != nil {
		return env.now()
	}
	return time.Now()
}

// HashKey returns the bcrypt hash to configure as API_KEY_HASH.
func HashKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(bytes), err
}

// Issue signs a token for the client.
func (env *Authenv) Issue(client string) (TokenResponse, error) {
	if len(env.TokenKey) == 0 {
		return TokenResponse{}, errors.New("token key is not configured")
	}
	exp := env.clock().Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   client,
		IssuedAt:  jwt.NewNumericDate(env.clock()),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString(env.TokenKey)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{Token: s, ExpiresAt: exp.UTC()}, nil
}

// Verify parses a token and returns its subject.
func (env *Authenv) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return env.TokenKey, nil
	}, jwt.WithTimeFunc(env.clock))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenSignatureInvalid
	}
	return claims.Subject, nil
}

// TokenHandler exchanges the API key for a bearer token.
func (env *Authenv) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.APIKey == "" {
		http.Error(w, "API key required", http.StatusBadRequest)
		return
	}
	if env.APIKeyHash == "" {
		http.Error(w, "Token issue is disabled", http.StatusServiceUnavailable)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(env.APIKeyHash), []byte(req.APIKey)); err != nil {
		http.Error(w, "Invalid API key", http.StatusUnauthorized)
		return
	}
	client := strings.TrimSpace(req.Client)
	if client == "" {
		client = "api"
	}
	resp, err := env.Issue(client)
	if err != nil {
		env.Log.Error().Err(err).Msg("issue token")
		http.Error(w, "Error issuing token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Middleware admits requests that carry a valid bearer token.
func (env *Authenv) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(env.TokenKey) == 0 {
			http.Error(w, "Writes are disabled", http.StatusServiceUnavailable)
			return
		}
		h := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || tokenString == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		sub, err := env.Verify(tokenString)
		if err != nil {
			env.Log.Debug().Err(err).Msg("token rejected")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), subjectKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Subject returns the token subject stored by Middleware.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey).(string)
	return s
}

type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

// LimitMiddleware rejects clients that exceed their rate.
func (i *IPRateLimiter) LimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !i.getLimiter(ip).Allow() {
			http.Error(w, "Too Many Requests. Try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
