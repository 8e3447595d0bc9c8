// Package identity resolve quem é o chamador antes do rate limit.
//
// Ele não autentica no sentido de barrar requisições: token ausente ou
// inválido apenas deixa a requisição anônima, e o rate limit passa a usar o IP.
// Quem decide acesso é a aplicação upstream.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

type ctxKey struct{}

// WithUserID devolve um ctx que carrega o id do usuário.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID retorna o id do usuário em ctx, ou "" para anônimos.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FromRequest é atalho para UserID(r.Context()).
func FromRequest(r *http.Request) string {
	return UserID(r.Context())
}

type Options struct {
	// JWTSecret verifica tokens HS256 emitidos pelo serviço de auth.
	JWTSecret string
	// TrustedHeader, se definido, é lido quando não há bearer token. Só deve ser
	// usado atrás de um proxy interno que sobrescreve o header.
	TrustedHeader string
	Logger        *slog.Logger
	Now           func() time.Time
}

type Authenticator struct {
	secret        []byte
	trustedHeader string
	logger        *slog.Logger
	now           func() time.Time
}

func New(opts Options) *Authenticator {
	a := &Authenticator{
		secret:        []byte(opts.JWTSecret),
		trustedHeader: strings.TrimSpace(opts.TrustedHeader),
		logger:        opts.Logger,
		now:           opts.Now,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Resolve extrai o user id de r.
func (a *Authenticator) Resolve(r *http.Request) (string, error) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		if a.trustedHeader != "" {
			if id := strings.TrimSpace(r.Header.Get(a.trustedHeader)); id != "" {
				return id, nil
			}
		}
		return "", ErrNoToken
	}
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: no verification secret configured", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}

// Middleware coloca o user id no contexto quando ele puder ser resolvido.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Resolve(r)
		switch {
		case err == nil:
			r = r.WithContext(WithUserID(r.Context(), id))
		case errors.Is(err, ErrNoToken):
		default:
			a.logger.Debug("bearer token rejected, treating request as anonymous", "error", err, "path", r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
