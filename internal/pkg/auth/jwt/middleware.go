package jwt

import (
	"context"
	"net/http"
	"strings"

	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/logx"
	"quicktalk/internal/pkg/resp"
)

type contextKey string

// ContextAuthPayloadKey stores the verified *Payload in the request context.
const ContextAuthPayloadKey contextKey = "auth_payload"

// BearerToken returns the token of an "Authorization: Bearer <token>" header, or "".
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireIdentity answers 401 to requests without a valid bearer token and injects the
// Payload into the context otherwise.
func RequireIdentity(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)
			if tokenString == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Rejected request with invalid or expired JWT", "error", err.Error(), "path", r.URL.Path)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), payload)))
		})
	}
}

// WithPayload returns a copy of ctx carrying payload.
func WithPayload(ctx context.Context, payload *Payload) context.Context {
	return context.WithValue(ctx, ContextAuthPayloadKey, payload)
}

// GetPayloadFromContext returns the verified Payload, or nil on routes without RequireIdentity.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)
	if !ok {
		return nil
	}
	return payload
}

// IdentityFromContext returns the authenticated user id, or "".
func IdentityFromContext(r *http.Request) string {
	if p := GetPayloadFromContext(r); p != nil {
		return p.UserID
	}
	return ""
}
