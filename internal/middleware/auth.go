package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	appsession "github.com/bryanwahyu/trustlayer/internal/application/session"
	domsession "github.com/bryanwahyu/trustlayer/internal/domain/session"
)

type contextKey string

const DeviceKey contextKey = "device"

// TokenVerifier resolves a bearer token to a device id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// SessionResumer confirms the device still holds a live session.
type SessionResumer interface {
	Resume(ctx context.Context, deviceID string) (appsession.Grant, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return auth
}

// DeviceAuth requires a valid device token whose session is still live.
func DeviceAuth(tokens TokenVerifier, sessions SessionResumer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeUnauthorized(w, "missing Authorization header")
				return
			}
			device, err := tokens.Verify(token)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			if err := ValidateDeviceID(device); err != nil {
				writeUnauthorized(w, "invalid token subject")
				return
			}
			if _, err := sessions.Resume(r.Context(), device); err != nil {
				if errors.Is(err, domsession.ErrUnauthenticated) {
					writeUnauthorized(w, "session expired")
					return
				}
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), DeviceKey, device)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDeviceFromContext returns the authenticated device id, or "".
func GetDeviceFromContext(ctx context.Context) string {
	if device, ok := ctx.Value(DeviceKey).(string); ok {
		return device
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
