package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	TenantKey contextKey = "tenant"
)

// KeySet holds tenant API keys. Replace swaps the whole set atomically so
// a config reload never exposes a half-updated map.
type KeySet struct {
	byTenant atomic.Pointer[map[string]string]
}

// NewKeySet builds a KeySet from tenant → key.
func NewKeySet(tenantKeys map[string]string) *KeySet {
	ks := &KeySet{}
	ks.Replace(tenantKeys)
	return ks
}

// Replace installs a new tenant → key map.
func (ks *KeySet) Replace(tenantKeys map[string]string) {
	cp := make(map[string]string, len(tenantKeys))
	for t, k := range tenantKeys {
		cp[t] = k
	}
	ks.byTenant.Store(&cp)
}

// Lookup returns the tenant owning apiKey.
func (ks *KeySet) Lookup(apiKey string) (string, bool) {
	m := ks.byTenant.Load()
	if m == nil {
		return "", false
	}
	// compare against every key so timing does not leak which one matched
	var tenant string
	for t, key := range *m {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			tenant = t
		}
	}
	return tenant, tenant != ""
}

// Len is the number of configured tenants.
func (ks *KeySet) Len() int {
	if m := ks.byTenant.Load(); m != nil {
		return len(*m)
	}
	return 0
}

// APIKeyAuth validates API key from Authorization header
func APIKeyAuth(keys *KeySet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				auth = r.Header.Get("X-API-Key")
			}
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			tenant, ok := keys.Lookup(apiKey)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), TenantKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenantFromContext extracts tenant from context
func GetTenantFromContext(ctx context.Context) string {
	if tenant, ok := ctx.Value(TenantKey).(string); ok {
		return tenant
	}
	return ""
}

// RequireTenant rejects requests whose {tenant} URL parameter is malformed
// or differs from the authenticated tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlTenant := chi.URLParam(r, "tenant")
		if err := ValidateTenantID(urlTenant); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if urlTenant != GetTenantFromContext(r.Context()) {
			writeError(w, http.StatusForbidden, "api key does not belong to tenant "+urlTenant)
			return
		}
		next.ServeHTTP(w, r)
	})
}
