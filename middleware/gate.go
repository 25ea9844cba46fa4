package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/hearthchat/kinauth"
)

// BagFunc extracts the caller's session bag from a request. The shell decides
// what backs it (typically a signed cookie decoded earlier in the chain).
type BagFunc func(*http.Request) kinauth.SessionBag

type userContextKey struct{}

// UserFromContext returns the user a guard resolved for this request.
func UserFromContext(ctx context.Context) (*kinauth.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*kinauth.User)
	return u, ok
}

// Gate builds the authorization guards for one Service.
type Gate struct {
	service     *kinauth.Service
	bag         BagFunc
	loginPath   string
	apiPrefixes []string
}

// GateOption customizes a Gate.
type GateOption func(*Gate)

// WithLoginPath overrides the browser redirect target (default "/login").
func WithLoginPath(path string) GateOption {
	return func(g *Gate) { g.loginPath = path }
}

// WithAPIPrefixes overrides the path prefixes treated as programmatic
// regardless of headers (default "/conversations" and "/chat").
func WithAPIPrefixes(prefixes ...string) GateOption {
	return func(g *Gate) { g.apiPrefixes = prefixes }
}

// NewGate wires the guards. svc and bag are programming-error-level required
// and panic when nil, the same as registering a nil handler.
func NewGate(svc *kinauth.Service, bag BagFunc, opts ...GateOption) *Gate {
	if svc == nil {
		panic("middleware: nil Service")
	}
	if bag == nil {
		panic("middleware: nil BagFunc")
	}
	g := &Gate{
		service:     svc,
		bag:         bag,
		loginPath:   "/login",
		apiPrefixes: []string{"/conversations", "/chat"},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireUser admits any authenticated account. Unauthenticated programmatic
// callers get 401 JSON; browsers are redirected to the login page. Either
// way the stale bag has already been cleared by the Service.
func (g *Gate) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.service.CurrentUser(r.Context(), g.bag(r))
		if err != nil {
			if g.programmatic(r) {
				writeJSONError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			http.Redirect(w, r, g.loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RequireRole admits accounts holding one of roles. The role set is a wiring
// constant, so an empty or unknown set panics at registration time instead of
// failing open at request time. Missing sessions redirect to login; a live
// session with the wrong role gets 403 JSON naming the required roles.
func (g *Gate) RequireRole(roles ...kinauth.Role) func(http.Handler) http.Handler {
	if len(roles) == 0 {
		panic("middleware: RequireRole with no roles")
	}
	for _, role := range roles {
		if !role.Valid() {
			panic(fmt.Sprintf("middleware: RequireRole with unknown role %q", role))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := g.service.CurrentUser(r.Context(), g.bag(r))
			if err != nil {
				http.Redirect(w, r, g.loginPath, http.StatusFound)
				return
			}

			if !roleAllowed(user.Role, roles) {
				writeJSONError(w, http.StatusForbidden,
					fmt.Sprintf("Insufficient permissions. Required role(s): %s", joinRoles(roles)))
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// programmatic classifies the caller: fetch/XHR clients declare themselves
// via header or JSON body, and the API routes are programmatic by path alone.
func (g *Gate) programmatic(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			if mt == "application/json" || strings.HasSuffix(mt, "+json") {
				return true
			}
		}
	}
	for _, prefix := range g.apiPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

func withUser(ctx context.Context, u *kinauth.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

func roleAllowed(have kinauth.Role, allowed []kinauth.Role) bool {
	for _, role := range allowed {
		if have == role {
			return true
		}
	}
	return false
}

func joinRoles(roles []kinauth.Role) string {
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = string(role)
	}
	return strings.Join(parts, ", ")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
