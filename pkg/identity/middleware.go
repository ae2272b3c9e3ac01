package identity

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/oceanobs/seaportal/pkg/httpx"
	"github.com/oceanobs/seaportal/pkg/store"
)

type contextKey struct{}

// From returns the principal the middleware attached to the request
// context, if any.
func From(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// auditLocation is where request audit records live.
const auditLocation = "api"

// AuditRecord is one logged API call.
type AuditRecord struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Method   string    `json:"method"`
	Path     string    `json:"path"`
	Time     time.Time `json:"time"`
}

// Middleware authenticates requests and records an audit trail.
type Middleware struct {
	docs store.DocumentStore
}

// NewMiddleware creates the middleware; docs may be nil to skip auditing.
func NewMiddleware(docs store.DocumentStore) *Middleware {
	return &Middleware{docs: docs}
}

// RequireToken rejects requests without a decodable, unexpired token and
// attaches the principal to the context.
func (mw *Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := FromRequest(r)
		if err != nil {
			if errors.Is(err, ErrNoToken) {
				httpx.RespondUnauthorized(w, "missing bearer token")
			} else {
				httpx.RespondUnauthorized(w, err.Error())
			}
			return
		}
		mw.audit(r, p)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, p)))
	})
}

// RequireAdmin additionally rejects principals outside the admin group.
func (mw *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return mw.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := From(r.Context())
		if !p.Admin() {
			httpx.RespondForbidden(w, "admin group membership required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (mw *Middleware) audit(r *http.Request, p Principal) {
	if mw.docs == nil {
		return
	}
	record := AuditRecord{
		Username: p.Username,
		Email:    p.Email,
		Method:   r.Method,
		Path:     r.URL.Path,
		Time:     time.Now().UTC(),
	}
	if _, err := store.PutJSONDocument(r.Context(), mw.docs, auditLocation, "", record); err != nil {
		log.Printf("Failed to record audit entry: %v", err)
	}
}
