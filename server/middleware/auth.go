package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultline/auth"
	"github.com/kbukum/faultline/auth/authctx"
	"github.com/kbukum/faultline/errors"
)

// APIKeyHeader carries an API key as an alternative to a bearer token.
const APIKeyHeader = "X-API-Key"

// AccessTokenParam carries a credential in the query string, for
// EventSource clients that cannot set headers.
const AccessTokenParam = "access_token"

// Auth rejects requests without a credential v accepts with 401. The
// accepted principal is stored in the request context through authctx.
func Auth(v auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := credential(c.Request)
		if token == "" {
			abortUnauthorized(c, "authentication required")
			return
		}
		principal, err := v.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid credentials")
			return
		}
		c.Request = c.Request.WithContext(authctx.Set(c.Request.Context(), principal))
		c.Next()
	}
}

// Require rejects principals whose scopes do not grant permission with 403.
// Requests that carry no principal pass, so routes stay open when Auth is
// not installed.
func Require(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := authctx.Get[*auth.Principal](c.Request.Context())
		if ok && !p.Can(permission) {
			ce := errors.New(errors.KindPermission, "missing permission "+permission)
			c.AbortWithStatusJSON(http.StatusForbidden, ce.ToResponse())
			return
		}
		c.Next()
	}
}

func credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k
	}
	return r.URL.Query().Get(AccessTokenParam)
}

func abortUnauthorized(c *gin.Context, msg string) {
	ce := errors.New(errors.KindPermission, msg)
	c.Header("WWW-Authenticate", `Bearer realm="faultline"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, ce.ToResponse())
}
