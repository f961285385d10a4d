package gate

import (
	"net/http"
)

// HandleCheck is the per-request decision endpoint the edge queries
// (nginx auth_request style) while the maintenance rule block is installed
// GET /gate/check
//
// The original request path is taken from X-Forwarded-Uri; the bypass
// cookie is forwarded by the edge. Responds 204 to let traffic through and
// 503 to send the caller to the holding page.
func (c *Checker) HandleCheck(operatorSession func(r *http.Request) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.Header.Get("X-Forwarded-Uri")
		if path == "" {
			path = r.URL.Path
		}

		req := Request{
			Path:            path,
			OperatorSession: operatorSession != nil && operatorSession(r),
		}
		if cookie, err := r.Cookie(BypassCookie); err == nil {
			req.BypassSessionID = cookie.Value
		}

		ok, err := c.ShouldBypass(r.Context(), req)
		if err != nil {
			c.logger.Error("gate check failed", "error", err, "path", path)
			ok = false
		}
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
