package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig is satisfied by api.CORSConfig.
type CORSConfig interface {
	GetAllowedOrigins() []string
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
	GetExposedHeaders() []string
	GetMaxAge() int
}

// CORS lets a dashboard served from another origin call the API. Exposed
// headers make the export filename (Content-Disposition) and the correlation ID
// readable from browser scripts. OPTIONS requests are answered with 204 and
// never reach the routes.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	origins := config.GetAllowedOrigins()
	wildcard := len(origins) == 1 && origins[0] == "*"

	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	static := map[string]string{
		"Access-Control-Allow-Methods":  strings.Join(config.GetAllowedMethods(), ", "),
		"Access-Control-Allow-Headers":  strings.Join(config.GetAllowedHeaders(), ", "),
		"Access-Control-Expose-Headers": strings.Join(config.GetExposedHeaders(), ", "),
	}

	if maxAge := config.GetMaxAge(); maxAge > 0 {
		static["Access-Control-Max-Age"] = strconv.Itoa(maxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			switch origin := r.Header.Get("Origin"); {
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}

			for name, value := range static {
				if value != "" {
					h.Set(name, value)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
