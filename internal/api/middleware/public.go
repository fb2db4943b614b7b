package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

const contentTypeProblemJSON = "application/problem+json"

// publicEndpoints holds paths that bypass rate limiting: probes and the
// metrics scrape.
var (
	publicEndpoints   = map[string]bool{} //nolint: gochecknoglobals
	publicEndpointsMu sync.RWMutex        //nolint: gochecknoglobals
)

// RegisterPublicEndpoint exempts endpoint from rate limiting. Call it during
// route setup only.
//
//	middleware.RegisterPublicEndpoint("/ping")
func RegisterPublicEndpoint(endpoint string) {
	publicEndpointsMu.Lock()
	defer publicEndpointsMu.Unlock()

	publicEndpoints[endpoint] = true
}

// IsPublicEndpoint reports whether path was registered with
// RegisterPublicEndpoint.
func IsPublicEndpoint(path string) bool {
	publicEndpointsMu.RLock()
	defer publicEndpointsMu.RUnlock()

	return publicEndpoints[path]
}

// writeRFC7807Error writes a problem+json body. Middleware cannot import the
// api package, so this mirrors api.ProblemDetail.
func writeRFC7807Error(
	w http.ResponseWriter,
	r *http.Request,
	statusCode int,
	detail,
	correlationID string,
) error {
	problem := map[string]interface{}{
		"type":          fmt.Sprintf("https://salesdash.io/problems/%d", statusCode),
		"title":         http.StatusText(statusCode),
		"status":        statusCode,
		"detail":        detail,
		"instance":      r.URL.Path,
		"correlationId": correlationID,
	}

	w.Header().Set("Content-Type", contentTypeProblemJSON)
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(problem)
}
