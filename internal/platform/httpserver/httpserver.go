package httpserver

import (
	"net/http"
	"time"
)

// New builds the gatehouse HTTP server. Check-in requests are small and
// short-lived, so the timeouts stay tight; handlers carry their own 30s
// timeout middleware for the slow paths.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
