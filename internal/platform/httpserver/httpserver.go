package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts sized for consultation
// traffic, which may carry audio sample uploads in request bodies.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
