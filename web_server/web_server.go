package web_server

import (
	"context"
	nativeerrors "errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/logging"
)

const (
	// DefaultServeAddr is the default address to serve on.
	DefaultServeAddr = ":8080"
	// DefaultWriteTimeout is the default timeout for writing.
	DefaultWriteTimeout = 15 * time.Second
	// DefaultReadTimeout is the default timeout for reading.
	DefaultReadTimeout = 15 * time.Second
	// shutdownTimeout is the timeout for graceful shutdown.
	shutdownTimeout = 15 * time.Second
)

// WebServer serves the webhook, status and websocket endpoints.
type WebServer struct {
	config     Config
	httpServer *http.Server
	router     *mux.Router
	running    bool
}

// Config is the configuration that is used in order to create and run a web
// server.
type Config struct {
	// ServeAddr is the address for the web server to listen on.
	ServeAddr string
	// WriteTimeout is the duration to wait until write fails with a timeout.
	WriteTimeout time.Duration
	// ReadTimeout is the duration to wait until read fails with a timeout.
	ReadTimeout time.Duration
}

// NewWebServer creates a new WebServer and sets up initial stuff. It expects
// the passed Config to be filled correctly. If you need default values, these
// are exported as DefaultServeAddr, DefaultWriteTimeout and
// DefaultReadTimeout. Run it with WebServer.Run and do not forget to call
// WebServer.PopulateRoutes before.
func NewWebServer(config Config) (*WebServer, error) {
	if config.ServeAddr == "" {
		return nil, nativeerrors.New("no addr provided in config")
	}
	server := WebServer{
		config: config,
		router: mux.NewRouter(),
	}
	// Enable logging.
	server.router.Use(loggingMiddleware)
	// Disable caching.
	server.router.Use(noCacheMiddleware)
	// Setup not found handler.
	server.router.NotFoundHandler = noCacheMiddleware(loggingMiddleware(http.NotFoundHandler()))
	// Enable CORS.
	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}).Handler(server.router)
	server.httpServer = &http.Server{
		Handler:      handler,
		Addr:         config.ServeAddr,
		WriteTimeout: config.WriteTimeout,
		ReadTimeout:  config.ReadTimeout,
	}
	return &server, nil
}

// PopulateRoutes registers all routes with the given Handlers.
func (server *WebServer) PopulateRoutes(handlers *Handlers, ctx context.Context) {
	handlers.populateRoutes(server.router, ctx)
}

// Run starts the web server and blocks until the given context.Context is
// done.
func (server *WebServer) Run(ctx context.Context) error {
	// Check if already running.
	if server.running {
		return errors.NewInternalError("web server already running", nil)
	}
	server.running = true
	serveErr := make(chan error, 1)
	go func() {
		logging.WebServerLogger.Info("web server running at " + server.config.ServeAddr)
		serveErr <- server.httpServer.ListenAndServe()
	}()
	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return errors.NewCommunicationError(err, "listen and serve", errors.Details{
				"serve_addr": server.config.ServeAddr,
			})
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown web server", nil)
	}
	return nil
}
