// Package httpapi is the minimal JSON command surface proving the
// Decision Maker and read models are reachable over HTTP. Grounded on
// server/gin.go (http.Server wrapping a *gin.Engine, context-driven
// graceful shutdown) and server/gin_engine.go (a bare gin.New()
// engine, middleware left to the caller). Deliberately thin: no auth,
// no pagination, no full CRUD surface — just enough to drive AddItem/
// RemoveItem/ClearCart/SubmitCart through decision.Make and read the
// cart_items projection back.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/decision"
	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// Server wraps http.Server around a gin engine built from the cart
// command/read endpoints.
type Server struct {
	server *http.Server
	logger *logging.Logger
}

// New builds a Server listening on addr, backed by mk for commands
// and db for read-model queries.
func New(addr string, mk *decision.Maker, db *database.DB, logger *logging.Logger) *Server {
	logger = logger.With("httpapi")
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	h := &handlers{mk: mk, db: db, logger: logger}
	registerRoutes(engine, h)

	return &Server{
		server: &http.Server{Addr: addr, Handler: engine},
		logger: logger,
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Stop shuts the server down, bounded by ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "elapsed", time.Since(start))
	}
}

// writeError maps the cart engine's error taxonomy to an HTTP status
// per xerrors.Error.HTTPStatus, falling back to 500 for anything else.
func writeError(c *gin.Context, err error) {
	var xerr *xerrors.Error
	if errors.As(err, &xerr) {
		c.JSON(xerr.HTTPStatus(), gin.H{"error": xerr.Message, "kind": xerr.Kind.String()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
