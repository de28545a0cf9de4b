package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Status serves the health, live summary and metrics endpoints of one run.
// Publish is the only method the event loop calls; it never blocks.
type Status struct {
	runID  string
	start  time.Time
	last   atomic.Pointer[eventerr.RunReport]
	engine *gin.Engine
	logger zerolog.Logger
}

func NewStatus(runID string, logger zerolog.Logger) *Status {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)

	s := &Status{runID: runID, start: time.Now(), logger: logger}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), RequestMetricsMiddleware())
	r.GET("/health", s.health)
	r.GET("/summary", s.summary)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine = r
	return s
}

// Publish replaces the report served by /summary.
func (s *Status) Publish(r eventerr.RunReport) {
	s.last.Store(&r)
}

func (s *Status) Handler() http.Handler {
	return s.engine
}

func (s *Status) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"run_id":         s.runID,
		"uptime_seconds": time.Since(s.start).Seconds(),
	})
}

func (s *Status) summary(c *gin.Context) {
	r := s.last.Load()
	if r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"run_id": s.runID, "error": "no events processed yet"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// Serve listens on addr until ctx is done.
func (s *Status) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("status endpoint listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
