package report

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func NewRouter(logReport *LogReport) *gin.Engine {
	var r = gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/log", func(c *gin.Context) {
		c.JSON(http.StatusOK, logReport.Encodable())
	})
	r.GET("/log/latest", func(c *gin.Context) {
		var entry, ok = logReport.Latest()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no log entries yet"})
			return
		}
		c.JSON(http.StatusOK, jsonValues(entry))
	})
	return r
}

// Serve runs handler on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *logrus.Logger) error {
	var srv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	var errc = make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("status server started")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	var shutdownCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err = srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	err = <-errc
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
