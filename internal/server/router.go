// Package server exposes the storage operations over HTTP for the
// calling forms: multipart upload, delete by URL, and presigned-URL
// generation. The server never touches the domain database; callers
// persist the returned {url, fileName} pair on their own records and
// must not do so when success is false.
package server

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fincontrol/attachd/internal/storage"
)

// ObjectStore is the slice of the storage client the handlers use.
type ObjectStore interface {
	Upload(ctx context.Context, payload []byte, contentType, folder, filename string) (*storage.UploadResult, error)
	Delete(ctx context.Context, fileURL string) error
	Presign(key string, expiresIn int) (string, error)
}

// New builds the gin engine with all routes and middleware attached.
// presignExpiry is the lifetime, in seconds, of generated signed URLs.
func New(store ObjectStore, presignExpiry int, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(log))

	// Same open CORS policy the browser-facing forms expect.
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
	r.Use(cors.New(corsCfg))

	h := &handlers{store: store, presignExpiry: presignExpiry, log: log}

	api := r.Group("/api/v1")
	{
		api.POST("/upload", h.upload)
		api.POST("/delete", h.delete)
		api.POST("/signed-url", h.signedURL)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

const requestIDHeader = "X-Request-Id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("requestID", c.GetString("requestID")).
			Msg("request")
	}
}
