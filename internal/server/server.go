package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/fairwaylab/swinggate/internal/csrf"
	"github.com/fairwaylab/swinggate/internal/ratelimit"
)

// Config holds server settings, read from the environment (with an
// optional .env file).
type Config struct {
	Port        string
	DataDir     string
	StorageType string
	Bucket      string
	Region      string
	Production  bool

	GlobalLimit  int
	GlobalWindow time.Duration
	UploadLimit  int
	UploadWindow time.Duration
}

// LoadConfig reads configuration from the environment.
func LoadConfig() Config {
	// Load .env file (optional)
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using defaults/env vars")
	}

	cfg := Config{
		Port:         os.Getenv("PORT"),
		DataDir:      os.Getenv("DATA_DIR"),
		StorageType:  os.Getenv("STORAGE_TYPE"),
		Bucket:       os.Getenv("AWS_BUCKET"),
		Region:       os.Getenv("AWS_REGION"),
		Production:   os.Getenv("ENV") == "production",
		GlobalLimit:  envInt("RATE_LIMIT_MAX", 100),
		GlobalWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		UploadLimit:  envInt("UPLOAD_LIMIT_MAX", 10),
		UploadWindow: time.Duration(envInt("UPLOAD_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "server_data"
	}
	return cfg
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		slog.Warn("ignoring invalid env value", "key", key, "value", v)
	}
	return fallback
}

// Server represents the HTTP server and its shared state.
type Server struct {
	Port          string
	Storage       *Storage
	Handler       *Handler
	Server        *http.Server
	GlobalLimiter *ratelimit.Limiter
	UploadLimiter *ratelimit.Limiter

	sweepCancel context.CancelFunc
}

// NewServer initializes storage, limiters and routes.
func NewServer(port string, cfg Config) (*Server, error) {
	var store *Storage
	var err error

	if cfg.StorageType == "s3" {
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("AWS_BUCKET required for s3 storage")
		}
		slog.Info("Using S3 Storage", "bucket", cfg.Bucket)
		blobStore, blobErr := NewS3BlobStore(context.Background(), cfg.Bucket, cfg.Region)
		if blobErr != nil {
			return nil, fmt.Errorf("failed to create S3 blob store: %w", blobErr)
		}
		store, err = NewStorage(cfg.DataDir, blobStore)
	} else {
		slog.Info("Using Local Storage", "dir", cfg.DataDir)
		store, err = NewStorage(cfg.DataDir, NewLocalBlobStore(cfg.DataDir))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	global := ratelimit.New("global", cfg.GlobalLimit, cfg.GlobalWindow)
	upload := ratelimit.New("upload", cfg.UploadLimit, cfg.UploadWindow)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	global.StartSweeper(sweepCtx, time.Minute)
	upload.StartSweeper(sweepCtx, time.Minute)

	h := NewHandler(store, csrf.NewService(cfg.Production))

	if port == "" {
		port = ":8082"
	}
	if port[0] != ':' {
		port = ":" + port
	}

	return &Server{
		Port:          port,
		Storage:       store,
		Handler:       h,
		Server:        &http.Server{Addr: port, Handler: Routes(h, global, upload)},
		GlobalLimiter: global,
		UploadLimiter: upload,
		sweepCancel:   sweepCancel,
	}, nil
}

// Routes wires the middleware chain: recover backstop, global rate limit
// on everything, CSRF on mutating endpoints, and the stricter upload
// limiter on clip uploads.
func Routes(h *Handler, global, upload *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(Recover)
	r.Use(RateLimit(global))

	r.Get("/", h.Index)
	r.Get("/ping", h.Ping)
	r.Get("/csrf", h.Token)
	r.Get("/clips", h.ListClips)
	r.Get("/clips/{id}", h.DownloadClip)

	r.Group(func(r chi.Router) {
		r.Use(RequireCSRF)
		r.With(RateLimit(upload)).Post("/clips", h.UploadClip)
		r.Delete("/clips/{id}", h.DeleteClip)
	})

	return r
}

// Start starts the server.
func (s *Server) Start() error {
	slog.Info("Server starting", "addr", s.Server.Addr)
	return s.Server.ListenAndServe()
}

// Shutdown stops the sweepers and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sweepCancel()
	return s.Server.Shutdown(ctx)
}
