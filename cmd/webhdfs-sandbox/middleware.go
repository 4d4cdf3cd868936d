package main

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/internal/webhdfsapi"
)

type failConfig struct {
	rate float64
	code int
}

type middlewareConfig struct {
	latency    time.Duration
	fail       failConfig
	readyAt    time.Time
	logger     logging.Logger
	randomizer func() float64
	now        func() time.Time
}

func newRandomizer() func() float64 {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}

// withMiddleware tags every request with an id, then applies the cold-start
// window, latency and failure injection before handing over to next.
func withMiddleware(cfg middlewareConfig, next http.Handler) http.Handler {
	logger := logging.OrNop(cfg.logger)
	now := cfg.now
	if now == nil {
		now = time.Now
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		logger.Info(r.Context(), "exec request",
			"id", id, "method", r.Method, "path", r.URL.Path, "op", r.URL.Query().Get("op"))

		if now().Before(cfg.readyAt) {
			writeException(w, http.StatusServiceUnavailable, "RetriableException", "NameNode is still starting")
			return
		}
		if cfg.latency > 0 {
			time.Sleep(cfg.latency)
		}
		if cfg.fail.rate > 0 && cfg.randomizer != nil && cfg.randomizer() < cfg.fail.rate {
			status := cfg.fail.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			writeException(w, status, "IOException", "failure injected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeException(w http.ResponseWriter, status int, exception, message string) {
	body, err := webhdfsapi.Encode(webhdfsapi.KeyRemoteException, webhdfsapi.RemoteException{
		Exception: exception,
		Message:   message,
	})
	if err != nil {
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "rate":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return failConfig{}, err
			}
			if f < 0 || f > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v outside [0,1]", f)
			}
			cfg.rate = f
		case "code":
			code, err := strconv.Atoi(val)
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = code
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}
