// Command webhdfs-sandbox serves an in-memory HDFS namespace over the WebHDFS
// REST API, playing both NameNode and DataNode. It can simulate a slow cold
// start, per-request latency and random failures.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Ratio1/hdfs_crud_go/internal/devseed"
	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/pkg/hdfs_sdk"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs/mock"
)

func main() {
	addr := flag.String("addr", ":9870", "listen address")
	seed := flag.String("seed", "", "path to a YAML or JSON seed file")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	startupDelay := flag.Duration("startup-delay", 0, "answer 503 RetriableException until this much time has passed")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, "info")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	fs := mock.New()
	if *seed != "" {
		entries, err := devseed.Load(*seed)
		if err != nil {
			log.Fatalf("load seed: %v", err)
		}
		if err := fs.Seed(entries); err != nil {
			log.Fatalf("apply seed: %v", err)
		}
	}

	failCfg, err := parseFailConfig(*fail)
	if err != nil {
		log.Fatalf("parse fail flag: %v", err)
	}

	handler := withMiddleware(middlewareConfig{
		latency:    *latency,
		fail:       failCfg,
		readyAt:    time.Now().Add(*startupDelay),
		logger:     logger,
		randomizer: newRandomizer(),
	}, mock.Handler(fs))

	server := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "webhdfs-sandbox listening", "addr", *addr, "startup_delay", startupDelay.String())
	fmt.Println()
	fmt.Printf("export %s=%s\n", hdfs_sdk.EnvMode, hdfs_sdk.ModeHTTP)
	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Printf("export %s=http://%s\n", hdfs_sdk.EnvNameNodeURL, host)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}
