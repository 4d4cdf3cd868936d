package hdfs_sdk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Ratio1/hdfs_crud_go/internal/httpx"
	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

const (
	DefaultMaxWait   = 2 * time.Minute
	DefaultBaseDelay = 500 * time.Millisecond
	DefaultMaxDelay  = 10 * time.Second
)

// ConnectOptions tune the liveness check issued by Connect.
type ConnectOptions struct {
	// WarmUp is slept once before the first check.
	WarmUp time.Duration
	// MaxWait bounds the total time spent polling after the warm-up.
	MaxWait   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    logging.Logger
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.MaxDelay < o.BaseDelay {
		o.MaxDelay = o.BaseDelay
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// Connect blocks until the NameNode answers a status query on "/". Failed
// checks are retried with capped exponential backoff until MaxWait elapses,
// after which the returned error wraps webhdfs.ErrUnreachable and the last
// check failure. Permission errors are returned without retrying.
//
// Connect never writes to the cluster.
func Connect(ctx context.Context, client *webhdfs.Client, opts ConnectOptions) error {
	if client == nil {
		return errors.New("hdfs_sdk: client is nil")
	}
	opts = opts.withDefaults()
	log := opts.Logger.With("endpoint", client.Endpoint().String())

	if opts.WarmUp > 0 {
		log.Info(ctx, "waiting for namenode warm-up", "delay", opts.WarmUp.String())
		if err := sleep(ctx, opts.WarmUp); err != nil {
			return fmt.Errorf("hdfs_sdk: connect: %w", err)
		}
	}

	deadline := time.Now().Add(opts.MaxWait)
	b := retry.NewExponential(opts.BaseDelay)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithCappedDuration(opts.MaxDelay, b)
	b = retry.WithMaxDuration(opts.MaxWait, b)

	var (
		attempts int
		last     error
	)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		_, err := ping(ctx, client, deadline)
		if err == nil {
			return nil
		}
		last = err
		if errors.Is(err, webhdfs.ErrPermissionDenied) {
			return err
		}
		log.Warn(ctx, "namenode not reachable yet", "attempt", attempts, "err", err)
		return retry.RetryableError(err)
	})
	switch {
	case err == nil:
		log.Info(ctx, "connected to namenode", "attempts", attempts)
		return nil
	case errors.Is(err, webhdfs.ErrPermissionDenied):
		return fmt.Errorf("hdfs_sdk: connect: %w", err)
	case ctx.Err() != nil:
		return fmt.Errorf("hdfs_sdk: connect: %w", ctx.Err())
	}
	return fmt.Errorf("hdfs_sdk: %w after %d attempts: %w", webhdfs.ErrUnreachable, attempts, last)
}

// ping issues one status query on "/". Transport retries are disabled so
// the poll loop is the only backoff, and the query cannot outlive deadline.
func ping(ctx context.Context, client *webhdfs.Client, deadline time.Time) (*webhdfs.FileStatus, error) {
	ctx, cancel := context.WithDeadline(httpx.WithoutRetry(ctx), deadline)
	defer cancel()
	return client.Status(ctx, "/")
}

// Guidance lists the usual reasons a NameNode stays unreachable. The CLI
// prints it before exiting.
var Guidance = []string{
	"the NameNode may still be starting; increase the warm-up or max wait",
	"a network partition may separate this host from the NameNode",
	"the NameNode may have crashed; check its logs",
}

// EnsureNamespace makes sure dir exists. An existing directory is success.
func EnsureNamespace(ctx context.Context, client *webhdfs.Client, dir string, log logging.Logger) error {
	log = logging.OrNop(log)
	created, err := client.EnsureDir(ctx, dir)
	if err != nil {
		log.Warn(ctx, "could not ensure namespace", "dir", dir, "err", err)
		return fmt.Errorf("hdfs_sdk: ensure namespace %s: %w", dir, err)
	}
	if created {
		log.Info(ctx, "namespace created", "dir", dir)
	} else {
		log.Debug(ctx, "namespace already exists", "dir", dir)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
