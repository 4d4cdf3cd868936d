package app

import (
	"context"
	"time"

	"github.com/Ratio1/hdfs_crud_go/internal/config"
	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/pkg/files"
	"github.com/Ratio1/hdfs_crud_go/pkg/hdfs_sdk"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

const (
	InitialContent = "Hello from hdfs-crud and HDFS!\n"
	AppendedLine   = "This line was appended by the update operation.\n"
)

// FilesFlow uploads the staging file, reads it back, appends a line,
// deletes it and lists the files directory. No step is fatal.
func FilesFlow(ctx context.Context, client *webhdfs.Client, cfg *config.Config, log logging.Logger) (*Summary, error) {
	log = logging.OrNop(log)
	r := newRunner("files", log)

	mode, err := files.ParseAppendMode(cfg.AppendMode)
	if err != nil {
		return r.summary, err
	}
	engine, err := files.New(client, cfg.FilesDir, cfg.StagingFile,
		files.WithLogger(log),
		files.WithAppendMode(mode),
		files.WithMaxSize(cfg.MaxFileSize),
		files.WithConflictRetries(uint64(cfg.ConflictRetries)),
	)
	if err != nil {
		return r.summary, err
	}
	defer func() {
		if err := engine.Cleanup(); err != nil {
			log.Warn(ctx, "staging cleanup failed", "err", err)
		}
	}()
	lister, err := newInspector(client, cfg, log)
	if err != nil {
		return r.summary, err
	}

	_ = r.run(ctx, StepEnsureNamespace, false, func(ctx context.Context) error {
		return hdfs_sdk.EnsureNamespace(ctx, client, cfg.FilesDir, log)
	})

	_ = r.run(ctx, StepCreate, false, func(ctx context.Context) error {
		return engine.Create(ctx, InitialContent)
	})

	_ = r.run(ctx, StepRead, false, func(ctx context.Context) error {
		content, err := engine.Read(ctx)
		if err != nil {
			return err
		}
		log.Info(ctx, "read file", "path", engine.RemotePath(), "content", content)
		return nil
	})

	_ = r.run(ctx, StepUpdate, false, func(ctx context.Context) error {
		content, err := engine.Update(ctx, AppendedLine)
		if err != nil {
			return err
		}
		log.Info(ctx, "updated file", "path", engine.RemotePath(), "content", content)
		return nil
	})

	_ = r.run(ctx, StepDelete, false, func(ctx context.Context) error {
		return engine.Delete(ctx)
	})

	_ = r.run(ctx, StepList, false, func(ctx context.Context) error {
		_, err := lister.List(ctx, cfg.FilesDir)
		return err
	})

	return r.summary, nil
}

// KeepAlive blocks until ctx is done, logging a heartbeat every interval.
// It keeps a container running for inspection after the flow finished.
func KeepAlive(ctx context.Context, interval time.Duration, log logging.Logger) error {
	log = logging.OrNop(log)
	if interval <= 0 {
		interval = time.Minute
	}
	log.Info(ctx, "flow complete, keeping process alive", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			log.Debug(ctx, "still alive")
		}
	}
}
