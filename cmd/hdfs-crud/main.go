// Command hdfs-crud runs CRUD flows against HDFS over WebHDFS.
//
// Usage:
//
//	hdfs-crud [flags]            run the records flow
//	hdfs-crud records [flags]    seed, read, update and delete users.json
//	hdfs-crud files [flags]      upload, read, append and delete example.txt, then idle
//	hdfs-crud ls <dir> [flags]   list a directory with sizes
//
// Settings come from defaults, a YAML/JSON file (--config or
// HDFS_CRUD_CONFIG), HDFS_* environment variables and flags, in that order.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr, os.LookupEnv)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
