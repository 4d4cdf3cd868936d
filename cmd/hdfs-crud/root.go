package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ratio1/hdfs_crud_go/internal/app"
	"github.com/Ratio1/hdfs_crud_go/internal/config"
	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/pkg/hdfs_sdk"
	"github.com/Ratio1/hdfs_crud_go/pkg/inspect"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

type cli struct {
	stdout io.Writer
	stderr io.Writer
	lookup func(string) (string, bool)

	flags     *config.Flags
	keepAlive bool

	cfg *config.Config
	log logging.Logger
}

func newRootCmd(stdout, stderr io.Writer, lookup func(string) (string, bool)) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, lookup: lookup}

	root := &cobra.Command{
		Use:   "hdfs-crud",
		Short: "Record and file CRUD on top of HDFS WebHDFS",
		Long: `hdfs-crud waits for the NameNode to answer, then runs a CRUD flow.

Without a subcommand it runs the records flow: seed users.json, read it,
update Ali's city, delete Ali and list the directory.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
		RunE:              c.runRecords,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	c.flags = config.BindFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "records",
		Short: "Create, read, update and delete records in a JSON document",
		Args:  cobra.NoArgs,
		RunE:  c.runRecords,
	})

	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "Upload, read, append to and delete a single file",
		Args:  cobra.NoArgs,
		RunE:  c.runFiles,
	}
	filesCmd.Flags().BoolVar(&c.keepAlive, "keep-alive", true, "block after the flow until interrupted; --keep-alive=false exits instead")
	root.AddCommand(filesCmd)

	root.AddCommand(&cobra.Command{
		Use:   "ls <dir>",
		Short: "List a directory with entry sizes",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runList,
	})
	return root
}

func (c *cli) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.flags, c.lookup)
	if err != nil {
		return err
	}
	log, err := logging.New(c.stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = log
	return nil
}

// connect builds the client and waits for the NameNode. Failure is fatal to
// the command and is reported with the usual causes.
func (c *cli) connect(ctx context.Context) (*webhdfs.Client, error) {
	client, mode, err := hdfs_sdk.NewClient(hdfs_sdk.Options{
		Mode:        c.cfg.RuntimeMode,
		NameNodeURL: c.cfg.NameNodeURL,
		User:        c.cfg.User,
		MockSeed:    c.cfg.MockSeed,
		Timeout:     c.cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	c.log.Info(ctx, "connecting to HDFS", "mode", mode, "endpoint", client.Endpoint().String())

	err = hdfs_sdk.Connect(ctx, client, hdfs_sdk.ConnectOptions{
		WarmUp:  c.cfg.WarmUp,
		MaxWait: c.cfg.MaxWait,
		Logger:  c.log,
	})
	if err != nil {
		c.log.Error(ctx, "failed to connect to HDFS", "err", err)
		for _, hint := range hdfs_sdk.Guidance {
			c.log.Error(ctx, "possible reason", "hint", hint)
		}
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *cli) runRecords(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := app.RecordsFlow(ctx, client, c.cfg, c.log)
	c.report(ctx, summary)
	return err
}

func (c *cli) runFiles(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := app.FilesFlow(ctx, client, c.cfg, c.log)
	c.report(ctx, summary)
	if err != nil {
		return err
	}
	if !c.keepAlive {
		return nil
	}
	err = app.KeepAlive(ctx, c.cfg.KeepAliveInterval, c.log)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (c *cli) runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	policy, err := inspect.ParsePolicy(c.cfg.ListPolicy)
	if err != nil {
		return err
	}
	in, err := inspect.New(client,
		inspect.WithPolicy(policy),
		inspect.WithConcurrency(c.cfg.ListConcurrency),
		inspect.WithLogger(c.log),
	)
	if err != nil {
		return err
	}
	report, err := in.List(ctx, args[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSIZE\tMODIFIED")
	for _, e := range report.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Name, e.Type, e.Size, e.ModTime.Format("2006-01-02 15:04:05"))
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(tw, "%s\t?\t?\t%v\n", s.Name, s.Err)
	}
	return tw.Flush()
}

func (c *cli) report(ctx context.Context, summary *app.Summary) {
	if summary == nil {
		return
	}
	failed := summary.Failed()
	if len(failed) == 0 {
		c.log.Info(ctx, "flow completed successfully", "flow", summary.Flow, "steps", len(summary.Steps))
		return
	}
	names := make([]string, 0, len(failed))
	for _, st := range failed {
		names = append(names, st.Name)
	}
	c.log.Warn(ctx, "flow completed with failures", "flow", summary.Flow, "failed", names)
}
