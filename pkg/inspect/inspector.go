// Package inspect reports the entries directly under an HDFS directory
// together with their size and metadata.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

// Policy decides what happens when the status of one entry cannot be read.
type Policy int

const (
	// FailFast aborts the whole listing and returns no partial result.
	FailFast Policy = iota
	// BestEffort skips the entry and records it in Report.Skipped.
	BestEffort
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case BestEffort:
		return "best-effort"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps "fail-fast" and "best-effort" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail-fast", "failfast":
		return FailFast, nil
	case "best-effort", "besteffort":
		return BestEffort, nil
	}
	return FailFast, fmt.Errorf("inspect: unknown policy %q", s)
}

// Entry describes one listed path.
type Entry struct {
	Name    string
	Path    string
	Type    webhdfs.FileType
	Size    int64
	ModTime time.Time
}

// Skipped is an entry whose status lookup failed under BestEffort.
type Skipped struct {
	Name string
	Err  error
}

// Report is the result of List. Entries keep the listing order.
type Report struct {
	Dir     string
	Entries []Entry
	Skipped []Skipped
}

// TotalSize sums the size of every reported entry.
func (r *Report) TotalSize() int64 {
	var n int64
	for _, e := range r.Entries {
		n += e.Size
	}
	return n
}

// Inspector lists directories.
type Inspector struct {
	client      *webhdfs.Client
	policy      Policy
	concurrency int
	log         logging.Logger
}

type Option func(*Inspector)

func WithPolicy(p Policy) Option {
	return func(i *Inspector) {
		i.policy = p
	}
}

// WithConcurrency bounds the number of status lookups in flight. Values
// below one mean sequential.
func WithConcurrency(n int) Option {
	return func(i *Inspector) {
		if n < 1 {
			n = 1
		}
		i.concurrency = n
	}
}

func WithLogger(l logging.Logger) Option {
	return func(i *Inspector) {
		i.log = logging.OrNop(l)
	}
}

// New returns an Inspector using FailFast and sequential lookups by default.
func New(client *webhdfs.Client, opts ...Option) (*Inspector, error) {
	if client == nil {
		return nil, errors.New("inspect: client is nil")
	}
	i := &Inspector{
		client:      client,
		policy:      FailFast,
		concurrency: 1,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// List enumerates dir one level deep and looks up the status of every entry.
func (i *Inspector) List(ctx context.Context, dir string) (*Report, error) {
	names, err := i.client.ListNames(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("inspect: list %s: %w", dir, err)
	}

	entries := make([]*Entry, len(names))
	failures := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx, name := range names {
		g.Go(func() error {
			p := path.Join(dir, name)
			st, err := i.client.Status(gctx, p)
			if err != nil {
				err = fmt.Errorf("inspect: status %s: %w", p, err)
				if i.policy == FailFast {
					return err
				}
				failures[idx] = err
				return nil
			}
			entries[idx] = &Entry{
				Name:    name,
				Path:    p,
				Type:    st.Type,
				Size:    st.Length,
				ModTime: st.ModTime(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Dir: dir, Entries: make([]Entry, 0, len(names))}
	for idx, name := range names {
		if failures[idx] != nil {
			i.log.Warn(ctx, "skipping entry", "dir", dir, "name", name, "err", failures[idx])
			report.Skipped = append(report.Skipped, Skipped{Name: name, Err: failures[idx]})
			continue
		}
		if entries[idx] != nil {
			report.Entries = append(report.Entries, *entries[idx])
		}
	}
	for _, e := range report.Entries {
		i.log.Info(ctx, "entry", "name", e.Name, "type", string(e.Type), "size", e.Size)
	}
	return report, nil
}
