package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

var (
	// ErrWriteFailure wraps failures to store the document.
	ErrWriteFailure = errors.New("records: write failed")
	// ErrReadFailure wraps failures to fetch or decode the document.
	ErrReadFailure = errors.New("records: read failed")
	// ErrSerialization indicates the document is not a JSON array of objects.
	ErrSerialization = errors.New("records: invalid document")
	// ErrConflict indicates concurrent writers kept changing the document.
	ErrConflict = errors.New("records: concurrent modification")
)

const (
	DefaultConflictRetries = 3
	defaultBaseDelay       = 50 * time.Millisecond
	defaultMaxDelay        = time.Second
)

// Result describes a completed Update or Delete.
type Result struct {
	// Matched is the number of records the predicate selected.
	Matched int
	// Before and After are the document sizes around the change.
	Before int
	After  int
	// Records is the document as written.
	Records []Record
	// Verified is the document read back after the write. It is advisory and
	// nil when nothing was written or the read-back failed.
	Verified []Record
}

// Store manages the record document at one HDFS path.
type Store struct {
	client    *webhdfs.Client
	path      string
	log       logging.Logger
	retries   uint64
	baseDelay time.Duration
	maxDelay  time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for progress and audit messages.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		s.log = logging.OrNop(l)
	}
}

// WithConflictRetries sets how many times a conflicting Update or Delete is
// retried. Zero disables retrying.
func WithConflictRetries(n uint64) Option {
	return func(s *Store) {
		s.retries = n
	}
}

// WithBackoff sets the delay range between conflict retries.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(s *Store) {
		if base > 0 {
			s.baseDelay = base
		}
		if maxDelay > 0 {
			s.maxDelay = maxDelay
		}
	}
}

// New returns a Store for the document at docPath.
func New(client *webhdfs.Client, docPath string, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("records: client is nil")
	}
	if strings.TrimSpace(docPath) == "" {
		return nil, errors.New("records: document path is required")
	}
	s := &Store{
		client:    client,
		path:      docPath,
		log:       logging.Nop(),
		retries:   DefaultConflictRetries,
		baseDelay: defaultBaseDelay,
		maxDelay:  defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxDelay < s.baseDelay {
		s.maxDelay = s.baseDelay
	}
	s.log = s.log.With("document", docPath)
	return s, nil
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Create replaces the document with records. The write is unconditional:
// any existing content is discarded.
func (s *Store) Create(ctx context.Context, records []Record) error {
	data, err := encode(records)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailure, s.path, err)
	}
	if _, err := s.client.Write(ctx, s.path, data, &webhdfs.PutOptions{Overwrite: true}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailure, s.path, err)
	}
	s.log.Info(ctx, "document written", "records", len(records), "bytes", len(data))
	return nil
}

// ReadAll fetches and decodes the whole document.
func (s *Store) ReadAll(ctx context.Context) ([]Record, error) {
	records, _, err := s.read(ctx)
	return records, err
}

// Update applies mutate to every record matching match. A Result with zero
// matches means the document was left untouched and nothing was written.
func (s *Store) Update(ctx context.Context, match Predicate, mutate Mutation) (*Result, error) {
	if match == nil || mutate == nil {
		return nil, errors.New("records: update needs a predicate and a mutation")
	}
	return s.modify(ctx, "update", func(records []Record) ([]Record, int) {
		matched := 0
		for _, r := range records {
			if match(r) {
				mutate(r)
				matched++
			}
		}
		return records, matched
	})
}

// Delete removes every record matching match.
func (s *Store) Delete(ctx context.Context, match Predicate) (*Result, error) {
	if match == nil {
		return nil, errors.New("records: delete needs a predicate")
	}
	return s.modify(ctx, "delete", func(records []Record) ([]Record, int) {
		kept := make([]Record, 0, len(records))
		for _, r := range records {
			if !match(r) {
				kept = append(kept, r)
			}
		}
		return kept, len(records) - len(kept)
	})
}

func (s *Store) modify(ctx context.Context, op string, apply func([]Record) ([]Record, int)) (*Result, error) {
	var (
		res      *Result
		attempts int
	)
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempts++
		current, etag, err := s.read(ctx)
		if err != nil {
			return err
		}
		before := len(current)
		next, matched := apply(cloneRecords(current))
		res = &Result{Matched: matched, Before: before, After: len(next), Records: next}
		if matched == 0 {
			return nil
		}

		data, err := encode(next)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWriteFailure, s.path, err)
		}
		_, err = s.client.Write(ctx, s.path, data, &webhdfs.PutOptions{IfETagMatch: etag})
		if errors.Is(err, webhdfs.ErrPreconditionFailed) {
			s.log.Warn(ctx, "document changed during "+op+", retrying", "attempt", attempts)
			return retry.RetryableError(err)
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWriteFailure, s.path, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, webhdfs.ErrPreconditionFailed) {
			return nil, fmt.Errorf("%w: %s %s after %d attempts: %w", ErrConflict, op, s.path, attempts, err)
		}
		return nil, err
	}

	s.log.Info(ctx, "document "+op+" complete",
		"matched", res.Matched, "before", res.Before, "after", res.After)
	if res.Matched > 0 {
		verified, err := s.ReadAll(ctx)
		if err != nil {
			s.log.Warn(ctx, "verification read failed", "op", op, "err", err)
		} else {
			res.Verified = verified
		}
	}
	return res, nil
}

func (s *Store) read(ctx context.Context) ([]Record, string, error) {
	data, st, err := s.client.ReadVersioned(ctx, s.path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrReadFailure, s.path, err)
	}
	records, err := decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrReadFailure, s.path, err)
	}
	return records, st.ETag(), nil
}

func (s *Store) backoff() retry.Backoff {
	b := retry.NewExponential(s.baseDelay)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithCappedDuration(s.maxDelay, b)
	return retry.WithMaxRetries(s.retries, b)
}
