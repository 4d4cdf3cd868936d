package app

import (
	"context"
	"fmt"

	"github.com/Ratio1/hdfs_crud_go/internal/config"
	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/pkg/hdfs_sdk"
	"github.com/Ratio1/hdfs_crud_go/pkg/inspect"
	"github.com/Ratio1/hdfs_crud_go/pkg/records"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

// Step names of the records flow.
const (
	StepEnsureNamespace = "ensure-namespace"
	StepCreate          = "create"
	StepRead            = "read"
	StepUpdate          = "update"
	StepDelete          = "delete"
	StepList            = "list"
)

// SeedRecords is the document the records flow starts from.
func SeedRecords() []records.Record {
	return []records.Record{{"name": "Ali", "age": 22, "city": "Lahore"}}
}

const (
	targetName = "Ali"
	newCity    = "Karachi"
)

// RecordsFlow seeds the document, reads it, moves Ali to Karachi, deletes
// Ali and lists the records directory. Only a failed seed aborts the flow.
func RecordsFlow(ctx context.Context, client *webhdfs.Client, cfg *config.Config, log logging.Logger) (*Summary, error) {
	log = logging.OrNop(log)
	r := newRunner("records", log)

	store, err := records.New(client, cfg.DocumentPath(),
		records.WithLogger(log),
		records.WithConflictRetries(uint64(cfg.ConflictRetries)),
	)
	if err != nil {
		return r.summary, err
	}
	lister, err := newInspector(client, cfg, log)
	if err != nil {
		return r.summary, err
	}

	_ = r.run(ctx, StepEnsureNamespace, false, func(ctx context.Context) error {
		return hdfs_sdk.EnsureNamespace(ctx, client, cfg.RecordsDir, log)
	})

	if err := r.run(ctx, StepCreate, true, func(ctx context.Context) error {
		seed := SeedRecords()
		if err := store.Create(ctx, seed); err != nil {
			return err
		}
		log.Info(ctx, "created user", "record", fmt.Sprint(seed[0]))
		return nil
	}); err != nil {
		return r.summary, err
	}

	_ = r.run(ctx, StepRead, false, func(ctx context.Context) error {
		all, err := store.ReadAll(ctx)
		if err != nil {
			return err
		}
		for _, rec := range all {
			log.Info(ctx, "user", "record", fmt.Sprint(rec))
		}
		return nil
	})

	_ = r.run(ctx, StepUpdate, false, func(ctx context.Context) error {
		res, err := store.Update(ctx, records.ByName(targetName), records.Set("city", newCity))
		if err != nil {
			return err
		}
		log.Info(ctx, "updated city", "name", targetName, "city", newCity,
			"matched", res.Matched, "verified", fmt.Sprint(res.Verified))
		return nil
	})

	_ = r.run(ctx, StepDelete, false, func(ctx context.Context) error {
		res, err := store.Delete(ctx, records.ByName(targetName))
		if err != nil {
			return err
		}
		log.Info(ctx, "deleted user", "name", targetName, "before", res.Before, "after", res.After)
		return nil
	})

	_ = r.run(ctx, StepList, false, func(ctx context.Context) error {
		_, err := lister.List(ctx, cfg.RecordsDir)
		return err
	})

	return r.summary, nil
}

func newInspector(client *webhdfs.Client, cfg *config.Config, log logging.Logger) (*inspect.Inspector, error) {
	policy, err := inspect.ParsePolicy(cfg.ListPolicy)
	if err != nil {
		return nil, err
	}
	return inspect.New(client,
		inspect.WithPolicy(policy),
		inspect.WithConcurrency(cfg.ListConcurrency),
		inspect.WithLogger(log),
	)
}
