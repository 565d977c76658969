package main

import (
	"github.com/spf13/cobra"

	"github.com/mdedb/mde/common"
	"github.com/mdedb/mde/common/benchmark"
	"github.com/mdedb/mde/engine"
	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/table"
	"github.com/mdedb/mde/value"
)

// kvEngine adapts the kv table over a Database to common.StorageEngine
// so the generic workload harness can drive it the same way it drives
// any other engine in the pack.
type kvEngine struct {
	db *engine.Database
	kv *table.Table
}

func (e *kvEngine) Put(key, val []byte) error {
	tx, err := e.db.Begin()
	if err != nil {
		return err
	}
	if err := e.kv.Insert(tx, table.Row{
		"key":   value.NewString(string(key)),
		"value": value.NewString(string(val)),
	}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (e *kvEngine) Get(key []byte) ([]byte, error) {
	row, ok, err := e.kv.SelectByKey(value.NewString(string(key)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, mdeerrors.ErrKeyNotFound
	}
	return []byte(row["value"].AsString()), nil
}

func (e *kvEngine) Delete(key []byte) error {
	tx, err := e.db.Begin()
	if err != nil {
		return err
	}
	existed, err := e.kv.Delete(tx, value.NewString(string(key)))
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if !existed {
		return mdeerrors.ErrKeyNotFound
	}
	return nil
}

func (e *kvEngine) Close() error { return e.db.Close() }

func (e *kvEngine) Sync() error { return e.db.Store().Flush() }

// Compact is a no-op: the paged store never rewrites live pages out of
// place, so there's nothing for a manual compaction pass to reclaim.
func (e *kvEngine) Compact() error { return nil }

func (e *kvEngine) Stats() common.Stats {
	s := e.db.Store().Stats()
	return common.Stats{
		NumKeys:       int64(e.kv.Len()),
		TotalDiskSize: s.BytesWritten,
		WriteCount:    s.PageWrites,
		ReadCount:     s.PageReads,
	}
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the workload benchmark suite against the kv table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, kv, err := openKV(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		quick, err := cmd.Flags().GetBool("quick")
		if err != nil {
			return err
		}

		suite := benchmark.NewSuite()
		if quick {
			suite.SetWorkloads(benchmark.QuickWorkloads())
		}

		results := suite.Run(&kvEngine{db: db, kv: kv})
		suite.PrintTable(results)
		return nil
	},
}

func init() {
	benchCmd.Flags().Bool("quick", false, "Run the quick workload catalog instead of the standard one")
}
