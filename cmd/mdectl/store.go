package main

import (
	"github.com/spf13/cobra"

	"github.com/mdedb/mde/engine"
	"github.com/mdedb/mde/storage"
	"github.com/mdedb/mde/table"
	"github.com/mdedb/mde/value"
)

// kvSchema is the single generic table every mdectl invocation declares:
// a string key mapped to an opaque string-encoded blob. The schema
// catalog isn't persisted (the engine's own open question), so every
// command that touches the database must declare it identically before
// reading or writing.
func kvSchema() table.Schema {
	schema, err := table.NewSchema("kv", "key",
		table.Column{Name: "key", Variant: value.VariantString},
		table.Column{Name: "value", Variant: value.VariantString},
	)
	if err != nil {
		panic(err) // static schema, can only fail on programmer error
	}
	return schema
}

func openOptions(cmd *cobra.Command) (engine.Options, error) {
	path, err := cmd.Flags().GetString("db")
	if err != nil {
		return engine.Options{}, err
	}
	cache, err := cmd.Flags().GetInt("cache")
	if err != nil {
		return engine.Options{}, err
	}
	mmap, err := cmd.Flags().GetBool("mmap")
	if err != nil {
		return engine.Options{}, err
	}

	opts := storage.DefaultOptions(path)
	opts.CacheCapacity = cache
	opts.MemoryMapped = mmap
	return engine.Options{Options: opts}, nil
}

// openKV opens the database at the --db flag and declares the kv table,
// recovering any WAL records left from a prior run.
func openKV(cmd *cobra.Command) (*engine.Database, *table.Table, error) {
	opts, err := openOptions(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := engine.Open(opts)
	if err != nil {
		return nil, nil, err
	}

	tbl, err := db.DeclareTable(kvSchema(), engine.DefaultTreeOrder)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := db.Recover(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, tbl, nil
}
