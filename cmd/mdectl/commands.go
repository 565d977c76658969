package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mdedb/mde/table"
	"github.com/mdedb/mde/value"
)

var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Insert or overwrite a key in the kv table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, kv, err := openKV(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if err := kv.Insert(tx, table.Row{
			"key":   value.NewString(args[0]),
			"value": value.NewString(args[1]),
		}); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Look up a key in the kv table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, kv, err := openKV(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		row, ok, err := kv.SelectByKey(value.NewString(args[0]))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("mdectl: key %q not found", args[0])
		}
		fmt.Println(row["value"].AsString())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key from the kv table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, kv, err := openKV(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		existed, err := kv.Delete(tx, value.NewString(args[0]))
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("mdectl: key %q not found", args[0])
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print every key/value pair in ascending key order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, kv, err := openKV(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := kv.Scan()
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Printf("%s\t%s\n", row["key"].AsString(), row["value"].AsString())
		}
		return nil
	},
}
