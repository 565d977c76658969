package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mdectl",
	Short: "Command-line driver for the mde embedded storage engine",
	Long: `mdectl opens a mde database file directly and exercises it from the
shell: point reads and writes against a single generic table, full scans,
and a workload benchmark harness.`,
}

func init() {
	rootCmd.PersistentFlags().String("db", "mdectl.mde", "Path to the database file")
	rootCmd.PersistentFlags().Int("cache", 100, "Cache capacity, in 8-page extents")
	rootCmd.PersistentFlags().Bool("mmap", false, "Use memory-mapped I/O instead of positional reads/writes")

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(benchCmd)
}
