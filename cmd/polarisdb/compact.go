package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/goccy/go-json"

	"github.com/polarisdb/polarisdb/internal/compact"
)

var compactCmd = &cobra.Command{
	Use:   "compact <collection-dir>",
	Short: "Rewrite a collection's data file, dropping tombstoned records",
	Long: "Compact rewrites data.pdb keeping only live records. The caller " +
		"must ensure no process has the collection open: compact operates " +
		"directly on the file, bypassing any Collection's in-memory offsets.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := compact.Compact(args[0])
		if err != nil {
			exitError("compact: %v", err)
		}

		if jsonOutput {
			data, _ := json.Marshal(result)
			fmt.Println(string(data))
			return
		}
		fmt.Printf("records kept: %d\n", result.RecordsKept)
		fmt.Printf("bytes before: %d\n", result.BytesBefore)
		fmt.Printf("bytes after:  %d\n", result.BytesAfter)
	},
}
