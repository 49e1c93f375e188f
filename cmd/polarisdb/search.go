package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/goccy/go-json"

	"github.com/polarisdb/polarisdb"
)

var (
	searchVector string
	searchK      int
	searchField  string
	searchEq     string
)

var searchCmd = &cobra.Command{
	Use:   "search <collection-dir>",
	Short: "Search a collection for the k nearest vectors",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		vector, err := parseVector(searchVector)
		if err != nil {
			exitError("parse --vector: %v", err)
		}

		cfg := polarisdb.DefaultConfig(len(vector))
		col, err := polarisdb.Open(args[0], cfg)
		if err != nil {
			exitError("open collection: %v", err)
		}
		defer col.Close()

		var results []polarisdb.Result
		if searchField != "" {
			f := polarisdb.Field(searchField).Eq(searchEq)
			results = col.SearchWithFilter(vector, searchK, f)
		} else {
			results = col.Search(vector, searchK)
		}

		if jsonOutput {
			data, _ := json.Marshal(results)
			fmt.Println(string(data))
			return
		}
		for _, r := range results {
			fmt.Printf("%d\t%.6f\t%v\n", r.ID, r.Distance, r.Payload)
		}
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchVector, "vector", "", "comma-separated float32 query vector")
	searchCmd.Flags().IntVar(&searchK, "k", 10, "number of nearest neighbors to return")
	searchCmd.Flags().StringVar(&searchField, "filter-field", "", "restrict to payload[field] == --filter-eq")
	searchCmd.Flags().StringVar(&searchEq, "filter-eq", "", "value to match --filter-field against")
	searchCmd.MarkFlagRequired("vector")
}
