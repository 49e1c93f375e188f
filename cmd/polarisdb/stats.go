package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/goccy/go-json"

	"github.com/polarisdb/polarisdb"
)

// metaDimension peeks at a collection directory's meta.json to discover its
// dimension before Open, which rejects any mismatch against the value
// already on disk.
func metaDimension(dir string) int {
	raw, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return 1
	}
	var m struct {
		Dimension int `json:"dimension"`
	}
	if err := json.Unmarshal(raw, &m); err != nil || m.Dimension == 0 {
		return 1
	}
	return m.Dimension
}

var statsCmd = &cobra.Command{
	Use:   "stats <collection-dir>",
	Short: "Print a collection's size and configuration",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		col, err := polarisdb.Open(args[0], polarisdb.DefaultConfig(metaDimension(args[0])))
		if err != nil {
			exitError("open collection: %v", err)
		}
		defer col.Close()

		out := struct {
			Dir       string `json:"dir"`
			Dimension int    `json:"dimension"`
			Metric    string `json:"metric"`
			Count     int    `json:"count"`
		}{
			Dir:       col.Dir(),
			Dimension: col.Dimension(),
			Metric:    col.CollectionMetric().String(),
			Count:     col.Len(),
		}

		if jsonOutput {
			data, _ := json.Marshal(out)
			fmt.Println(string(data))
			return
		}
		fmt.Printf("dir:       %s\n", out.Dir)
		fmt.Printf("dimension: %d\n", out.Dimension)
		fmt.Printf("metric:    %s\n", out.Metric)
		fmt.Printf("count:     %d\n", out.Count)
	},
}
