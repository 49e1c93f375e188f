package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polarisdb/polarisdb"
)

var (
	insertID      uint64
	insertVector  string
	insertPayload string
)

var insertCmd = &cobra.Command{
	Use:   "insert <collection-dir>",
	Short: "Insert a vector into a collection, creating it if missing",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		vector, err := parseVector(insertVector)
		if err != nil {
			exitError("parse --vector: %v", err)
		}
		p, err := parsePayload(insertPayload)
		if err != nil {
			exitError("parse --payload: %v", err)
		}

		cfg := polarisdb.DefaultConfig(len(vector))
		if m, ok := parseMetricFlag(metric); ok {
			cfg.Metric = m
		}
		col, err := polarisdb.Open(args[0], cfg)
		if err != nil {
			exitError("open collection: %v", err)
		}
		defer col.Close()

		var id uint64
		if cmd.Flags().Changed("id") {
			id = insertID
			if err := col.Insert(id, vector, p); err != nil {
				exitError("insert: %v", err)
			}
		} else {
			id, err = col.InsertAuto(vector, p)
			if err != nil {
				exitError("insert: %v", err)
			}
		}
		if err := col.Flush(); err != nil {
			exitError("flush: %v", err)
		}
		fmt.Printf("inserted id=%d\n", id)
	},
}

func init() {
	insertCmd.Flags().Uint64Var(&insertID, "id", 0, "explicit vector id (default: auto-assigned)")
	insertCmd.Flags().StringVar(&insertVector, "vector", "", "comma-separated float32 vector, e.g. 1,0,0")
	insertCmd.Flags().StringVar(&insertPayload, "payload", "{}", "JSON payload object")
	insertCmd.Flags().StringVar(&metric, "metric", "Cosine", "distance metric for a newly created collection")
	insertCmd.MarkFlagRequired("vector")
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, float32(f))
	}
	return out, nil
}

func parseMetricFlag(s string) (polarisdb.Metric, bool) {
	switch s {
	case "Euclidean":
		return polarisdb.Euclidean, true
	case "Cosine":
		return polarisdb.Cosine, true
	case "DotProduct":
		return polarisdb.DotProduct, true
	case "Hamming":
		return polarisdb.Hamming, true
	default:
		return 0, false
	}
}
