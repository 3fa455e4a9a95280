// Command globimap counts items or points read from stdin and prints
// estimates for the queried ones.
//
//	globimap -config globimap.yaml -query a,b < items.txt
//	globimap -mode bitmap -query 3:4 -summary < points.txt
package main

import (
	"flag"
	"os"
	"strings"

	"k8s.io/klog/v2"

	"github.com/mlaass/globimap/internal/config"
)

func main() {
	klog.InitFlags(nil)

	var (
		configPath string
		mode       string
		query      string
		summary    bool
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	flag.StringVar(&mode, "mode", "", "sketch or bitmap, overrides the configuration file")
	flag.StringVar(&query, "query", "", "comma-separated items (sketch) or x:y points (bitmap) to look up")
	flag.BoolVar(&summary, "summary", false, "print a JSON summary after the queries")
	flag.Parse()
	defer klog.Flush()

	cfg, err := config.Load(configPath)
	if err != nil {
		klog.Fatal(err)
	}
	if mode != "" {
		cfg.Mode = mode
	}

	var queries []string
	if query != "" {
		queries = strings.Split(query, ",")
	}
	if err := run(cfg, queries, summary, os.Stdin, os.Stdout); err != nil {
		klog.ErrorS(err, "globimap failed", "mode", cfg.Mode)
		klog.Flush()
		os.Exit(1)
	}
}
