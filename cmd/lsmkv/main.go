// Command lsmkv is the driver around the lsm engine: it seeds a tree from a
// bulk-load file and/or runs a workload file of put/get instructions,
// dispatching the latter across a worker pool. Argument parsing, workload
// generation, and bulk-load file parsing are all explicitly out of scope for
// the core engine (SPEC_FULL.md §2); this is that ambient surface, built
// with the standard flag package in the teacher's cmd/moz/main.go idiom.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nyasuto/mozlsm/internal/lsm"
	"github.com/nyasuto/mozlsm/internal/workerpool"
	"github.com/nyasuto/mozlsm/internal/workload"
)

func main() {
	dataDir := flag.String("data-dir", "./lsmkv-data", "directory the tree's files are written under")
	bulkLoadFile := flag.String("bulk-load", "", "path to a b<key> <value>-per-line bulk-load file")
	workloadFile := flag.String("workload", "", "path to a p<key> <value> / g<key>-per-line instruction file")
	concurrency := flag.Int("concurrency", 4, "max concurrent operations when running a workload file")
	flag.Parse()

	cfg := lsm.DefaultConfig()
	tree := lsm.New(*dataDir, cfg)

	if *bulkLoadFile != "" {
		if err := runBulkLoad(tree, *bulkLoadFile); err != nil {
			log.Fatalf("lsmkv: bulk load: %v", err)
		}
	}

	if *workloadFile != "" {
		if err := runWorkload(tree, *workloadFile, *concurrency); err != nil {
			log.Fatalf("lsmkv: workload: %v", err)
		}
	}

	fmt.Printf("get_io=%.0f put_io=%.0f\n", tree.GetIOCount(), tree.PutIOCount())

	if err := tree.Shutdown(); err != nil {
		log.Fatalf("lsmkv: shutdown: %v", err)
	}
}

func runBulkLoad(tree *lsm.Tree, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	recs, err := workload.ParseBulkLoadFile(f)
	if err != nil {
		return err
	}
	return tree.BulkLoad(recs)
}

func runWorkload(tree *lsm.Tree, path string, concurrency int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	insts, err := workload.ParseInstructions(f)
	if err != nil {
		return err
	}

	jobs := make([]workerpool.Job, len(insts))
	for i, inst := range insts {
		switch inst.Kind {
		case workload.OpPut:
			jobs[i] = workerpool.Job{Op: "put", Key: inst.Key, Value: inst.Value}
		case workload.OpGet:
			jobs[i] = workerpool.Job{Op: "get", Key: inst.Key}
		}
	}

	pool := workerpool.New(tree, concurrency)
	results, err := pool.Run(context.Background(), jobs)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
