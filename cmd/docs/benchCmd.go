package docs

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/lazy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	benchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Benchmarks lazy flushes against a document database",
		RunE:    runBench,
		PreRunE: processBenchConfig,
	}
	benchIDPrefix  = "users/"
	benchThreads   = 10
	benchIDSpread  = 100
	benchBatchSize = 10
	benchSkip      = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	benchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. load,query)"))
	key = "threads"
	benchCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "id-prefix"
	benchCmd.Flags().String(key, "users/", util.WrapString("Prefix of the document ids to load"))
	key = "ids"
	benchCmd.Flags().Int(key, 100, util.WrapString("How many different ids to use for the tests"))
	key = "batch-size"
	benchCmd.Flags().Int(key, 10, util.WrapString("How many loads are flushed together in the batch test"))
	key = "csv"
	benchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchIDPrefix = viper.GetString("id-prefix")
	benchIDSpread = max(viper.GetInt("ids"), 1)
	benchThreads = viper.GetInt("threads")
	benchBatchSize = max(viper.GetInt("batch-size"), 1)
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runBench(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println("Benchmark of lazy flushes")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Threads: %d\n", benchThreads)
	fmt.Println()

	fmt.Println("staring tests...")

	results := make(map[string]testing.BenchmarkResult)

	// one load per flush, different ids
	results["load"] = benchmark("load", func(counter int) error {
		_, err := newScheduler().Load([]string{benchID(counter)}).Value(ctx)
		return err
	})

	// one load per flush, always the same id (served by the cache after the first call)
	results["cached"] = benchmark("cached", func(_ int) error {
		_, err := newScheduler().Load([]string{benchID(0)}).Value(ctx)
		return err
	})

	// batch-size loads per flush
	results["batch"] = benchmark("batch", func(counter int) error {
		s := newScheduler()
		futures := make([]*lazy.Future[*lazy.DocumentSet], benchBatchSize)
		for i := range futures {
			futures[i] = s.Load([]string{benchID(counter*benchBatchSize + i)})
		}
		if err := s.Flush(ctx); err != nil {
			return err
		}
		for _, f := range futures {
			if _, err := f.Value(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	// one prefix scan and one query per flush
	results["mixed"] = benchmark("mixed", func(_ int) error {
		s := newScheduler()
		prefix := s.LoadStartingWith(benchIDPrefix, nil)
		query := s.Query(&lazy.IndexQuery{Query: "from @all_docs", PageSize: 10})
		if _, err := prefix.Value(ctx); err != nil {
			return err
		}
		_, err := query.Value(ctx)
		return err
	})

	for _, test := range []string{"load", "cached", "batch", "mixed"} {
		printResult(test, results[test])
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, clientConfig); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs op in parallel, counter is the iteration of the calling goroutine
func benchmark(test string, op func(counter int) error) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test) {
			return
		}

		b.SetParallelism(benchThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := op(counter); err != nil {
					log.Printf("(%s) - error: %v\n", test, err)
				}
				counter++
			}
		})
	})
}

func shouldSkip(test string) bool {
	for _, skip := range benchSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// benchID returns the i-th test id (with wraparound)
func benchID(i int) string {
	return benchIDPrefix + strconv.Itoa(i%benchIDSpread)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "Database", "TimeoutSec", "RetryCount", "Cache",
		"Threads", "BatchSize", "Ids Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Endpoints, ";"),
			config.Database,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			string(config.Cache.Backend),
			strconv.Itoa(benchThreads),
			strconv.Itoa(benchBatchSize),
			strconv.Itoa(benchIDSpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
