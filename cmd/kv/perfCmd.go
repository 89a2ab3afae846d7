package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/christophercampbell/skunkr/cmd/util"
	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for skunkr servers",
		Long:    "Runs parallel benchmarks against a running server. The keys are written to the table __perf.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfTable            = "__perf"
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)

	// per operation latencies of all benchmarks
	perfRegistry = metrics.NewRegistry()
)

// perfResult is the outcome of one benchmark
type perfResult struct {
	bench   testing.BenchmarkResult
	latency metrics.Timer
	errors  metrics.Counter
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for skunkr servers")

	// Print configuration
	config := util.GetClientConfig()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]perfResult)
	order := []string{"set", "set-large", "get", "get-miss", "scan", "mixed"}

	// set
	getKey, _ := getKeys("set")
	results["set"] = runBenchmark("set", nil, func(counter int) error {
		return checkSet(rpcStore.Set(perfTable, getKey(counter), []byte("test")))
	})

	// set-large
	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	getKey, _ = getKeys("set-large")
	results["set-large"] = runBenchmark("set-large", nil, func(counter int) error {
		return checkSet(rpcStore.Set(perfTable, getKey(counter), largeValue))
	})

	// get
	getKey, iter := getKeys("get")
	results["get"] = runBenchmark("get", func() { fill("get", iter) }, func(counter int) error {
		_, _, err := rpcStore.Get(perfTable, getKey(counter))
		return err
	})

	// get-miss
	results["get-miss"] = runBenchmark("get-miss", nil, func(counter int) error {
		key := fmt.Sprintf("%s/get-miss-%d", perfKeyPrefix, counter%100)
		_, _, err := rpcStore.Get(perfTable, []byte(key))
		return err
	})

	// scan over the keys written by the get benchmark
	results["scan"] = runBenchmark("scan", func() { fill("scan", iter) }, func(counter int) error {
		from := []byte(fmt.Sprintf("%s-get-", perfKeyPrefix))
		source := scan.NewHandoff[scan.Request]()
		source.Send(scan.Request{Table: perfTable, From: from})
		sink := scan.NewSink(0, 0)
		rpcStore.Scan(source, sink)
		_, res := sink.Collect()
		if res.Status != scan.StatusCompleted {
			return fmt.Errorf("scan %s: %v", res.Status, res.Err)
		}
		return nil
	})

	// mixed
	getKey, iter = getKeys("mixed")
	results["mixed"] = runBenchmark("mixed", func() { fill("mixed", iter) }, func(counter int) error {
		key := getKey(counter)
		switch counter % 2 {
		case 0: // set
			return checkSet(rpcStore.Set(perfTable, key, []byte("test")))
		default: // get
			_, _, err := rpcStore.Get(perfTable, key)
			return err
		}
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, order, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs op in parallel and records the latency of every call.
// prepare runs once before the timer starts.
func runBenchmark(test string, prepare func(), op func(counter int) error) perfResult {
	res := perfResult{
		latency: metrics.GetOrRegisterTimer(test+".latency", perfRegistry),
		errors:  metrics.GetOrRegisterCounter(test+".errors", perfRegistry),
	}

	if shouldSkip(test) {
		printResult(test, res)
		return res
	}

	if prepare != nil {
		prepare()
	}

	res.bench = testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := op(counter)
				res.latency.UpdateSince(start)
				if err != nil {
					res.errors.Inc(1)
					log.Printf("(%s) - error: %v\n", test, err)
				}
				counter++
			}
		})
	})

	printResult(test, res)
	return res
}

func checkSet(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("set was not applied")
	}
	return nil
}

// fill writes a small value to every key of iter
func fill(test string, iter func(func([]byte))) {
	iter(func(k []byte) {
		if err := checkSet(rpcStore.Set(perfTable, k, []byte("test"))); err != nil {
			log.Printf("(%s) - error setting key: %v\n", test, err)
		}
	})
}

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) []byte, func(func([]byte))) {
	keys := make([][]byte, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = []byte(fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i))
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) []byte {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func([]byte)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// opsPerSec returns ns/op and ops/sec of a result, both 0 if the benchmark was skipped
func opsPerSec(result testing.BenchmarkResult) (float64, float64) {
	if result.NsPerOp() == 0 {
		return 0, 0
	}
	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	return nsPerOp, 1.0 / (nsPerOp / 1e9)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	nsPerOp, perSec := opsPerSec(result.bench)
	if nsPerOp == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	latency := result.latency.Snapshot()
	ps := latency.Percentiles([]float64{0.5, 0.99})

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\terrors=%d\n",
		test, nsPerOp, time.Duration(nsPerOp), perSec,
		time.Duration(ps[0]), time.Duration(ps[1]), result.errors.Count())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, order []string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Errors", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, test := range order {
		result, ok := results[test]
		if !ok {
			continue
		}

		nsPerOp, perSec := opsPerSec(result.bench)
		latency := result.latency.Snapshot()
		ps := latency.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", perSec),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strconv.FormatInt(result.errors.Count(), 10),
			strconv.FormatBool(nsPerOp == 0),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
