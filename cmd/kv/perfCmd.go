package kv

import (
	"encoding/csv"
	"fmt"
	"github.com/ferrokv/ferrokv/cmd/util"
	"github.com/ferrokv/ferrokv/rpc/common"
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
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for ferrokv daemons",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfTagBase    uint16 = 0x2000
	perfValueSizeKB       = 1
	perfNumThreads        = 10
	perfTagSpread         = 100
	perfSkip              = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	KeyValueCommands.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. write,read)"))
	key = "threads"
	KeyValueCommands.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "value-size"
	KeyValueCommands.PersistentFlags().Int(key, 1, util.WrapString("Size of the value written by the benchmarks (in KB)"))
	key = "tags"
	KeyValueCommands.PersistentFlags().Int(key, 100, util.WrapString("How many different tags to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfValueSizeKB = viper.GetInt("value-size")
	perfTagSpread = viper.GetInt("tags")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for ferrokv daemons")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	value := make([]byte, perfValueSizeKB*1024)

	writeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("write") {
			return
		}

		// prepare tags
		getTag, iter := getTags()

		// cleanup
		b.Cleanup(func() {
			iter(func(tag uint16) {
				if err := rpcStore.Delete(tag); err != nil {
					log.Printf("(write) - error deleting tag: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := rpcStore.Write(getTag(counter), value); err != nil {
					log.Printf("(write) - error writing tag: %v\n", err)
				}
				counter++
			}
		})
	})

	results["write"] = writeResult
	printResult("write", writeResult)

	readResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("read") {
			return
		}

		// prepare tags
		getTag, iter := getTags()

		// write tags
		iter(func(tag uint16) {
			if err := rpcStore.Write(tag, value); err != nil {
				log.Printf("(read) - error writing tag: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(tag uint16) {
				if err := rpcStore.Delete(tag); err != nil {
					log.Printf("(read) - error deleting tag: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		buf := make([]byte, len(value))

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := rpcStore.Read(getTag(counter), buf); err != nil {
					log.Printf("(read) - error reading tag: %v\n", err)
				}
				counter++
			}
		})
	})

	results["read"] = readResult
	printResult("read", readResult)

	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// prepare tags
		getTag, iter := getTags()

		// write tags
		iter(func(tag uint16) {
			if err := rpcStore.Write(tag, value); err != nil {
				log.Printf("(delete) - error writing tag: %v\n", err)
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := rpcStore.Delete(getTag(counter)); err != nil {
					log.Printf("(delete) - error deleting tag: %v\n", err)
				}
				counter++
			}
		})
	})

	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	existsResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("exists") {
			return
		}

		// prepare tags
		getTag, iter := getTags()

		// write tags
		iter(func(tag uint16) {
			if err := rpcStore.Write(tag, value); err != nil {
				log.Printf("(exists) - error writing tag: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(tag uint16) {
				if err := rpcStore.Delete(tag); err != nil {
					log.Printf("(exists) - error deleting tag: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				rpcStore.Exists(getTag(counter))
				counter++
			}
		})
	})

	results["exists"] = existsResult
	printResult("exists", existsResult)

	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare tags
		getTag, iter := getTags()

		// write tags
		iter(func(tag uint16) {
			if err := rpcStore.Write(tag, value); err != nil {
				log.Printf("(mixed) - error writing tag: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(tag uint16) {
				if err := rpcStore.Delete(tag); err != nil {
					log.Printf("(mixed) - error deleting tag: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		buf := make([]byte, len(value))

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			tag := getTag(counter)
			for pb.Next() {
				var err error
				switch counter % 4 {
				case 0: // write
					err = rpcStore.Write(tag, value)
				case 1: // read
					_, err = rpcStore.Read(tag, buf)
				case 2: // delete
					err = rpcStore.Delete(tag)
				case 3: // exists
					rpcStore.Exists(tag)
				}

				if err != nil {
					log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedUsageResult
	printResult("mixed", mixedUsageResult)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test tags and functions to work with them
func getTags() (func(int) uint16, func(func(uint16))) {
	tags := make([]uint16, perfTagSpread)
	for i := 0; i < perfTagSpread; i++ {
		tags[i] = perfTagBase + uint16(i)
	}

	// Function to get a tag by index (with wraparound)
	getTag := func(i int) uint16 {
		return tags[i%perfTagSpread]
	}

	// Function to iterate over all tags and apply a function to each
	iterateTags := func(fn func(uint16)) {
		for _, tag := range tags {
			fn(tag)
		}
	}

	return getTag, iterateTags
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
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

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"DeviceID", "Serializer", "Transport",
		"Threads", "ValueSizeKB", "Tags Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
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
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetDeviceID(), 10),
			"binary",
			"tcp",
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSizeKB),
			strconv.Itoa(perfTagSpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
