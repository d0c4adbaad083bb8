// Benchmark tool for testing Gannet against labeled page content.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/pages.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled page content (columns: content, page_type, industry, should_pass)
//   2. Sends each page to Gannet for assessment
//   3. Compares Gannet's verdict (pass/fail) with the labels
//   4. Calculates precision, recall, F1-score, and latency percentiles
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledPage is a row from the benchmark dataset.
type LabeledPage struct {
	Content    string
	PageType   string
	Industry   string
	ShouldPass bool
}

// AssessRequest is the Gannet API request format.
type AssessRequest struct {
	Content  string         `json:"content"`
	PageType string         `json:"page_type,omitempty"`
	Industry string         `json:"industry,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// AssessResponse is the subset of the Gannet response the benchmark reads.
type AssessResponse struct {
	ID           string  `json:"id"`
	OverallScore int     `json:"overall_score"`
	Passed       bool    `json:"passed"`
	TiersRun     []int   `json:"tiers_run"`
	APICost      float64 `json:"api_cost"`
	TotalTimeMs  int64   `json:"total_processing_time_ms"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Bad page flagged as failing
	FalsePositives int64 // Good page flagged as failing
	TrueNegatives  int64 // Good page passed
	FalseNegatives int64 // Bad page passed (missed!)

	TotalProcessed int64
	TotalBad       int64
	TotalGood      int64
	TotalErrors    int64

	ProcessingTimeMs int64

	mu        sync.Mutex
	latencies []int64
	apiCost   float64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labeled page CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Gannet base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum pages to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	tier3 := flag.Bool("tier3", false, "Enable tier-3 model judgment (costs money)")
	verbose := flag.Bool("verbose", false, "Print each page result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/pages.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("=== GANNET BENCHMARK - Content Assessment ===")
	fmt.Printf("\nCSV File:   %s\n", *csvPath)
	fmt.Printf("Gannet URL: %s\n", *baseURL)
	fmt.Printf("Tenant ID:  %s\n", *tenantID)
	fmt.Printf("Workers:    %d\n", *workers)
	fmt.Printf("Limit:      %d\n", *limit)
	fmt.Printf("Tier 3:     %v\n", *tier3)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Gannet not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Gannet is running:")
		fmt.Println("  go run cmd/gannet/main.go")
		os.Exit(1)
	}
	fmt.Println("Gannet is healthy")

	fmt.Printf("\nReading labeled pages from %s...\n", *csvPath)
	pages, err := readPagesCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d pages\n", len(pages))

	badCount := 0
	for _, p := range pages {
		if !p.ShouldPass {
			badCount++
		}
	}
	fmt.Printf("  - Should fail: %d (%.2f%%)\n", badCount, 100*float64(badCount)/float64(len(pages)))
	fmt.Printf("  - Should pass: %d (%.2f%%)\n", len(pages)-badCount, 100*float64(len(pages)-badCount)/float64(len(pages)))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(pages, *baseURL, *tenantID, *workers, *tier3, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readPagesCSV(path string, limit int) ([]LabeledPage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, required := range []string{"content", "should_pass"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var pages []LabeledPage

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		page := LabeledPage{
			Content:    record[colIndex["content"]],
			ShouldPass: record[colIndex["should_pass"]] == "1",
		}
		if i, ok := colIndex["page_type"]; ok {
			page.PageType = record[i]
		}
		if i, ok := colIndex["industry"]; ok {
			page.Industry = record[i]
		}
		if page.Content == "" {
			continue
		}

		pages = append(pages, page)

		if limit > 0 && len(pages) >= limit {
			break
		}
	}

	return pages, nil
}

func runBenchmark(pages []LabeledPage, baseURL, tenantID string, numWorkers int, tier3, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan LabeledPage, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 60 * time.Second}

			for page := range work {
				start := time.Now()
				result, err := assessPage(client, baseURL, tenantID, page, tier3)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				metrics.mu.Lock()
				metrics.latencies = append(metrics.latencies, elapsed)
				if result != nil {
					metrics.apiCost += result.APICost
				}
				metrics.mu.Unlock()

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %v\n", err)
					}
					continue
				}

				if page.ShouldPass {
					atomic.AddInt64(&metrics.TotalGood, 1)
				} else {
					atomic.AddInt64(&metrics.TotalBad, 1)
				}

				// "Positive" means the engine flagged the page as failing.
				predicted := !result.Passed
				actual := !page.ShouldPass

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else {
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "ok"
					if predicted != actual {
						status = "MISS"
					}
					excerpt := page.Content
					if len(excerpt) > 40 {
						excerpt = excerpt[:40]
					}
					fmt.Printf("%-4s | %-40s | Score: %3d | Passed: %-5v | Expected: %-5v | Tiers: %v\n",
						status, excerpt, result.OverallScore, result.Passed, page.ShouldPass, result.TiersRun)
				}
			}
		}()
	}

	for _, page := range pages {
		work <- page
	}
	close(work)

	wg.Wait()

	return metrics
}

func assessPage(client *http.Client, baseURL, tenantID string, page LabeledPage, tier3 bool) (*AssessResponse, error) {
	req := AssessRequest{
		Content:  page.Content,
		PageType: page.PageType,
		Industry: page.Industry,
		Options: map[string]any{
			"run_tier3": tier3,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/assess", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AssessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n=== BENCHMARK RESULTS ===")

	fmt.Printf("\nDATASET STATISTICS\n")
	fmt.Printf("   Total Processed:   %d\n", m.TotalProcessed)
	fmt.Printf("   Should Fail:       %d\n", m.TotalBad)
	fmt.Printf("   Should Pass:       %d\n", m.TotalGood)
	fmt.Printf("   Errors:            %d\n", m.TotalErrors)

	fmt.Printf("\nCONFUSION MATRIX (positive = flagged failing)\n")
	fmt.Printf("   True Positives:    %d (bad pages flagged)\n", m.TruePositives)
	fmt.Printf("   False Negatives:   %d (bad pages missed)\n", m.FalseNegatives)
	fmt.Printf("   False Positives:   %d (good pages flagged)\n", m.FalsePositives)
	fmt.Printf("   True Negatives:    %d (good pages passed)\n", m.TrueNegatives)

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\nDETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flagged pages, how many were actually bad)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of bad pages, how many did we flag)\n", recall)
	fmt.Printf("   F1-Score:   %.4f\n", f1)
	fmt.Printf("   Accuracy:   %.4f\n", accuracy)

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		pps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f pages/sec\n", pps)
	}

	sort.Slice(m.latencies, func(i, j int) bool { return m.latencies[i] < m.latencies[j] })
	fmt.Printf("   p50 Latency:      %d ms\n", percentile(m.latencies, 0.50))
	fmt.Printf("   p95 Latency:      %d ms\n", percentile(m.latencies, 0.95))
	fmt.Printf("   p99 Latency:      %d ms\n", percentile(m.latencies, 0.99))

	if m.apiCost > 0 {
		fmt.Printf("\nCOST\n")
		fmt.Printf("   Total API Cost:   $%.4f\n", m.apiCost)
		if m.TotalProcessed > 0 {
			fmt.Printf("   Cost per Page:    $%.6f\n", m.apiCost/float64(m.TotalProcessed))
		}
	}

	fmt.Println()
}
