// Loadtest fires concurrent prompts at the dispatch endpoint and reports
// throughput, latency percentiles and which provider answered.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080/v1/dispatch -concurrency 10 -requests 1000
//	go run ./cmd/loadtest -concurrency 50 -requests 5000 -out summary.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type sample struct {
	Provider string
	Error    string
	Status   int
	Duration time.Duration
}

type ProviderSummary struct {
	Total int     `json:"total"`
	P50   float64 `json:"p50_ms"`
	P90   float64 `json:"p90_ms"`
	P99   float64 `json:"p99_ms"`
}

type Summary struct {
	Target        string                     `json:"target"`
	Requests      int                        `json:"requests"`
	Success       int                        `json:"success"`
	Failure       int                        `json:"failure"`
	DurationMS    int64                      `json:"duration_ms"`
	ThroughputRPS float64                    `json:"throughput_rps"`
	StatusCodes   map[int]int                `json:"status_codes"`
	ErrorCodes    map[string]int             `json:"error_codes"`
	Providers     map[string]ProviderSummary `json:"providers"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/v1/dispatch", "Dispatch endpoint")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		prompt      = flag.String("prompt", "Transcribe the attached recording", "Prompt sent with every dispatch")
		timeout     = flag.Duration("timeout", time.Minute, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
	)
	flag.Parse()

	body, _ := json.Marshal(map[string]string{"prompt": *prompt})
	client := &http.Client{Timeout: *timeout}

	jobs := make(chan int)
	samples := make([]sample, 0, *requests)
	var mutex sync.Mutex

	start := time.Now()

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < *requests; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < *concurrency; i++ {
		g.Go(func() error {
			for range jobs {
				s := send(ctx, client, *url, body)
				mutex.Lock()
				samples = append(samples, s)
				mutex.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
		os.Exit(1)
	}

	summary := summarize(*url, samples, time.Since(start))
	printSummary(summary)

	if *outJSON != "" {
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(summary)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if summary.Failure > 0 {
		os.Exit(2)
	}
}

func send(ctx context.Context, client *http.Client, url string, body []byte) sample {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sample{Error: "request_error", Duration: time.Since(start)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return sample{Error: "transport_error", Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	var payload struct {
		Provider string `json:"provider"`
		Error    string `json:"error"`
	}
	data, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(data, &payload)

	return sample{
		Provider: payload.Provider,
		Error:    payload.Error,
		Status:   resp.StatusCode,
		Duration: time.Since(start),
	}
}

func summarize(target string, samples []sample, elapsed time.Duration) Summary {
	summary := Summary{
		Target:      target,
		Requests:    len(samples),
		DurationMS:  elapsed.Milliseconds(),
		StatusCodes: make(map[int]int),
		ErrorCodes:  make(map[string]int),
		Providers:   make(map[string]ProviderSummary),
	}
	if elapsed > 0 {
		summary.ThroughputRPS = float64(len(samples)) / elapsed.Seconds()
	}

	latencies := make(map[string][]time.Duration)
	for _, s := range samples {
		if s.Status != 0 {
			summary.StatusCodes[s.Status]++
		}
		if s.Status >= 200 && s.Status <= 299 {
			summary.Success++
			latencies[s.Provider] = append(latencies[s.Provider], s.Duration)
			continue
		}
		summary.Failure++
		summary.ErrorCodes[s.Error]++
	}

	for name, durations := range latencies {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		summary.Providers[name] = ProviderSummary{
			Total: len(durations),
			P50:   percentile(durations, 0.50),
			P90:   percentile(durations, 0.90),
			P99:   percentile(durations, 0.99),
		}
	}

	return summary
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * pct)
	return float64(sorted[idx].Microseconds()) / 1000.0
}

func printSummary(s Summary) {
	fmt.Println("--- Dispatch Load Test Summary ---")
	fmt.Printf("Target: %s\n", s.Target)
	fmt.Printf("Requests: %d  Success: %d  Failure: %d\n", s.Requests, s.Success, s.Failure)
	fmt.Printf("Duration: %dms  Throughput: %.2f req/s\n", s.DurationMS, s.ThroughputRPS)

	fmt.Println("\nStatus codes:")
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d -> %d\n", code, s.StatusCodes[code])
	}

	if len(s.ErrorCodes) > 0 {
		fmt.Println("\nErrors:")
		for code, n := range s.ErrorCodes {
			fmt.Printf("  %s -> %d\n", code, n)
		}
	}

	fmt.Println("\nAnswered by:")
	names := make([]string, 0, len(s.Providers))
	for name := range s.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := s.Providers[name]
		fmt.Printf("  %s -> total=%d p50=%.1fms p90=%.1fms p99=%.1fms\n", name, p.Total, p.P50, p.P90, p.P99)
	}
}
