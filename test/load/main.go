package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LoadTestConfig drives GET traffic against the public read paths: the
// campaign listing, a campaign page and the home page.
type LoadTestConfig struct {
	BaseURL           string
	Paths             []string
	RequestsPerSecond int
	DurationSeconds   int
	ConcurrentWorkers int
}

type Stats struct {
	successCount  atomic.Int64
	errorCount    atomic.Int64
	limitedCount  atomic.Int64
	responseTimes []float64
	perPath       map[string]*atomic.Int64
	mu            sync.Mutex
}

func newStats(paths []string) *Stats {
	s := &Stats{perPath: make(map[string]*atomic.Int64, len(paths))}
	for _, p := range paths {
		s.perPath[p] = &atomic.Int64{}
	}
	return s
}

func (s *Stats) addResponseTime(d float64) {
	s.mu.Lock()
	s.responseTimes = append(s.responseTimes, d)
	s.mu.Unlock()
}

func (s *Stats) sortedResponseTimes() []float64 {
	s.mu.Lock()
	times := make([]float64, len(s.responseTimes))
	copy(times, s.responseTimes)
	s.mu.Unlock()
	sort.Float64s(times)
	return times
}

func sendRequest(client *http.Client, url, path string, stats *Stats) {
	start := time.Now()
	resp, err := client.Get(url + path)
	if err != nil {
		stats.errorCount.Add(1)
		stats.addResponseTime(time.Since(start).Seconds())
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	stats.addResponseTime(time.Since(start).Seconds())
	stats.perPath[path].Add(1)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		stats.limitedCount.Add(1)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		stats.successCount.Add(1)
	default:
		stats.errorCount.Add(1)
	}
}

func worker(client *http.Client, cfg LoadTestConfig, stats *Stats, jobs <-chan int, wg *sync.WaitGroup) {
	defer wg.Done()
	for n := range jobs {
		sendRequest(client, cfg.BaseURL, cfg.Paths[n%len(cfg.Paths)], stats)
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := LoadTestConfig{
		BaseURL:           strings.TrimRight(getEnvOrDefault("TARGET_URL", "http://localhost:8080"), "/"),
		Paths:             strings.Split(getEnvOrDefault("TARGET_PATHS", "/api/v1/campaigns,/,/api/v1/settings"), ","),
		RequestsPerSecond: getEnvIntOrDefault("REQUESTS_PER_SECOND", 500),
		DurationSeconds:   getEnvIntOrDefault("DURATION_SECONDS", 30),
		ConcurrentWorkers: getEnvIntOrDefault("CONCURRENT_WORKERS", 100),
	}

	fmt.Println("Starting load test...")
	fmt.Printf("Target: %s %v\n", cfg.BaseURL, cfg.Paths)
	fmt.Printf("Target RPS: %d for %d seconds with %d workers\n", cfg.RequestsPerSecond, cfg.DurationSeconds, cfg.ConcurrentWorkers)
	fmt.Println(strings.Repeat("-", 50))

	stats := newStats(cfg.Paths)
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.ConcurrentWorkers,
			MaxIdleConnsPerHost: cfg.ConcurrentWorkers,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: 30 * time.Second,
	}

	jobs := make(chan int, cfg.RequestsPerSecond)
	var wg sync.WaitGroup
	for i := 0; i < cfg.ConcurrentWorkers; i++ {
		wg.Add(1)
		go worker(client, cfg, stats, jobs, &wg)
	}

	start := time.Now()
	sent := 0
	for sec := 0; sec < cfg.DurationSeconds; sec++ {
		batchStart := time.Now()
		for j := 0; j < cfg.RequestsPerSecond; j++ {
			jobs <- sent
			sent++
		}
		fmt.Printf("[%ds] ok: %d | limited: %d | errors: %d\n",
			sec+1, stats.successCount.Load(), stats.limitedCount.Load(), stats.errorCount.Load())
		if elapsed := time.Since(batchStart); elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}
	close(jobs)
	wg.Wait()

	duration := time.Since(start).Seconds()
	ok, limited, failed := stats.successCount.Load(), stats.limitedCount.Load(), stats.errorCount.Load()
	total := ok + limited + failed
	times := stats.sortedResponseTimes()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2f seconds\n", duration)
	fmt.Printf("Total requests: %d (ok %d, rate limited %d, failed %d)\n", total, ok, limited, failed)
	if total > 0 {
		fmt.Printf("Success rate: %.2f%%\n", float64(ok)/float64(total)*100)
	}
	fmt.Printf("Actual RPS: %.2f\n", float64(total)/duration)
	for _, p := range cfg.Paths {
		fmt.Printf("  %-30s %d\n", p, stats.perPath[p].Load())
	}
	if len(times) > 0 {
		fmt.Printf("\nResponse times:\n")
		fmt.Printf("  P50: %.2f ms\n", percentile(times, 0.50)*1000)
		fmt.Printf("  P95: %.2f ms\n", percentile(times, 0.95)*1000)
		fmt.Printf("  P99: %.2f ms\n", percentile(times, 0.99)*1000)
		fmt.Printf("  Min: %.2f ms\n", times[0]*1000)
		fmt.Printf("  Max: %.2f ms\n", times[len(times)-1]*1000)
	}
}
