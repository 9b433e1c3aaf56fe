package httputil_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/wonny/remitquote/pkg/config"
	"github.com/wonny/remitquote/pkg/httputil"
	"github.com/wonny/remitquote/pkg/logger"
)

// Example_basic demonstrates basic HTTP client usage.
func Example_basic() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{Env: "production", LogLevel: "error"}
	log := logger.New(cfg)

	client := httputil.New(cfg, log)

	ctx := context.Background()
	resp, err := client.Get(ctx, server.URL)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("Status: %d\n", resp.StatusCode)
	// Output:
	// Status: 200
}

// Example_withRetry demonstrates retry configuration for a provider
// endpoint that fails intermittently.
func Example_withRetry() {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{Env: "production", LogLevel: "error"}
	log := logger.New(cfg)

	client := httputil.New(cfg, log).WithRetry(3, 10*time.Millisecond)

	ctx := context.Background()
	resp, err := client.Get(ctx, server.URL)
	if err != nil {
		fmt.Printf("Request failed after retries: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Println("Request succeeded")
	// Output:
	// Request succeeded
}

// Example_postJSON demonstrates submitting a quote request body to a
// provider adapter's REST endpoint.
func Example_postJSON() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	cfg := &config.Config{Env: "production", LogLevel: "error"}
	log := logger.New(cfg)

	client := httputil.New(cfg, log)

	data := map[string]interface{}{
		"source_country": "US",
		"dest_country":   "MX",
		"amount":         "500.00",
	}

	ctx := context.Background()
	resp, err := client.PostJSON(ctx, server.URL, data)
	if err != nil {
		fmt.Printf("POST request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("Status: %d\n", resp.StatusCode)
	// Output:
	// Status: 201
}

// Example_timeout demonstrates a per-provider timeout shorter than the
// client default.
func Example_timeout() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{Env: "production", LogLevel: "error"}
	log := logger.New(cfg)

	client := httputil.NewWithTimeout(cfg, log, 5*time.Second)

	ctx := context.Background()
	resp, err := client.Get(ctx, server.URL)
	if err != nil {
		fmt.Printf("Request timed out: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Println("Request completed within timeout")
	// Output:
	// Request completed within timeout
}

// Example_disableRetry demonstrates disabling retry for adapters whose
// error kind should surface immediately rather than being masked by a
// retried 5xx.
func Example_disableRetry() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := &config.Config{Env: "production", LogLevel: "error"}
	log := logger.New(cfg)

	client := httputil.New(cfg, log).DisableRetry()

	ctx := context.Background()
	resp, err := client.Get(ctx, server.URL)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("Status: %d\n", resp.StatusCode)
	// Output:
	// Status: 503
}
