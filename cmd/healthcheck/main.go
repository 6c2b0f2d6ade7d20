// Package main probes the local /livez endpoint for container health checks.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("TRAVEL_PORT")
	if port == "" {
		port = "10000"
	}
	os.Exit(probe(fmt.Sprintf("http://localhost:%s/livez", port), 5*time.Second))
}

// probe returns the process exit code for one GET of url.
func probe(url string, timeout time.Duration) int {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
