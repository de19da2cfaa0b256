// Command healthcheck queries the panel's health endpoint from inside the
// container and exits non-zero unless the panel reports itself healthy.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	httphandler "github.com/ericfisherdev/envpanel/internal/adapter/driving/http"
)

const (
	defaultAddr    = "127.0.0.1:8080"
	requestTimeout = 2 * time.Second
)

func main() {
	os.Exit(check())
}

func check() int {
	url := "http://" + normalizeAddr(os.Getenv("ENVPANEL_LISTEN_ADDR")) + "/api/v1/health"

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := verifyHealth(ctx, &http.Client{Timeout: requestTimeout}, url); err != nil {
		slog.Error("unhealthy", "url", url, "error", err)
		return 1
	}
	return 0
}

// verifyHealth fetches the health document and returns an error unless the
// status is 200 and both the overall status and the store check are "ok".
func verifyHealth(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var health httphandler.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding health response (%s): %w", resp.Status, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s, health %q", resp.Status, health.Status)
	}
	if health.Status != "ok" {
		return fmt.Errorf("health %q", health.Status)
	}
	store, ok := health.Checks["store"]
	if !ok {
		return errors.New("store check missing")
	}
	if store != "ok" {
		return fmt.Errorf("store check: %s", store)
	}
	return nil
}

// normalizeAddr points the request at loopback when the panel binds every
// interface, and falls back to the default address on empty or malformed
// input.
func normalizeAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if raw == "" || err != nil {
		return defaultAddr
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
