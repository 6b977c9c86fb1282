package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// TraceCollector listens for OTLP traces.
type TraceCollector struct {
	mu         sync.Mutex
	traceCount int
	server     *http.Server
	port       int
}

func (tc *TraceCollector) Start() error {
	// Listen on a random available port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	tc.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/traces", tc.handleTraces)

	tc.server = &http.Server{
		Handler: mux,
	}

	go func() {
		if err := tc.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Trace collector server error: %v", err)
		}
	}()

	return nil
}

func (tc *TraceCollector) Stop() {
	if tc.server != nil {
		tc.server.Close()
	}
}

func (tc *TraceCollector) handleTraces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Each request is one exported batch
	tc.mu.Lock()
	tc.traceCount++
	tc.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (tc *TraceCollector) GetTraceCount() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.traceCount
}

func main() {
	if err := run(); err != nil {
		log.Printf("OTEL integration test failed: %v", err)
		os.Exit(1)
	}
	fmt.Println("OTEL integration test completed successfully!")
}

func run() error {
	// 1. Start OTLP trace collector
	collector := &TraceCollector{}
	if err := collector.Start(); err != nil {
		return fmt.Errorf("failed to start trace collector: %w", err)
	}
	defer collector.Stop()

	collectorURL := fmt.Sprintf("http://127.0.0.1:%d", collector.port)
	fmt.Printf("Trace collector started on %s\n", collectorURL)

	workDir, err := os.MkdirTemp("", "pandatv-otel")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	// 2. Start pandatv with OTLP configuration
	cmd, err := startPandatv(workDir, collectorURL)
	if err != nil {
		return fmt.Errorf("failed to start pandatv: %w", err)
	}
	defer stopPandatv(cmd)

	// Wait for server to be ready
	statusURL := "http://localhost:34400/api/status"
	if err := waitForServerReady(statusURL); err != nil {
		return fmt.Errorf("pandatv server not ready: %w", err)
	}

	// 3. Make requests to pandatv to generate traces
	fmt.Println("Sending requests to pandatv...")
	for _, url := range []string{statusURL, "http://localhost:34400/api/channels?category=All"} {
		resp, err := http.Get(url)
		if err != nil {
			return fmt.Errorf("failed to make request to pandatv: %w", err)
		}
		resp.Body.Close()
	}

	// 4. Verify traces received
	fmt.Println("Waiting for traces...")
	if err := waitForTraces(collector); err != nil {
		return fmt.Errorf("trace verification failed: %w", err)
	}

	return nil
}

func startPandatv(workDir, collectorEndpoint string) (*exec.Cmd, error) {
	fmt.Println("Building and starting pandatv server...")
	var binary = filepath.Join(workDir, "pandatv_otel_test")

	buildCmd := exec.Command("go", "build", "-o", binary, "pandatv.go")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to build pandatv: %w\n%s", err, string(out))
	}

	var playlist = filepath.Join(workDir, "channels.m3u")
	content := "#EXTM3U\n#EXTINF:-1 tvg-id=\"one\" group-title=\"News\",One\nhttp://127.0.0.1/one.m3u8\n"
	if err := os.WriteFile(playlist, []byte(content), 0644); err != nil {
		return nil, err
	}

	var config = filepath.Join(workDir, "config")
	if err := os.MkdirAll(config, 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(config, "settings.json"), []byte(`{"ssdp": false}`), 0644); err != nil {
		return nil, err
	}

	cmd := exec.Command(binary, "-port=34400", "-config="+config, "-playlist="+playlist)

	// The scheme of the endpoint makes the exporter use plain http
	env := os.Environ()
	env = append(env, "OTEL_EXPORTER_TYPE=otlp-http")
	env = append(env, fmt.Sprintf("OTEL_EXPORTER_OTLP_ENDPOINT=%s", collectorEndpoint))

	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func stopPandatv(cmd *exec.Cmd) {
	if cmd.Process != nil {
		cmd.Process.Signal(os.Interrupt)
		cmd.Wait()
	}
}

func waitForServerReady(url string) error {
	fmt.Println("Waiting for pandatv to be ready...")
	for i := 0; i < 30; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("timeout waiting for server")
}

func waitForTraces(collector *TraceCollector) error {
	// Wait up to 10 seconds for traces
	for i := 0; i < 20; i++ {
		count := collector.GetTraceCount()
		if count > 0 {
			fmt.Printf("Received %d traces.\n", count)
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("no traces received after timeout")
}
