package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	port     = "34400"
	channels = 120
)

// View is the part of the server view the checks look at.
type View struct {
	Categories []string `json:"categories"`
	Channels   []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Group string `json:"group"`
	} `json:"channels"`
	Shown    int    `json:"shown"`
	Total    int    `json:"total"`
	HasMore  bool   `json:"hasMore"`
	Category string `json:"category"`
	Pages    int    `json:"pages"`
}

// WebSocketResponse defines the structure of a response from the server.
type WebSocketResponse struct {
	Status   bool   `json:"status"`
	Error    string `json:"err,omitempty"`
	Cmd      string `json:"cmd"`
	View     *View  `json:"view,omitempty"`
	Pending  bool   `json:"pending,omitempty"`
	Playback *struct {
		URL  string `json:"url"`
		Kind string `json:"kind"`
	} `json:"playback,omitempty"`
}

func main() {
	workDir, err := os.MkdirTemp("", "pandatv-ci")
	if err != nil {
		log.Fatalf("Failed to create work dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	// 1. Start the pandatv server
	cmd, err := startPandatv(workDir)
	if err != nil {
		log.Fatalf("Failed to start pandatv: %v", err)
	}
	defer stopPandatv(cmd)

	// Wait for the server to be ready
	if err := waitForServerReady("http://localhost:" + port + "/web/"); err != nil {
		log.Fatalf("Server not ready: %v", err)
	}

	// 2. Run the tests
	if err := runTests(); err != nil {
		log.Fatalf("Tests failed: %v", err)
	}

	fmt.Println("CI test completed successfully!")
}

// writePlaylist writes channels entries spread over Sports, News and Movies.
func writePlaylist(path string) error {
	var groups = []string{"Sports", "News", "Movies"}
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	for i := 0; i < channels; i++ {
		fmt.Fprintf(&b, "#EXTINF:-1 tvg-id=\"ch%d\" tvg-logo=\"\" group-title=\"%s\",Channel %03d\n", i, groups[i%len(groups)], i)
		fmt.Fprintf(&b, "http://127.0.0.1/stream/%d.m3u8\n", i)
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func startPandatv(workDir string) (*exec.Cmd, error) {
	fmt.Println("Starting pandatv server...")
	var binary = filepath.Join(workDir, "pandatv_test_binary")

	// Build the pandatv binary first
	buildCmd := exec.Command("go", "build", "-o", binary, "pandatv.go")
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to build pandatv: %w\n%s", err, string(buildOutput))
	}

	var playlist = filepath.Join(workDir, "channels.m3u")
	if err := writePlaylist(playlist); err != nil {
		return nil, err
	}

	var config = filepath.Join(workDir, "config")
	if err := os.MkdirAll(config, 0755); err != nil {
		return nil, err
	}
	settings := `{"ssdp": false, "revealDelayMs": 200, "otelExporter": "none"}`
	if err := os.WriteFile(filepath.Join(config, "settings.json"), []byte(settings), 0644); err != nil {
		return nil, err
	}

	cmd := exec.Command(binary, "-port="+port, "-config="+config, "-playlist="+playlist)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func stopPandatv(cmd *exec.Cmd) {
	fmt.Println("Stopping pandatv server...")
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		log.Printf("Failed to interrupt pandatv process: %v", err)
		cmd.Process.Kill()
		return
	}
	cmd.Wait()
}

func waitForServerReady(url string) error {
	fmt.Println("Waiting for server to be ready...")
	for i := 0; i < 30; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			fmt.Println("Server is ready.")
			resp.Body.Close()
			return nil
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("server is not ready after 30 seconds")
}

// sendRequest sends a JSON request to the WebSocket and returns the server's response.
func sendRequest(conn *websocket.Conn, request map[string]string) (*WebSocketResponse, error) {
	if err := conn.WriteJSON(request); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return readResponse(conn)
}

func readResponse(conn *websocket.Conn) (*WebSocketResponse, error) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response WebSocketResponse
	if err := json.Unmarshal(msg, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !response.Status {
		return &response, fmt.Errorf("%s: %s", response.Cmd, response.Error)
	}

	return &response, nil
}

func expectShown(resp *WebSocketResponse, shown, total int, hasMore bool) error {
	if resp.View == nil {
		return fmt.Errorf("%s: response without view", resp.Cmd)
	}
	if resp.View.Shown != shown || resp.View.Total != total || resp.View.HasMore != hasMore {
		return fmt.Errorf("%s: expected %d/%d hasMore=%t, got %d/%d hasMore=%t",
			resp.Cmd, shown, total, hasMore, resp.View.Shown, resp.View.Total, resp.View.HasMore)
	}
	return nil
}

func runTests() error {
	fmt.Println("Running tests...")

	// 1. Connect to the WebSocket
	wsURL := "ws://localhost:" + port + "/data/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close()

	// 2. Initial view
	fmt.Println("Testing initial view...")
	resp, err := sendRequest(conn, map[string]string{"cmd": "getView"})
	if err != nil {
		return err
	}
	if err := expectShown(resp, 50, channels, true); err != nil {
		return err
	}
	if strings.Join(resp.View.Categories, ",") != "Movies,News,Sports" {
		return fmt.Errorf("unexpected categories: %v", resp.View.Categories)
	}

	// 3. Reveal more, twice in a row: the second trigger is ignored while the first is pending
	fmt.Println("Testing reveal more...")
	if err := conn.WriteJSON(map[string]string{"cmd": "revealMore"}); err != nil {
		return err
	}
	resp, err = sendRequest(conn, map[string]string{"cmd": "revealMore"})
	if err != nil {
		return err
	}
	if !resp.Pending {
		return fmt.Errorf("expected the second reveal to be ignored while pending")
	}
	if resp, err = readResponse(conn); err != nil {
		return err
	}
	if err := expectShown(resp, 100, channels, true); err != nil {
		return err
	}

	resp, err = sendRequest(conn, map[string]string{"cmd": "revealMore"})
	if err != nil {
		return err
	}
	if err := expectShown(resp, channels, channels, false); err != nil {
		return err
	}

	// 4. Category selection resets paging
	fmt.Println("Testing category selection...")
	resp, err = sendRequest(conn, map[string]string{"cmd": "selectCategory", "category": "News"})
	if err != nil {
		return err
	}
	if err := expectShown(resp, 40, 40, false); err != nil {
		return err
	}
	for _, c := range resp.View.Channels {
		if c.Group != "News" {
			return fmt.Errorf("channel %s in group %s listed under News", c.ID, c.Group)
		}
	}

	// 5. Search within the category
	fmt.Println("Testing search...")
	resp, err = sendRequest(conn, map[string]string{"cmd": "search", "query": "channel 00"})
	if err != nil {
		return err
	}
	// Channel 001, 004 and 007 are in News.
	if err := expectShown(resp, 3, 3, false); err != nil {
		return err
	}

	// 6. Playback descriptor
	fmt.Println("Testing playback...")
	resp, err = sendRequest(conn, map[string]string{"cmd": "play", "id": "ch1"})
	if err != nil {
		return err
	}
	if resp.Playback == nil || resp.Playback.Kind != "hls" {
		return fmt.Errorf("expected an hls playback descriptor, got %+v", resp.Playback)
	}

	// 7. Unknown channel
	if _, err = sendRequest(conn, map[string]string{"cmd": "play", "id": "missing"}); err == nil {
		return fmt.Errorf("expected an error for an unknown channel")
	}

	fmt.Println("Channel browser behaves as expected.")
	return nil
}
