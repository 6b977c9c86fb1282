package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"pandatv/src"
)

var port = flag.String("port", "", ": Server port          [34400] (default: 34400)")
var host = flag.String("host", "", ": Server host                  (default: localhost)")

var client = &http.Client{Timeout: 10 * time.Second}

// runLogic prints the server status. It returns 0 when the playlist is healthy, 1 when the
// server runs on a stored or failed playlist and -1 when the status cannot be read.
func runLogic(cmdHost, cmdPort string, outWriter io.Writer, errWriter io.Writer) int {
	portNum := 34400
	if cmdPort != "" {
		var err error
		portNum, err = strconv.Atoi(cmdPort)
		if err != nil {
			fmt.Fprintf(errWriter, "Unable parse port: %v\n", err)
			return -1
		}
	}

	hostname := "localhost"
	if cmdHost != "" {
		hostname = cmdHost
	}

	resp, err := client.Get(fmt.Sprintf("http://%s:%d/api/status", hostname, portNum))
	if err != nil {
		fmt.Fprintf(errWriter, "Unable to get API: %v\n", err)
		return -1
	}
	defer resp.Body.Close()

	respStr, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(errWriter, "Unable read response: %v\n", err)
		return -1
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(errWriter, "Unexpected status: %s\n", resp.Status)
		fmt.Fprintf(errWriter, "%s\n", respStr)
		return -1
	}

	var status src.APIStatusStruct
	if err = json.Unmarshal(respStr, &status); err != nil {
		fmt.Fprintf(errWriter, "Unable parse response: %v\n", err)
		fmt.Fprintf(errWriter, "%s\n", respStr)
		return -1
	}

	fmt.Fprintf(outWriter, "pandatv status:\n")
	fmt.Fprintf(outWriter, "Status:            %v\n", status.Status)
	fmt.Fprintf(outWriter, "Version:           %v\n", status.Version)
	fmt.Fprintf(outWriter, "API Version:       %v\n", status.VersionAPI)
	fmt.Fprintf(outWriter, "Uptime:            %v\n", status.Uptime)
	fmt.Fprintf(outWriter, "Playlist:          %v\n", status.Playlist)
	fmt.Fprintf(outWriter, "Loaded at:         %v\n", status.LoadedAt)
	fmt.Fprintf(outWriter, "Stored copy:       %v\n", status.FromStore)
	fmt.Fprintf(outWriter, "Channels:          %v\n", status.Channels)
	fmt.Fprintf(outWriter, "Categories:        %v\n", status.Categories)
	fmt.Fprintf(outWriter, "Sessions:          %v\n", status.Sessions)
	fmt.Fprintf(outWriter, "Errors / Warnings: %v / %v\n", status.Errors, status.Warnings)

	if len(status.PlaylistError) > 0 {
		fmt.Fprintf(outWriter, "Playlist error:    %v\n", status.PlaylistError)
		return 1
	}
	if status.FromStore {
		return 1
	}

	return 0
}

func main() {
	flag.Parse()

	exitCode := runLogic(*host, *port, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}
