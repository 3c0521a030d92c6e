package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/mediapull/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "mediapull",
		Short: "mediapull CLI - camera media download sessions",
		Long:  `A command-line interface for importing camera media listings, replaying downloads and inspecting download sessions.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8090", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	filesCmd.AddCommand(filesImportCmd)
	filesCmd.AddCommand(filesListCmd)

	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(logsCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() *apiClient {
	if !noAutoStart {
		if err := ensureServerRunning(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return newAPIClient(serverURL)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func positionFlag(cmd *cobra.Command) domain.MountPosition {
	raw, _ := cmd.Flags().GetString("position")
	position, err := domain.ParseMountPosition(raw)
	exitOnError(err)
	return position
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage camera media listings",
}

var filesImportCmd = &cobra.Command{
	Use:   "import [manifest.yaml]",
	Short: "Replace a position's media listing from a YAML manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()

		m, err := loadManifest(args[0])
		exitOnError(err)

		position := domain.MountPosition(m.Position)
		if cmd.Flags().Changed("position") || m.Position == 0 {
			position = positionFlag(cmd)
		}

		files := m.Descriptors()
		exitOnError(client.ReplaceFiles(position, files))
		fmt.Printf("Imported %d files for position %s\n", len(files), position)
	},
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a position's media listing",
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()
		position := positionFlag(cmd)

		files, err := client.ListFiles(position)
		exitOnError(err)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tNAME\tTYPE\tSIZE")
		for _, f := range files {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", f.FileIndex, f.FileName, f.FileType, f.FileSize)
		}
		w.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state of every mount position",
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()

		var snaps []map[string]interface{}
		exitOnError(client.getJSON("/api/v1/positions", &snaps))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "POSITION\tSTATE\tFILE\tBYTES\tPERCENT\tCOMPLETED\tFAILED\tVIOLATIONS")
		for _, s := range snaps {
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
				s["position"], s["state"], valueOr(s["file_name"], "-"), s["bytes_written"],
				s["percent"], s["completed"], s["failed"], s["violations"])
		}
		w.Flush()
	},
}

var abortCmd = &cobra.Command{
	Use:   "abort [file_index]",
	Short: "Abort the active download of a position",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()
		position := positionFlag(cmd)

		index, err := strconv.ParseUint(args[0], 10, 32)
		exitOnError(err)

		exitOnError(client.Abort(position, uint32(index)))
		fmt.Println("Download aborted")
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [file]",
	Short: "Replay a local file as a download session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()
		position := positionFlag(cmd)
		index, _ := cmd.Flags().GetUint32("file-index")
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")

		file, err := os.Open(args[0])
		exitOnError(err)
		defer file.Close()

		info, err := file.Stat()
		exitOnError(err)

		packets, err := pushFile(client, position, index, info.Size(), file, chunkSize)
		exitOnError(err)
		fmt.Printf("Sent %d packets (%d bytes) to position %s\n", packets, info.Size(), position)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List download history",
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()
		status, _ := cmd.Flags().GetString("status")
		position, _ := cmd.Flags().GetString("position")

		q := url.Values{}
		if status != "" {
			q.Set("status", status)
		}
		if position != "" {
			q.Set("position", position)
		}
		path := "/api/v1/downloads"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var downloads []map[string]interface{}
		exitOnError(client.getJSON(path, &downloads))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPOSITION\tINDEX\tNAME\tSTATUS\tBYTES\tKB/S\tCREATED")
		for _, d := range downloads {
			fmt.Fprintf(w, "%s\t%v\t%v\t%s\t%v\t%v\t%v\t%v\n",
				truncate(fmt.Sprint(d["id"]), 8),
				d["position"],
				d["file_index"],
				truncate(fmt.Sprint(d["file_name"]), 40),
				d["status"],
				d["bytes_written"],
				d["average_speed_kbps"],
				d["created_at"])
		}
		w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get download details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()

		var download map[string]interface{}
		exitOnError(client.getJSON("/api/v1/downloads/"+url.PathEscape(args[0]), &download))

		fmt.Printf("Download Details:\n")
		fmt.Printf("  ID:       %v\n", download["id"])
		fmt.Printf("  Position: %v\n", download["position"])
		fmt.Printf("  Index:    %v\n", download["file_index"])
		fmt.Printf("  Name:     %v\n", download["file_name"])
		fmt.Printf("  Status:   %v\n", download["status"])
		fmt.Printf("  Bytes:    %v / %v\n", download["bytes_written"], download["file_size"])
		fmt.Printf("  Speed:    %v KB/s\n", download["average_speed_kbps"])
		fmt.Printf("  Created:  %v\n", download["created_at"])
		if download["local_path"] != nil {
			fmt.Printf("  Location: %v\n", download["local_path"])
		}
		if download["error_message"] != nil {
			fmt.Printf("  Error:    %v\n", download["error_message"])
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()

		var stats domain.DownloadStats
		exitOnError(client.getJSON("/api/v1/downloads/stats", &stats))

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Receiving:  %d\n", stats.Receiving)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Aborted:    %d\n", stats.Aborted)
		fmt.Printf("  Bytes:      %d\n", stats.BytesWritten)
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View category logs (download, session, access, error)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := ensureServer()
		jsonOutput, _ := cmd.Flags().GetBool("json")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")

		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		path := "/api/v1/logs/" + url.PathEscape(args[0])
		if search != "" {
			path += "/search"
			q.Set("q", search)
		}

		var result struct {
			Entries []struct {
				Timestamp string                 `json:"timestamp"`
				Level     string                 `json:"level"`
				Message   string                 `json:"message"`
				Fields    map[string]interface{} `json:"fields"`
			} `json:"entries"`
		}
		exitOnError(client.getJSON(path+"?"+q.Encode(), &result))

		if jsonOutput {
			prettyJSON, _ := json.MarshalIndent(result.Entries, "", "  ")
			fmt.Println(string(prettyJSON))
			return
		}
		for _, e := range result.Entries {
			fields, _ := json.Marshal(e.Fields)
			fmt.Printf("%s %-5s %s %s\n", e.Timestamp, e.Level, e.Message, fields)
		}
	},
}

func init() {
	for _, cmd := range []*cobra.Command{filesImportCmd, filesListCmd, abortCmd, pushCmd} {
		cmd.Flags().StringP("position", "p", "1", "Mount position (1, 2, 3 or 80)")
	}
	pushCmd.Flags().Uint32P("file-index", "i", 0, "File index within the position's listing")
	pushCmd.Flags().IntP("chunk-size", "c", 4096, "Bytes per packet")
	historyCmd.Flags().StringP("status", "s", "", "Filter by status")
	historyCmd.Flags().StringP("position", "p", "", "Filter by mount position")
	logsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	logsCmd.Flags().StringP("search", "q", "", "Only show entries matching text")
	logsCmd.Flags().IntP("limit", "n", 100, "Maximum entries to show")
}

func valueOr(v interface{}, fallback string) interface{} {
	if v == nil {
		return fallback
	}
	return v
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
