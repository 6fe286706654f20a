// Package main is the vaultindex CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/notevault/vaultindex/internal/config"
	"github.com/notevault/vaultindex/internal/models"
	"github.com/notevault/vaultindex/internal/scheduler"
	"github.com/notevault/vaultindex/internal/server"
	"github.com/notevault/vaultindex/internal/store"
	"github.com/notevault/vaultindex/internal/watcher"
	"github.com/notevault/vaultindex/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/vaultindex/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence (for development). Returns the
// config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a .env next to the binary; missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "remove":
		runRemove()
	case "rescan":
		runRescan()
	case "flush":
		runFlush()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("vaultindex version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`vaultindex - semantic search for your note vault

Usage:
  vaultindex server  [-config path] [-debug]   run the indexing server
  vaultindex search  [flags] <query>           search indexed notes
  vaultindex index   [flags] <file>...         index note files
  vaultindex remove  [flags] <path>            remove a note from the index
  vaultindex rescan  [flags]                   trigger a full vault rescan
  vaultindex flush   [flags]                   force-process pending updates
  vaultindex status  [flags]                   show index status
  vaultindex version                           print version
`)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("config loaded", zap.String("config_path", resolvedPath), zap.Bool("debug", debugMode))

	st, err := store.NewIndexStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create index store", zap.Error(err))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := st.Initialize(ctx); err != nil {
		logger.Fatal("failed to initialize index store", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	sched := scheduler.NewScheduler(st, cfg, logger)
	sched.Start(ctx)

	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watch := watcher.NewWatcher(
		cfg.Vault.Directories,
		cfg.Vault.Extensions,
		cfg.Vault.RecursiveOrDefault(),
		sched.QueueFile,
		sched.RemoveFile,
		watchOpts...,
	)
	if err := watch.Start(ctx); err != nil {
		logger.Fatal("failed to start watcher", zap.Error(err))
	}

	srv := server.NewServer(st, sched, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if n := sched.Flush(drainCtx); n > 0 {
		logger.Info("drained pending updates", zap.Int("count", n))
	}
	if err := st.SaveToFile(); err != nil {
		logger.Warn("final snapshot save failed", zap.Error(err))
	}
	watch.Stop()
	sched.Stop()
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = srv.Stop(stopCtx)
}

// serverURL resolves the API base URL from flags or config.
func serverURL(rawURL, configPath string) string {
	if rawURL != "" {
		return strings.TrimSuffix(rawURL, "/")
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return "http://localhost:8080"
	}
	return fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	apiURL := fs.String("url", "", "server URL (default from config)")
	limit := fs.Int("limit", 0, "maximum results (default from server)")
	asJSON := fs.Bool("json", false, "print raw JSON")
	_ = fs.Parse(os.Args[2:])
	queryText := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryText == "" {
		fmt.Println("Usage: vaultindex search [flags] <query>")
		os.Exit(1)
	}

	body, err := postJSON(serverURL(*apiURL, *configPath)+"/api/v1/search", server.SearchRequest{
		Query: queryText,
		Limit: *limit,
	})
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		fmt.Println(string(body))
		return
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		fmt.Printf("Malformed response: %v\n", err)
		os.Exit(1)
	}
	printSearchResults(&resp)
}

func printSearchResults(resp *models.SearchResponse) {
	fmt.Printf("\nFound %d results in %dms\n\n", resp.Total, resp.QueryTime)
	for i, r := range resp.Results {
		fmt.Printf("%2d. %s\n", i+1, r.Path)
		fmt.Printf("    score %.4f (similarity %.4f, title %.4f, recency %.4f) chunk %d\n",
			r.Score, r.BaseScore, r.TitleScore, r.RecencyScore, r.ChunkIndex)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	apiURL := fs.String("url", "", "server URL (default from config)")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() == 0 {
		fmt.Println("Usage: vaultindex index [flags] <file>...")
		os.Exit(1)
	}

	base := serverURL(*apiURL, *configPath)
	for _, path := range fs.Args() {
		abs, err := filepath.Abs(path)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", path, err)
			continue
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", path, err)
			continue
		}
		if _, err := postJSON(base+"/api/v1/notes", server.IndexNoteRequest{
			Path:    abs,
			Content: string(content),
		}); err != nil {
			fmt.Printf("Failed to index %s: %v\n", path, err)
			continue
		}
		fmt.Printf("Indexed %s\n", abs)
	}
}

func runRemove() {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	apiURL := fs.String("url", "", "server URL (default from config)")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		fmt.Println("Usage: vaultindex remove [flags] <path>")
		os.Exit(1)
	}

	target := serverURL(*apiURL, *configPath) + "/api/v1/notes?path=" + url.QueryEscape(fs.Arg(0))
	req, err := http.NewRequest(http.MethodDelete, target, nil)
	if err != nil {
		fmt.Printf("Remove failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := doRequest(req); err != nil {
		fmt.Printf("Remove failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %s\n", fs.Arg(0))
}

func runRescan() {
	fs := flag.NewFlagSet("rescan", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	apiURL := fs.String("url", "", "server URL (default from config)")
	_ = fs.Parse(os.Args[2:])

	if _, err := postJSON(serverURL(*apiURL, *configPath)+"/api/v1/rescan", struct{}{}); err != nil {
		fmt.Printf("Rescan failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Rescan started")
}

func runFlush() {
	fs := flag.NewFlagSet("flush", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	apiURL := fs.String("url", "", "server URL (default from config)")
	_ = fs.Parse(os.Args[2:])

	body, err := postJSON(serverURL(*apiURL, *configPath)+"/api/v1/flush", struct{}{})
	if err != nil {
		fmt.Printf("Flush failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	apiURL := fs.String("url", "", "server URL (default from config)")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(serverURL(*apiURL, *configPath) + "/api/v1/status")
	if err != nil {
		fmt.Printf("Status failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

func postJSON(target string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(req)
}

func doRequest(req *http.Request) ([]byte, error) {
	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, utils.Truncate(strings.TrimSpace(string(body)), 200))
	}
	return body, nil
}
