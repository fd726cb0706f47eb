// Package main is the Recall CLI entry point.
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
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/studyforge/recall/internal/cli"
	"github.com/studyforge/recall/internal/config"
	"github.com/studyforge/recall/internal/embedding"
	"github.com/studyforge/recall/internal/extract"
	"github.com/studyforge/recall/internal/ingest"
	"github.com/studyforge/recall/internal/models"
	"github.com/studyforge/recall/internal/search"
	"github.com/studyforge/recall/internal/server"
	"github.com/studyforge/recall/internal/storage"
	"github.com/studyforge/recall/internal/watcher"
	"github.com/studyforge/recall/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/recall/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "recall server" from the project dir picks up the project's
// config.
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "ingest":
		runIngest()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("recall version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, cache hits, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
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
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.NewPipelineWatcher(
			components.Pipeline,
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			logger,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Engine,
		components.Pipeline,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word
// queries work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: recall search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  recall search photosynthesis light reactions
  recall search --limit 20 --threshold 0.6 cell respiration
  recall search --subject biology --difficulty medium mitosis
  recall search --output json "krebs cycle"
`)
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	threshold := fs.Float64("threshold", -1, "minimum similarity in [-1, 1] (unset = configured default)")
	subject := fs.String("subject", "", "filter by subject")
	author := fs.String("author", "", "filter by author")
	difficulty := fs.String("difficulty", "", "filter by difficulty (easy|medium|hard)")
	contentType := fs.String("content-type", "", "filter by content type (notes|exam|summary|exercise|reference)")
	ownerID := fs.String("owner", "", "filter by owner ID")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "compact":
		format = cli.OutputCompact
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text, compact, or json\n", *outputFormat)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query: queryStr,
		Limit: *limit,
		Filters: models.Filters{
			Subject:     *subject,
			Author:      *author,
			Difficulty:  models.Difficulty(*difficulty),
			ContentType: models.ContentType(*contentType),
			OwnerID:     *ownerID,
		},
	}
	if *threshold >= -1 && *threshold <= 1 && *threshold != -1 {
		searchQuery.Threshold = threshold
	}

	if *serverURL != "" {
		response, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct storage access (when server is not running).
	cfg, _, err := loadConfig(*configPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Engine.Search(context.Background(), searchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	title := fs.String("title", "", "document title (defaults to filename)")
	subject := fs.String("subject", "", "subject the document belongs to")
	author := fs.String("author", "", "document author")
	tags := fs.String("tags", "", "comma-separated tags")
	difficulty := fs.String("difficulty", "", "difficulty (easy|medium|hard)")
	contentType := fs.String("content-type", "", "content type (notes|exam|summary|exercise|reference)")
	ownerID := fs.String("owner", "", "owner ID")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: recall ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	input := &ingest.DocumentInput{
		Title:       *title,
		Subject:     *subject,
		Author:      *author,
		Difficulty:  models.Difficulty(*difficulty),
		ContentType: models.ContentType(*contentType),
		OwnerID:     *ownerID,
	}
	for _, t := range strings.Split(*tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			input.Tags = append(input.Tags, t)
		}
	}

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := ingestDirectory(ctx, components.Pipeline, path, cfg.Watch.Extensions, input)
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	abs, _ := filepath.Abs(path)
	fileInput := *input
	fileInput.ID = watcher.FileDocID(abs)
	doc, err := components.Pipeline.IngestFile(ctx, path, &fileInput)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document ingested: %s (%d chunks)\n", doc.ID, len(doc.Chunks))
}

// ingestDirectory ingests every matching file under root. Per-file failures
// are reported and skipped so one bad file does not abort the batch.
func ingestDirectory(ctx context.Context, pipeline *ingest.Pipeline, root string, extensions []string, base *ingest.DocumentInput) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if len(extensions) > 0 {
			ext := strings.ToLower(filepath.Ext(path))
			matched := false
			for _, e := range extensions {
				if strings.EqualFold(strings.TrimPrefix(e, "."), strings.TrimPrefix(ext, ".")) {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}
		abs, _ := filepath.Abs(path)
		input := *base
		input.ID = watcher.FileDocID(abs)
		input.Title = ""
		if _, err := pipeline.IngestFile(ctx, path, &input); err != nil {
			fmt.Printf("  skipped %s: %v\n", path, err)
			return nil
		}
		count++
		return nil
	})
	return count, err
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: recall delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	deleted, err := components.Pipeline.Delete(context.Background(), docID)
	if err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	if !deleted {
		fmt.Printf("Document not found: %s\n", docID)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Documents int64                  `json:"documents"`
	Chunks    int64                  `json:"chunks"`
	Config    map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		docCount, err := components.Store.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Store.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents: docCount,
			Chunks:    chunkCount,
			Config: map[string]interface{}{
				"embedding_provider":   cfg.Embedding.Provider,
				"embedding_model":      cfg.Embedding.Model,
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"chunk_size":           cfg.Ingest.ChunkSize,
				"chunk_overlap":        cfg.Ingest.ChunkOverlap,
				"database_path":        cfg.Storage.DatabasePath,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:  %d\n", status.Documents)
		fmt.Printf("chunks:     %d\n", status.Chunks)
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"embedding_provider", "embedding_model", "embedding_dimensions", "chunk_size", "chunk_overlap", "database_path"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-22s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Store    storage.Store
	Embedder *embedding.Client
	Pipeline *ingest.Pipeline
	Engine   *search.Engine
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var clientOpts []embedding.ClientOption
	if debug && logger != nil {
		clientOpts = append(clientOpts, embedding.WithLogger(logger))
	}
	embedder, err := embedding.NewClientFromConfig(&cfg.Embedding, clientOpts...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	pipelineOpts := []ingest.PipelineOption{}
	if debug && logger != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithLogger(logger))
	}
	pipeline, err := ingest.NewPipeline(store, embedder, extract.NewExtractor(), &cfg.Ingest, pipelineOpts...)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize ingestion pipeline: %w", err)
	}

	engineOpts := []search.EngineOption{}
	if debug && logger != nil {
		engineOpts = append(engineOpts, search.WithLogger(logger))
	}
	engine := search.NewEngine(store, embedder, &cfg.Search, engineOpts...)

	return &Components{
		Store:    store,
		Embedder: embedder,
		Pipeline: pipeline,
		Engine:   engine,
	}, nil
}

func printUsage() {
	fmt.Println(`recall - Document embedding and semantic retrieval service

Usage:
  recall server [flags]           Start the HTTP server
  recall search [flags] <query>   Search documents by meaning
  recall ingest [flags] <path>    Ingest a file or directory
  recall delete [flags] <id>      Delete a document
  recall status [flags]           Show document/chunk counts and config
  recall version                  Show version
  recall help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/recall/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string        Config file path (for direct storage mode)
  --server string        Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --limit int            Number of results (default from config)
  --threshold float      Minimum similarity in [-1, 1] (default from config)
  --subject string       Filter by subject
  --author string        Filter by author
  --difficulty string    Filter by difficulty: easy, medium, hard
  --content-type string  Filter by content type: notes, exam, summary, exercise, reference
  --owner string         Filter by owner ID
  --output string        Output format: text, compact, or json (default: text)

Ingest Flags:
  --config string        Config file path
  --title string         Document title (defaults to filename)
  --subject string       Subject
  --author string        Author
  --tags string          Comma-separated tags
  --difficulty string    Difficulty: easy, medium, hard
  --content-type string  Content type: notes, exam, summary, exercise, reference
  --owner string         Owner ID

Examples:
  recall server
  recall ingest --subject biology --difficulty medium notes.pdf
  recall ingest ~/study/biology
  recall search photosynthesis light reactions
  recall search --subject biology --output json mitosis
  recall delete doc-123
  recall status`)
}
