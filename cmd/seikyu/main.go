// Package main is the Seikyu CLI entry point.
package main

import (
	"bufio"
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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/seikyu/internal/chat"
	"github.com/hyperjump/seikyu/internal/config"
	"github.com/hyperjump/seikyu/internal/embedding"
	"github.com/hyperjump/seikyu/internal/extraction"
	"github.com/hyperjump/seikyu/internal/ingest"
	"github.com/hyperjump/seikyu/internal/keyword"
	"github.com/hyperjump/seikyu/internal/llm"
	"github.com/hyperjump/seikyu/internal/server"
	"github.com/hyperjump/seikyu/internal/session"
	"github.com/hyperjump/seikyu/internal/storage"
	"github.com/hyperjump/seikyu/internal/vector"
	"github.com/hyperjump/seikyu/internal/watcher"
	"github.com/hyperjump/seikyu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/seikyu/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's config.
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
	// API keys can live in a .env next to the binary during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "chat":
		runChat()
	case "records":
		runRecords()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("seikyu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: seikyu <command> [flags]

Commands:
  server    Start the HTTP API server (uploads, chat, search)
  ingest    Extract and store documents from the command line
  chat      Interactive chat with the invoice assistant (needs a running server)
  records   List stored invoices and purchase orders
  search    Keyword search over stored records (needs a running server)
  status    Show record and index counts (needs a running server)
  version   Print the version
`)
}

// components holds the wired pipeline shared by server and ingest commands.
type components struct {
	Store    *storage.SQLiteStore
	Embedder embedding.Embedder
	Vectors  *vector.Store
	Keywords *keyword.BleveIndex
	Ingestor *ingest.Ingestor
	Router   *chat.Router
	Sessions *session.Manager
}

func (c *components) Close() {
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	gemini, err := embedding.NewGeminiEmbedder(ctx, cfg.Embedding.APIKey(), cfg.Embedding.Model, cfg.Embedding.Dimensions)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	embedder := embedding.NewCachedEmbedder(gemini, cfg.Embedding.CacheSize)

	vectors, err := vector.NewStore(embedder, store, cfg.Storage.VectorIndexPath, vector.WithLogger(logger))
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	if err := vectors.Initialize(ctx); err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("initialize vector store: %w", err)
	}

	keywords, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	llmClient := llm.NewOpenAIClient(llm.ClientConfig{
		APIKey:         cfg.LLM.APIKey(),
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	extractor := extraction.NewClient(llmClient, store, extraction.WithLogger(logger))
	ingestor := ingest.NewIngestor(extractor, store, vectors,
		ingest.WithKeywordIndexer(keywords), ingest.WithLogger(logger))
	router := chat.NewRouter(llmClient, vectors,
		chat.WithTopK(cfg.Retrieval.TopK), chat.WithLogger(logger))

	return &components{
		Store:    store,
		Embedder: embedder,
		Vectors:  vectors,
		Keywords: keywords,
		Ingestor: ingestor,
		Router:   router,
		Sessions: session.NewManager(),
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
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

	ctx := context.Background()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.NewWatcher(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				result, err := comps.Ingestor.IngestFile(context.Background(), path)
				if err != nil {
					logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Info("inbox document processed",
					zap.String("path", path),
					zap.Bool("saved", result.Saved),
					zap.String("message", result.Message))
			},
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		comps.Ingestor,
		comps.Store,
		comps.Router,
		comps.Sessions,
		comps.Keywords,
		comps.Vectors,
		&cfg.Server,
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
	if err := comps.Vectors.Persist(); err != nil {
		logger.Warn("vector snapshot save failed", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: seikyu ingest [flags] <file> [file ...]")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	failed := 0
	for _, path := range fs.Args() {
		result, err := comps.Ingestor.IngestFile(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("%s [%s]: %s\n", path, result.Kind, result.Message)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

type chatAPIRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatAPIResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Class     string `json:"class"`
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	sessionID := fs.String("session", "", "resume an existing session")
	_ = fs.Parse(os.Args[2:])

	// One-shot mode: remaining args form the message.
	if fs.NArg() > 0 {
		message := buildQuery(fs.Args())
		resp, err := sendChat(*serverURL, *sessionID, message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(resp.Reply)
		return
	}

	fmt.Println("Seikyu invoice assistant. Empty line or Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	current := *sessionID
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			break
		}
		resp, err := sendChat(*serverURL, current, message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
			continue
		}
		current = resp.SessionID
		fmt.Println(resp.Reply)
	}
}

func sendChat(serverURL, sessionID, message string) (*chatAPIResponse, error) {
	payload, err := json.Marshal(chatAPIRequest{SessionID: sessionID, Message: message})
	if err != nil {
		return nil, err
	}
	body, err := postJSON(serverURL+"/api/v1/chat", payload)
	if err != nil {
		return nil, err
	}
	var resp chatAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func runRecords() {
	fs := flag.NewFlagSet("records", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	kind := fs.String("kind", "all", "which records to list: invoices, purchase-orders, or all")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Printf("Failed to open record store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	out := make(map[string]any)
	if *kind == "all" || *kind == "invoices" {
		invoices, err := store.GetAllInvoices(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List invoices failed: %v\n", err)
			os.Exit(1)
		}
		out["invoices"] = invoices
	}
	if *kind == "all" || *kind == "purchase-orders" {
		purchaseOrders, err := store.GetAllPurchaseOrders(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List purchase orders failed: %v\n", err)
			os.Exit(1)
		}
		out["purchase_orders"] = purchaseOrders
	}
	if len(out) == 0 {
		fmt.Printf("Unknown kind %q; use invoices, purchase-orders, or all\n", *kind)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	limit := fs.Int("limit", 10, "number of results")
	_ = fs.Parse(os.Args[2:])

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: seikyu search [flags] <query>")
		os.Exit(1)
	}

	payload, _ := json.Marshal(map[string]any{"query": query, "limit": *limit})
	body, err := postJSON(*serverURL+"/api/v1/search", payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

// buildQuery joins all positional args with spaces so multi-word input works
// the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func postJSON(url string, payload []byte) ([]byte, error) {
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
