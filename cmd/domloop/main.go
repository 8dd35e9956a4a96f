// Command domloop runs the act/extract/observe browser agent behind
// either an MCP server over stdio or an HTTP surface.
//
// Usage:
//
//	domloop -url https://example.com                         # built-in defaults
//	domloop -url https://example.com -config domloop.yaml    # settings from a YAML file
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domloop/agent"
	"github.com/hazyhaar/domloop/internal/browser"
	"github.com/hazyhaar/domloop/internal/llm"
)

func main() {
	configPath := flag.String("config", "", "path to domloop.yaml config file")
	singleURL := flag.String("url", "", "open a single URL and serve the agent over MCP/HTTP")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	render := flag.Bool("render", false, "render the opened page as Markdown to stdout and exit")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *singleURL, *render); err != nil {
		logger.Error("domloop: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, singleURL string, render bool) error {
	var cfg agent.Config
	var err error
	if configPath != "" {
		cfg, err = agent.LoadYAML(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = defaultConfig()
	}

	if singleURL == "" {
		fmt.Fprintln(os.Stderr, "usage: domloop -url <url> [-config <file>]")
		os.Exit(1)
	}

	mgr := browser.NewManager(browser.Config{
		Headless:         cfg.Headless,
		ResourceBlocking: []string{"images", "fonts", "media"},
		Logger:           logger,
	})

	a, err := agent.New(cfg, mgr, &unconfiguredProvider{}, logger)
	if err != nil {
		return fmt.Errorf("new agent: %w", err)
	}
	defer a.Close()

	if err := a.Open(ctx, singleURL); err != nil {
		return fmt.Errorf("open: %w", err)
	}

	if render {
		md, err := a.RenderMarkdown(ctx)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		fmt.Println(md)
		return nil
	}

	if cfg.MCPTransport == "http" {
		return runHTTP(ctx, logger, cfg, a)
	}
	return runStdioMCP(ctx, logger, a)
}

func runStdioMCP(ctx context.Context, logger *slog.Logger, a *agent.Agent) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "domloop", Version: "1.0.0"}, nil)
	a.RegisterMCP(srv)

	logger.Info("domloop: serving MCP over stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func runHTTP(ctx context.Context, logger *slog.Logger, cfg agent.Config, a *agent.Agent) error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/act", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Action    string `json:"action"`
			ModelName string `json:"model_name"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		result, err := a.Act(req.Context(), agent.NewActParams(body.Action, body.ModelName))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, result)
	})

	r.Post("/extract", func(w http.ResponseWriter, req *http.Request) {
		var body agent.ExtractParams
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		result, err := a.Extract(req.Context(), body)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, result)
	})

	r.Post("/observe", func(w http.ResponseWriter, req *http.Request) {
		var body agent.ObserveParams
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		result, err := a.Observe(req.Context(), body)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, result)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	logger.Info("domloop: serving HTTP", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func defaultConfig() agent.Config {
	cfg := agent.Config{
		Env:            agent.EnvLocal,
		Verbosity:      1,
		Headless:       true,
		SanitizePolicy: "strict",
		MCPTransport:   "stdio",
	}
	return cfg
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// unconfiguredProvider is the default llm.Provider when no real model
// client has been wired in: every call fails with a clear message
// instead of the process refusing to start.
type unconfiguredProvider struct{}

func (unconfiguredProvider) SupportsVision(string) bool { return false }

func (unconfiguredProvider) Observe(context.Context, llm.ObserveRequest) (llm.ObserveResponse, error) {
	return llm.ObserveResponse{}, errNoProvider
}

func (unconfiguredProvider) Extract(context.Context, llm.ExtractRequest) (llm.ExtractResponse, error) {
	return llm.ExtractResponse{}, errNoProvider
}

func (unconfiguredProvider) Act(context.Context, llm.ActRequest) (*llm.ActCommand, error) {
	return nil, errNoProvider
}

func (unconfiguredProvider) VerifyActCompletion(context.Context, llm.VerifyRequest) (bool, error) {
	return false, errNoProvider
}

var errNoProvider = fmt.Errorf("domloop: no llm.Provider configured; embed this package and call agent.New with a real provider")
