// Command server runs the nbgate notebook execution gateway.
//
// It exposes the execute_code tool over MCP (streamable HTTP on /mcp),
// serves extracted image artifacts under /images/, and provides /healthz
// and /metrics endpoints.
//
// Configuration is layered: YAML file (see -config and NBGATE_CONFIG)
// with NBGATE_* environment overrides.
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
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/nbgate/nbgate/pkg/auth"
	"github.com/nbgate/nbgate/pkg/config"
	"github.com/nbgate/nbgate/pkg/debug"
	"github.com/nbgate/nbgate/pkg/interpreter"
	"github.com/nbgate/nbgate/pkg/jupyter"
	"github.com/nbgate/nbgate/pkg/jupyter/kubernetes"
	"github.com/nbgate/nbgate/pkg/observability"
	"github.com/nbgate/nbgate/pkg/tools"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Debug.Categories, cfg.Debug.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve the backend: static URL or a SandboxClaim-provisioned pod.
	backendURL := cfg.Jupyter.URL
	if backendURL == "" {
		url, release, err := acquireBackend(ctx, cfg)
		if err != nil {
			return fmt.Errorf("acquiring backend sandbox: %w", err)
		}
		defer release()
		backendURL = url
	}

	contents := jupyter.NewContentsClient(backendURL, cfg.Jupyter.Token)
	sessions := jupyter.NewSessionsClient(backendURL, cfg.Jupyter.Token)
	renderer := interpreter.NewImageRenderer(cfg.Images.Dir, cfg.Images.PublicPath)
	provider := tools.NewProvider(contents, sessions, renderer)

	chain, err := buildAuthChain(cfg)
	if err != nil {
		return err
	}

	mux := newMux(cfg, provider)

	handler := observability.MetricsMiddleware(
		auth.Middleware(chain, []string{"/healthz", cfg.Observability.Metrics.Path})(mux),
	)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "backend", backendURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newMux builds the HTTP routes: the MCP tool surface, the image artifact
// file server under the configured public path, the health endpoint, and
// the metrics endpoint when enabled. Image requests go through the same
// authentication as the tool surface.
func newMux(cfg *config.Config, provider *tools.Provider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler(provider))

	imagesPrefix := strings.TrimRight(cfg.Images.PublicPath, "/")
	mux.Handle(imagesPrefix+"/", http.StripPrefix(imagesPrefix+"/", http.FileServer(http.Dir(cfg.Images.Dir))))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}
	return mux
}

// acquireBackend provisions the Jupyter backend through a SandboxClaim.
func acquireBackend(ctx context.Context, cfg *config.Config) (string, func(), error) {
	scheme, err := kubernetes.NewScheme()
	if err != nil {
		return "", nil, err
	}
	restCfg, err := ctrl.GetConfig()
	if err != nil {
		return "", nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	k8sClient, err := client.New(restCfg, client.Options{Scheme: scheme})
	if err != nil {
		return "", nil, fmt.Errorf("creating kubernetes client: %w", err)
	}

	acquirer := kubernetes.NewGatewayAcquirer(
		k8sClient,
		cfg.Jupyter.SandboxTemplate,
		cfg.Jupyter.SandboxNamespace,
		cfg.Jupyter.ClaimTimeout,
	)
	return acquirer.Acquire(ctx)
}

// buildAuthChain assembles the authenticator chain from configuration.
func buildAuthChain(cfg *config.Config) (*auth.Chain, error) {
	switch cfg.Auth.Type {
	case "none", "":
		return &auth.Chain{DefaultDecision: auth.Yes}, nil
	case "apikey":
		var entries []auth.RawKeyEntry
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, auth.RawKeyEntry{Key: k.Key, Subject: k.Subject})
		}
		return &auth.Chain{
			Authenticators:  []auth.Authenticator{auth.NewAPIKeyAuthenticator(entries)},
			DefaultDecision: auth.No,
		}, nil
	case "jwt":
		return &auth.Chain{
			Authenticators: []auth.Authenticator{auth.NewJWTAuthenticator(auth.JWTConfig{
				Secret: cfg.Auth.JWTSecret,
				Issuer: cfg.Auth.JWTIssuer,
			})},
			DefaultDecision: auth.No,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}
}

// mcpHandler exposes the provider's tool over MCP streamable HTTP.
func mcpHandler(provider *tools.Provider) http.Handler {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "nbgate", Version: "v1.0.0"},
		nil,
	)

	type executeInput struct {
		Code           string `json:"code" jsonschema_description:"Python code to execute in the conversation's notebook session"`
		ConversationID string `json:"conversation_id,omitempty" jsonschema_description:"Conversation the execution belongs to; state persists across calls"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.ToolName,
		Description: "Execute Python code in a persistent notebook session. Variables and imports survive across calls within the same conversation.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input executeInput) (*mcp.CallToolResult, struct{}, error) {
		ctx, collector := tools.WithOutputCollector(ctx)

		args, err := json.Marshal(input)
		if err != nil {
			return nil, struct{}{}, err
		}
		result, err := provider.Execute(ctx, tools.ToolCall{
			ID:        "call_" + uuid.NewString(),
			Name:      tools.ToolName,
			Arguments: string(args),
		})
		if err != nil {
			return nil, struct{}{}, err
		}

		content := []mcp.Content{&mcp.TextContent{Text: result.Output}}
		for _, link := range collector.Links() {
			content = append(content, &mcp.TextContent{Text: link})
		}
		return &mcp.CallToolResult{Content: content, IsError: result.IsError}, struct{}{}, nil
	})

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)
}
