// Command knightboard plans knight paths over grid boards.
//
// It runs as a server ("serve": REST API, WebSocket events and an /mcp HTTP
// endpoint, optionally tunnelled through ngrok), as an MCP stdio server
// ("mcp") that spins up an internal HTTP API if none is available, or as a
// one-shot command line tool over the board library ("plan", "tour",
// "compare", "moves", "check", "show", "boards").
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/janpfeifer/must"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/api"
	"github.com/wricardo/knightboard/game/config"
	"github.com/wricardo/knightboard/game/service"
	"github.com/wricardo/knightboard/game/session"
	"github.com/wricardo/knightboard/transport/mcp"
	"github.com/wricardo/knightboard/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "knightboard"
)

const (
	sessionMaxAge       = 24 * time.Hour
	sessionCleanupEvery = time.Hour
	filesystemSyncEvery = 5 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		klog.Exitf("%v", err)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "knight path planning on grid boards",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "boards-dir",
				Value:   "boards",
				Usage:   "directory containing board files",
				Sources: cli.EnvVars("KNIGHTBOARD_BOARDS_DIR"),
			},
			&cli.IntFlag{
				Name:    "verbosity",
				Aliases: []string{"V"},
				Usage:   "klog verbosity level",
				Sources: cli.EnvVars("KNIGHTBOARD_VERBOSITY"),
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			planCommand(),
			tourCommand(),
			compareCommand(),
			movesCommand(),
			checkCommand(),
			showCommand(),
			boardsCommand(),
		},
	}
}

// setupLogging hands the verbosity flag to klog.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	if err := fs.Set("v", strconv.Itoa(cmd.Int("verbosity"))); err != nil {
		return ctx, errors.Wrap(err, "setting log verbosity")
	}
	return ctx, nil
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "directory for persisted sessions", Sources: cli.EnvVars("KNIGHTBOARD_SESSIONS_DIR")},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server with REST API, WebSocket and MCP endpoint",
		Flags: append(serverFlags(),
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			hub := websocket.NewHub()
			go hub.Run(ctx)
			svc, err := initializeServices(ctx, cmd.String("boards-dir"), cmd.String("sessions-dir"), hub)
			if err != nil {
				return err
			}
			return runHTTPServer(ctx, cmd, svc, hub)
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server, with an internal HTTP API when none is running",
		Flags: serverFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			hub := websocket.NewHub()
			go hub.Run(ctx)
			svc, err := initializeServices(ctx, cmd.String("boards-dir"), cmd.String("sessions-dir"), hub)
			if err != nil {
				return err
			}
			return runStdioMCPWithInternalServer(ctx, fmt.Sprintf("http://%s:%d", cmd.String("host"), cmd.Int("port")), svc, hub)
		},
	}
}

// newRouter mounts the API and the /mcp endpoint on one handler.
func newRouter(svc service.PlannerService, hub *websocket.Hub, baseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svc, hub))
	mainRouter.Handle("/mcp", mcp.NewClient(baseURL))
	return mainRouter
}

// runHTTPServer serves the API until ctx is cancelled. When ngrok is enabled
// the same handler is also served through a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command, svc service.PlannerService, hub *websocket.Hub) error {
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	handler := newRouter(svc, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Tours hold the connection for their whole budget.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		klog.Infof("HTTP server listening on %s", addr)
		klog.Infof("REST API: http://%s/api", addr)
		klog.Infof("WebSocket: ws://%s/ws/<session_id>", addr)
		klog.Infof("MCP endpoint: http://%s/mcp", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- errors.Wrap(err, "HTTP server failed")
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		klog.Info("Shutting down...")
	case err = <-serveErr:
	}
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		klog.Errorf("HTTP server shutdown error: %v", shutdownErr)
	}
	wg.Wait()
	klog.Info("Server stopped")
	return err
}

func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		klog.Warning("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}
	klog.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		klog.Infof("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		klog.Errorf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			klog.Errorf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	klog.Infof("ngrok tunnel established: %s", ngrokURL)
	klog.Infof("  REST API (ngrok): %s/api", ngrokURL)
	klog.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		klog.Errorf("ngrok server error: %v", err)
	}
	klog.Info("ngrok tunnel closed")
}

// initializeServices wires the board library, the persisted session manager
// and the planner service, and starts the background session routines.
// Session events go to hub when it is not nil.
func initializeServices(ctx context.Context, boardsDir, sessionsDir string, hub *websocket.Hub) (service.PlannerService, error) {
	boards, err := config.NewManager(boardsDir)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create board library")
	}

	persistence, err := session.NewFilePersistence(sessionsDir)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create session persistence")
	}
	sessions := session.NewManagerWithPersistence(persistence)
	if err := sessions.LoadPersistedSessions(); err != nil {
		klog.Warningf("Failed to load persisted sessions: %v", err)
	}

	go sessionCleanupRoutine(ctx, sessions)
	go filesystemSyncRoutine(ctx, sessions, persistence)

	var opts []service.Option
	if hub != nil {
		opts = append(opts, service.WithPublisher(hub))
	}
	return service.NewPlannerService(sessions, boards, opts...), nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within sessionMaxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(sessionCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				klog.Infof("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory once their files are
// deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(filesystemSyncEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := pruneOrphanedSessions(manager, persistence); n > 0 {
				klog.Infof("Filesystem sync: pruned %d orphaned sessions from memory", n)
			}
		}
	}
}

func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			klog.V(1).Infof("Pruned session %s from memory (file deleted)", s.ID)
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses the API at
// externalURL when one answers; otherwise it serves an internal API on a
// random loopback port.
func runStdioMCPWithInternalServer(ctx context.Context, externalURL string, svc service.PlannerService, hub *websocket.Hub) error {
	baseURL := externalURL
	klog.V(1).Infof("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		klog.V(1).Infof("External API server found at %s, using it for MCP", externalURL)
	} else {
		listener := must.M1(net.Listen("tcp", "127.0.0.1:0"))
		baseURL = "http://" + listener.Addr().String()
		klog.V(1).Infof("No external API server found, serving internal API on %s", baseURL)

		httpServer := &http.Server{Handler: api.NewServer(svc, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				klog.Errorf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()
	}

	mcpClient := mcp.NewClient(baseURL)
	klog.V(1).Info("MCP stdio server ready")
	return server.ServeStdio(mcpClient.GetMCPServer())
}
