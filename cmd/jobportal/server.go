package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/jobportal/internal/api"
	"github.com/kalambet/jobportal/internal/catalog"
	"github.com/kalambet/jobportal/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portal server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		persist, _ := cmd.Flags().GetBool("persist")
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(persist, withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running portal server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("persist", false, "keep data in a SQLite file under the user data directory instead of memory")
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func pidFilePath() string {
	return filepath.Join(config.PersistentDataDir(), "jobportal.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func runServer(persist, withMCP bool) error {
	fmt.Fprintf(os.Stderr, "jobportal version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if persist && cfg.Storage.Driver != "postgres" {
		cfg.Storage.DataDir = config.PersistentDataDir()
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	// Refuse to start twice on the same port.
	pidPath := pidFilePath()
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("jobportal is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("jobportal is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sweeper.Start(); err != nil {
		return fmt.Errorf("starting sweeper: %w", err)
	}
	defer func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.sweeper.Stop(sweepCtx)
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("jobportal listening", "addr", addr, "storage", cfg.Storage.Driver, "data_dir", cfg.Storage.DataDir)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if withMCP {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(a.mcpDeps()))
		g.Go(func() error {
			logger.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	pidPath := pidFilePath()
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("jobportal is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop jobportal (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to jobportal (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}
	client.httpClient.Timeout = 2 * time.Second

	running := false
	resp, err := client.get(context.Background(), "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		running = resp.StatusCode == http.StatusOK
		if running {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Storage", "%s (%s)", cfg.Storage.Driver, cfg.Storage.DataDir)
	if cfg.Notify.RedisURL != "" {
		printStatus("Notifications", "redis channel %s", cfg.Notify.Channel)
	} else {
		printStatus("Notifications", "in-process only")
	}
	printStatus("Admin login", "%s", configuredLabel(cfg.Auth.AdminEmail))
	printStatus("Sales login", "%s", configuredLabel(cfg.Auth.SalesEmail))
	printStatus("Chat idle timeout", "%s", cfg.Chat.IdleTimeout)

	if running {
		for _, v := range catalog.Views() {
			if v.Role != "" {
				continue
			}
			var res catalog.Result
			resp, err := client.get(context.Background(), "/v1/views/"+v.Name)
			if err != nil {
				continue
			}
			if decodeJSON(resp, &res) == nil {
				printStatus("View "+v.Name, "%s records", humanize.Comma(int64(res.Total)))
			}
		}
	}
	return nil
}

func configuredLabel(email string) string {
	if email == "" {
		return "not configured"
	}
	return email
}
