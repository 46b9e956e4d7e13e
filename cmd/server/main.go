package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/walteh/libvirt-mcp/pkg/hypervisor"
	"github.com/walteh/libvirt-mcp/pkg/lmcp"
	"github.com/walteh/libvirt-mcp/pkg/mcp"
)

func main() {
	ctx := context.Background()

	network := flag.String("libvirt-network", getEnv("LIBVIRT_NETWORK", "unix"), "Network of the libvirt endpoint (unix or tcp)")
	address := flag.String("libvirt-addr", getEnv("LIBVIRT_ADDR", "/var/run/libvirt/libvirt-sock"), "Address of the libvirt endpoint")
	connName := flag.String("connection", getEnv("LIBVIRT_CONNECTION", "system"), "Connection name recorded on loaded objects")
	offline := flag.Bool("offline", false, "Only serve the document tools, without connecting to libvirt")
	addr := flag.String("addr", getEnv("MCP_ADDR", ":8250"), "Address to listen on")
	logLevel := flag.String("log-level", getEnv("LOG_LEVEL", "info"), "Log level")
	disableLogFile := flag.Bool("disable-log-file", false, "Disable log file")
	printLogDir := flag.Bool("print-log-dir", false, "Print log directory")
	http := flag.Bool("http", false, "Run in HTTP mode")
	flag.Parse()

	if *printLogDir {
		logdir, err := lmcp.LogFileDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(logdir)
		os.Exit(0)
	}

	run, err := lmcp.WrapMCPServerWithLogging(ctx, lmcp.LMCPOpts{
		HTTPMode:       *http,
		HTTPAddr:       *addr,
		DisableLogFile: *disableLogFile,
		LogLevelStr:    *logLevel,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := hypervisor.ManagerOpts{
		ConnectionName: *connName,
		Network:        *network,
		Address:        *address,
		DialTimeout:    5 * time.Second,
	}

	if err := run(ctx, func(ctx context.Context) (*server.MCPServer, error) {
		srv, err := setupServer(ctx, opts, *offline)
		if err != nil {
			return nil, err
		}
		return srv.Server(), nil
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

// setupServer connects to libvirt unless offline. A failed connection
// degrades to the document tools instead of aborting.
func setupServer(ctx context.Context, opts hypervisor.ManagerOpts, offline bool) (*mcp.Server, error) {
	logger := zerolog.Ctx(ctx)

	if offline {
		return mcp.NewServer(ctx, nil)
	}

	mgr, err := hypervisor.NewManager(ctx, opts)
	if err != nil {
		logger.Warn().Err(err).Str("address", opts.Address).Msg("libvirt unavailable, serving document tools only")
		return mcp.NewServer(ctx, nil)
	}

	srv, err := mcp.NewServer(ctx, mgr)
	if err != nil {
		mgr.Close()
		return nil, err
	}

	logger.Trace().Strs("tools", srv.ToolNames()).Msg("created tools")
	return srv, nil
}
