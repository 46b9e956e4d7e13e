// Package lmcp runs an MCP server over stdio or SSE with zerolog output
// routed to a per-run log file.
package lmcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gitlab.com/tozd/go/errors"
)

type LMCPOpts struct {
	HTTPMode       bool
	HTTPAddr       string
	DisableLogFile bool
	LogLevelStr    string
	// LogDir overrides the default log directory under the user cache dir.
	LogDir string
}

type ServerSetupFunc func(ctx context.Context) (*server.MCPServer, error)

// RunFunc builds the server with setup and serves until it fails.
type RunFunc func(ctx context.Context, setup ServerSetupFunc) error

// LogFileDir is the default log directory for the running executable.
func LogFileDir() (string, error) {
	cachedir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Errorf("getting user cache directory: %w", err)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Errorf("getting executable name: %w", err)
	}
	return filepath.Join(cachedir, "libvirt-mcp", filepath.Base(exe)), nil
}

func openLogFile(dir string) (*os.File, error) {
	if dir == "" {
		var err error
		if dir, err = LogFileDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Errorf("creating log directory: %w", err)
	}
	name := filepath.Join(dir, "lmcp."+time.Now().Format("2006-01-02_15-04-05")+".log")
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Errorf("creating log file: %w", err)
	}
	return f, nil
}

// NewLogger builds the server logger. Stdio mode owns stdout for the
// protocol, so it always logs to a file.
func NewLogger(opts LMCPOpts) (zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(opts.LogLevelStr)
	if err != nil || opts.LogLevelStr == "" {
		if opts.HTTPMode && opts.LogLevelStr != "" {
			fmt.Printf("Invalid log level '%s', using 'info'\n", opts.LogLevelStr)
		}
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	closer := func() error { return nil }
	mode := "stdio"

	if opts.HTTPMode {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		mode = "http"
	}

	var logFileName string
	if opts.DisableLogFile {
		if !opts.HTTPMode {
			return zerolog.Nop(), nil, errors.New("log file cannot be disabled in stdio mode")
		}
	} else {
		f, err := openLogFile(opts.LogDir)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		writers = append(writers, f)
		closer = f.Close
		logFileName = f.Name()
	}

	lctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().
		Timestamp().
		Caller().
		Str("source", "application").
		Str("mode", mode)
	if logFileName != "" {
		lctx = lctx.Str("log_file", logFileName)
	}

	logger := lctx.Logger().Level(level)
	zlog.Logger = logger
	return logger, closer, nil
}

// WrapMCPServerWithLogging configures logging and returns a RunFunc that
// serves in the mode chosen by opts.
func WrapMCPServerWithLogging(ctx context.Context, opts LMCPOpts) (RunFunc, error) {
	logger, closer, err := NewLogger(opts)
	if err != nil {
		return nil, err
	}

	logger.Info().Msg("starting MCP server")

	if opts.HTTPMode {
		return func(ctx context.Context, setup ServerSetupFunc) error {
			defer closer()
			ctx = logger.WithContext(ctx)

			srv, err := setup(ctx)
			if err != nil {
				return errors.Errorf("creating server: %w", err)
			}

			sse := server.NewSSEServer(srv, server.WithSSEContextFunc(sseContext(logger)))

			logger.Info().Str("address", opts.HTTPAddr).Msg("server is ready to accept connections")

			httpServer := &http.Server{
				Addr:              opts.HTTPAddr,
				Handler:           loggerMiddleware(sse, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return httpServer.ListenAndServe()
		}, nil
	}

	errorWriter := &logWriter{logger: logger.With().Str("source", "mcp_stdio_error_logs").Logger()}
	stdioOpts := []server.StdioOption{
		server.WithErrorLogger(log.New(errorWriter, "", 0)),
	}

	return func(ctx context.Context, setup ServerSetupFunc) error {
		defer closer()
		ctx = logger.WithContext(ctx)

		srv, err := setup(ctx)
		if err != nil {
			return errors.Errorf("creating server: %w", err)
		}

		logger.Info().Msg("starting stdio server")
		return server.ServeStdio(srv, stdioOpts...)
	}, nil
}

func sseContext(logger zerolog.Logger) server.SSEContextFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		ctx = logger.WithContext(ctx)

		if logger.GetLevel() <= zerolog.TraceLevel && r.Body != nil {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error().Err(err).Msg("reading request body")
			} else {
				logger.Trace().RawJSON("body", body).Msg("request body")
			}
			r.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		return ctx
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggerMiddleware(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context())))

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// logWriter adapts a zerolog logger to io.Writer for the standard library
// logger the stdio server expects.
type logWriter struct {
	logger zerolog.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.logger.Error().Msg(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
