// Package main is the entry point for blogsmith.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/hpn/hpn-blog-pipeline/internal/adapter"
	"github.com/hpn/hpn-blog-pipeline/internal/config"
	"github.com/hpn/hpn-blog-pipeline/internal/extract"
	"github.com/hpn/hpn-blog-pipeline/internal/handler"
	"github.com/hpn/hpn-blog-pipeline/internal/output"
	"github.com/hpn/hpn-blog-pipeline/internal/pipeline"
	"github.com/hpn/hpn-blog-pipeline/internal/request"
	"github.com/hpn/hpn-blog-pipeline/internal/security"
	"github.com/hpn/hpn-blog-pipeline/internal/ui"
)

// Process exit codes.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	if err := app.RunContext(ctx, args); err != nil {
		fmt.Fprintf(stderr, "blogsmith: %v\n", err)
		var coder cli.ExitCoder
		if errors.As(err, &coder) {
			return coder.ExitCode()
		}
		return exitRuntime
	}
	return exitOK
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	globalFlags := []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to blogsmith.yaml"},
		&cli.StringFlag{Name: "log-level", Usage: "override logging.level (debug, info, warn, error)"},
		&cli.BoolFlag{Name: "no-banner", Usage: "skip the startup banner"},
	}

	return &cli.App{
		Name:      "blogsmith",
		Usage:     "generate a blog post through research, write, edit, lint and SEO stages",
		Version:   ui.Version,
		ArgsUsage: "[request.json|request.yaml]",
		Flags:     append(globalFlags, request.CLIFlags()...),
		Action:    generate,
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "run the pipeline once and write the post (default)",
				ArgsUsage: "[request.json|request.yaml]",
				Flags:     request.CLIFlags(),
				Action:    generate,
			},
			{
				Name:   "serve",
				Usage:  "serve POST /v1/blogs and GET /health",
				Action: serve,
			},
		},
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are returned from run, never via os.Exit inside the app.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// environment is what both commands share once config and provider resolved.
type environment struct {
	cfg      *config.Configuration
	logger   *slog.Logger
	provider adapter.ChatProvider
	console  *ui.Console
}

func bootstrap(c *cli.Context) (*environment, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err, exitConfig)
	}
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	logger := setupLogger(cfg, c.App.ErrWriter)

	provider, err := adapter.SelectProvider(cfg.Providers, logger)
	if err != nil {
		logger.Error("provider selection failed", slog.String("error", err.Error()))
		return nil, cli.Exit(err, exitConfig)
	}

	console := ui.NewConsole(c.App.Writer)
	if !c.Bool("no-banner") {
		console.PrintBanner(provider.Name())
	}

	return &environment{cfg: cfg, logger: logger, provider: provider, console: console}, nil
}

// orchestrator builds the pipeline from the configuration.
func (e *environment) orchestrator() *pipeline.Orchestrator {
	p := e.cfg.Pipeline
	opts := []pipeline.Option{
		pipeline.WithLogger(e.logger),
		pipeline.WithGenerationOptions(generationOptions(e.cfg.Generation)),
		pipeline.WithExtractor(extract.New(p.TagKeys, p.SynthesizeSummary), p.FallbackTitle),
		pipeline.WithObserver(e.console),
	}
	if p.StripEditorNotes {
		opts = append(opts, pipeline.WithEditorNotes(p.EditorNotesMarker))
	}
	return pipeline.NewOrchestrator(e.provider, opts...)
}

func (e *environment) sink() *output.Sink {
	return output.NewSink(e.cfg.Output, output.WithLogger(e.logger))
}

func generate(c *cli.Context) error {
	env, err := bootstrap(c)
	if err != nil {
		return err
	}

	srcOpts := []request.Option{
		request.WithDefaults(env.cfg.Defaults),
		request.WithLogger(env.logger),
	}
	if isInteractive(c.App.Reader) {
		srcOpts = append(srcOpts, request.WithPrompter(c.App.Reader, c.App.Writer))
	}
	req, _, err := request.NewSource(srcOpts...).GetRequest(c.Args().Slice(), request.FlagValuesFrom(c))
	if err != nil {
		env.console.PrintFailure(err)
		return cli.Exit(err, exitConfig)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := env.orchestrator().Run(ctx, req)
	if err != nil {
		env.console.PrintFailure(err)
		return cli.Exit(err, exitRuntime)
	}

	written, err := env.sink().WriteFiles(report.Result, output.Meta{Author: req.Author, SEORaw: report.SEORaw})
	if err != nil {
		env.console.PrintFailure(err)
		return cli.Exit(err, exitRuntime)
	}

	env.console.PrintReport(report, written)
	return nil
}

func serve(c *cli.Context) error {
	env, err := bootstrap(c)
	if err != nil {
		return err
	}
	cfg := env.cfg

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	src := request.NewSource(request.WithDefaults(cfg.Defaults), request.WithLogger(env.logger))
	blogHandler := handler.NewBlogHandler(env.orchestrator(), src,
		handler.WithSink(env.sink()),
		handler.WithLogger(env.logger),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(blogHandler, env.logger),
		ReadTimeout:  config.Seconds(cfg.Server.ReadTimeoutSeconds),
		WriteTimeout: config.Seconds(cfg.Server.WriteTimeoutSeconds),
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		env.logger.Info("server starting", slog.String("address", addr))
		serverErr <- srv.ListenAndServe()
	}()
	env.console.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, env.provider.Name())

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			env.logger.Error("server error", slog.String("error", err.Error()))
			return cli.Exit(err, exitRuntime)
		}
		return nil
	case <-ctx.Done():
	}

	env.logger.Info("shutdown signal received")
	env.console.PrintShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.Server.ShutdownTimeoutSeconds))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		env.logger.Error("server shutdown error", slog.String("error", err.Error()))
		return cli.Exit(err, exitRuntime)
	}

	env.logger.Info("server stopped gracefully")
	env.console.PrintGoodbye()
	return nil
}

// setupLogger creates the process logger. Every configured credential is
// redacted from output.
func setupLogger(cfg *config.Configuration, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Logging.Level)}

	var base slog.Handler
	if cfg.Logging.Format == "json" {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}

	p := cfg.Providers
	logger := slog.New(security.NewRedactedHandler(base,
		p.Local.APIKey,
		p.Gemini.APIKey,
		p.Azure.APIKey,
		p.OpenAI.APIKey,
	))

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func generationOptions(g config.GenerationConfig) *adapter.GenerationOptions {
	if g.Temperature == nil && g.MaxOutputTokens == nil && g.TopP == nil && g.TopK == nil {
		return nil
	}
	return &adapter.GenerationOptions{
		Temperature:     g.Temperature,
		MaxOutputTokens: g.MaxOutputTokens,
		TopP:            g.TopP,
		TopK:            g.TopK,
	}
}

// isInteractive reports whether r is a terminal, so prompting makes sense.
func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
