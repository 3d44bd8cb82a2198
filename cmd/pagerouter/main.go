package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"pagerouter/internal/app"
	"pagerouter/internal/build"
	"pagerouter/internal/domain/config"
	"pagerouter/internal/domain/site"
	"pagerouter/internal/index"
	"pagerouter/internal/logfields"
	"pagerouter/internal/metrics"
	"pagerouter/internal/serve"
)

type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"site.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build  BuildCmd  `cmd:"" help:"Render every route into the public directory"`
	Serve  ServeCmd  `cmd:"" help:"Serve pages on demand"`
	Routes RoutesCmd `cmd:"" help:"List the routes of the site"`
}

// AfterApply runs after flag parsing and sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func (c *CLI) load() (config.Config, error) {
	cfg, err := config.LoadOrDefault(c.Config)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openStore(cfg config.Config) (*index.Store, error) {
	return index.Open(index.OpenOptions{Path: cfg.Build.IndexPath})
}

type BuildCmd struct {
	Out string `short:"o" help:"Override build.public_dir"`
}

func (b *BuildCmd) Run(root *CLI) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	if b.Out != "" {
		cfg.Build.PublicDir = b.Out
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = store.Close() }()

	rec := metrics.NoopRecorder{}
	st, err := app.New(app.Options{Config: cfg, Store: store, Recorder: rec})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := (&build.Builder{Site: st, Store: store, Recorder: rec}).Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("build finished",
		logfields.BuildID(res.ID),
		logfields.Routes(res.Routes),
		slog.Int("written", res.Written),
		slog.Int("skipped", res.Skipped),
		logfields.Path(cfg.Build.PublicDir))
	return nil
}

type ServeCmd struct {
	Addr    string `short:"a" help:"Override serve.addr"`
	Metrics bool   `help:"Expose Prometheus metrics at /metrics" default:"true" negatable:""`
}

func (s *ServeCmd) Run(root *CLI) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Serve.Addr = s.Addr
	}

	opt := serve.Options{Config: cfg}
	if cfg.CacheStrategy() == config.CachePersistent {
		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer func() { _ = store.Close() }()
		opt.Store = store
	}
	if s.Metrics {
		pr := metrics.NewPrometheusRecorder(nil)
		opt.Recorder = pr
		opt.MetricsHandler = pr.Handler()
	}

	srv, err := serve.New(opt)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}

type RoutesCmd struct {
	All bool `help:"Include routes that are not listed in the sitemap"`
}

func (r *RoutesCmd) Run(root *CLI) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	st, err := app.New(app.Options{Config: cfg})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATHNAME\tKIND\tSOURCE\tOUTPUT")
	for _, rt := range st.ExportRoutes() {
		src := rt.Filename
		if rt.Kind != site.RouteFile {
			src = "layout:" + rt.Layout
		}
		fmt.Fprintf(tw, "/%s\t%s\t%s\t%s\n", rt.Pathname, rt.Kind, src, rt.OutPath)
	}
	if r.All {
		for _, p := range st.IgnoredRoutes() {
			fmt.Fprintf(tw, "/%s\tignored\t\t\n", p)
		}
	}
	return tw.Flush()
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pagerouter"),
		kong.Description("File-system routed Markdown and MDX site server."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		slog.Error("command failed", slog.String("command", ctx.Command()), logfields.Error(err))
		os.Exit(1)
	}
}
