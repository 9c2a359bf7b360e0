// The datasets tool mirrors the lab's published imaging datasets from
// their public object-storage buckets: it renders the dataset manifests
// shipped alongside each release, and drives resumable, parallel
// download-and-extract runs over any subset of a dataset.
//
// Sub-commands:
//
//	datasets show-tree <manifest.json>   Render a dataset manifest
//	datasets scan [flags]                Rebuild a manifest from a live listing
//	datasets sync [flags] <name> <dest>  Mirror a dataset into a local directory
//	datasets list                        Show the dataset registry
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wision-lab/datasets/internal/catalog"
	"github.com/wision-lab/datasets/internal/config"
	"github.com/wision-lab/datasets/internal/logging"
	"github.com/wision-lab/datasets/internal/metrics"
	"github.com/wision-lab/datasets/internal/scan"
	"github.com/wision-lab/datasets/internal/store"
	"github.com/wision-lab/datasets/internal/syncer"
	"github.com/wision-lab/datasets/pkg/bytesize"
	"github.com/wision-lab/datasets/pkg/manifest"
	"github.com/wision-lab/datasets/pkg/render"
	"github.com/wision-lab/datasets/pkg/retry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := config.Load()
	initLogging(cfg)
	defer logging.Sync()

	if len(args) == 0 {
		usage()
		return 2
	}
	switch args[0] {
	case "show-tree":
		return cmdShowTree(cfg, args[1:])
	case "scan":
		return cmdScan(cfg, args[1:])
	case "sync":
		return cmdSync(cfg, args[1:])
	case "list":
		return cmdList(cfg, args[1:])
	case "help", "-h", "-help", "--help":
		usage()
		return 0
	}
	fmt.Fprintf(os.Stderr, "datasets: unknown command %q\n\n", args[0])
	usage()
	return 2
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: datasets <command> [flags] [args]

Commands:
  show-tree <manifest.json>   Render a dataset manifest
  scan                        Rebuild a manifest from a live bucket listing
  sync <dataset> <dest>       Mirror a dataset into a local directory
  list                        Show the dataset registry

Run 'datasets <command> -h' for command flags.
`)
}

// initLogging picks console output on a terminal and JSON under a
// scheduler, unless DATASETS_LOG_FORMAT forces one. Logs go to stderr;
// stdout carries only trees, manifests and reports.
func initLogging(cfg *config.Config) {
	format := cfg.LogFormat
	if format == "" {
		format = "json"
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "console"
		}
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: format}); err != nil {
		logging.InitDefault()
	}
}

// interruptContext cancels on SIGINT/SIGTERM so a run stops scheduling
// new objects and finishes or aborts the in-flight ones cleanly.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Warn("interrupted, stopping after in-flight objects")
		cancel()
	}()
	return ctx, cancel
}

// multiFlag collects repeated flag values.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func cmdShowTree(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("show-tree", flag.ExitOnError)
	full := fs.Bool("full", false, "print every node instead of the sharded summary")
	depth := fs.Int("depth", 0, "collapse directories below this depth in the summary (0 = no collapsing)")
	chunkSize := fs.String("chunk-size", "", "shard size for grouping archive leaves, e.g. 10GB (0 disables grouping)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: datasets show-tree [flags] <manifest.json>")
		return 2
	}

	threshold := cfg.ChunkSize
	if *chunkSize != "" {
		n, err := bytesize.Parse(*chunkSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
			return 2
		}
		threshold = n
	}

	m, err := manifest.Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}

	opts := render.Options{Full: *full, Depth: *depth}
	if !*full && threshold > 0 {
		opts.Batcher = render.SizeBatcher{Threshold: threshold}
	}
	if err := render.Tree(os.Stdout, m, opts); err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}
	return 0
}

func cmdScan(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	bucket := fs.String("bucket", cfg.Bucket, "bucket to list (required)")
	endpoint := fs.String("endpoint", cfg.Endpoint, "object store endpoint URL")
	region := fs.String("region", cfg.Region, "bucket region")
	prefix := fs.String("prefix", "", "key prefix to scan, stripped from manifest paths")
	label := fs.String("label", "", "manifest label (default: prefix, then bucket)")
	out := fs.String("o", "", "write the manifest here instead of stdout")
	var exclude multiFlag
	fs.Var(&exclude, "exclude", "glob pattern to drop from the listing (repeatable)")
	fs.Parse(args)

	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "Usage: datasets scan [flags]")
		return 2
	}
	if *bucket == "" {
		fmt.Fprintln(os.Stderr, "datasets: scan needs -bucket (or DATASETS_BUCKET)")
		return 2
	}

	ctx, cancel := interruptContext()
	defer cancel()

	st, err := store.NewS3(ctx, store.S3Config{
		Endpoint:  *endpoint,
		Bucket:    *bucket,
		Region:    *region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}

	name := *label
	if name == "" {
		name = *prefix
	}
	if name == "" {
		name = *bucket
	}

	m, err := scan.Run(ctx, st, name, scan.Options{Prefix: *prefix, Exclude: exclude})
	if err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}

	if *out == "" {
		os.Stdout.Write(m.Encode())
		return 0
	}
	if err := m.WriteFile(*out); err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}
	logging.Info("manifest written",
		zap.String("path", *out),
		zap.Int("leaves", len(m.Leaves())),
		zap.String("total", bytesize.Format(m.TotalSize())),
	)
	return 0
}

func cmdSync(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "local manifest JSON instead of the published one")
	bucket := fs.String("bucket", cfg.Bucket, "bucket for prefixes not in the registry")
	endpoint := fs.String("endpoint", cfg.Endpoint, "object store endpoint URL")
	region := fs.String("region", cfg.Region, "bucket region")
	pattern := fs.String("pattern", "", "glob over manifest paths narrowing the selection")
	workers := fs.Int("workers", cfg.Workers, "parallel fetches")
	retries := fs.Int("retries", cfg.RetryAttempts, "fetch attempts per object")
	timeout := fs.Duration("timeout", cfg.FetchTimeout, "per-fetch timeout (0 = none)")
	keepArchives := fs.Bool("keep-archives", false, "do not delete archives after extraction")
	noExtract := fs.Bool("no-extract", false, "fetch archives without extracting them")
	dryRun := fs.Bool("dry-run", false, "report what would be fetched without downloading")
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address during the run")
	catalogPath := fs.String("catalog", cfg.CatalogPath, "dataset registry file (default: built-in)")
	fs.Parse(args)

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: datasets sync [flags] <dataset|prefix> <dest>")
		return 2
	}
	arg, dest := fs.Arg(0), fs.Arg(1)

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cat, err := loadCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}

	// Registry datasets carry their own coordinates; anything else is a
	// raw key prefix in the configured bucket.
	label := arg
	keyPrefix := arg
	manifestKey := ""
	sel := syncer.Selection{Pattern: *pattern}
	if ds, rest, ok := cat.Resolve(arg); ok {
		label = ds.Name
		keyPrefix = ds.Prefix
		manifestKey = ds.Manifest
		sel.Prefix = rest
		if !set["bucket"] {
			*bucket = ds.Bucket
		}
		if !set["endpoint"] && ds.Endpoint != "" {
			*endpoint = ds.Endpoint
		}
	}
	if *bucket == "" {
		fmt.Fprintf(os.Stderr, "datasets: %q is not in the registry and no -bucket was given\n", arg)
		return 2
	}

	ctx, cancel := interruptContext()
	defer cancel()

	st, err := store.NewS3(ctx, store.S3Config{
		Endpoint:  *endpoint,
		Bucket:    *bucket,
		Region:    *region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}

	m, err := acquireManifest(ctx, st, *manifestPath, manifestKey, keyPrefix, label)
	if err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metrics.Handler()}
		go func() {
			logging.Info("metrics listening", zap.String("addr", *metricsAddr))
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	rc := retry.DefaultConfig()
	rc.Attempts = *retries
	opts := syncer.Options{
		DestRoot:     dest,
		KeyPrefix:    keyPrefix,
		Workers:      *workers,
		Retry:        rc,
		FetchTimeout: *timeout,
		DryRun:       *dryRun,
		NoExtract:    *noExtract,
		KeepArchives: *keepArchives,
	}
	if term.IsTerminal(int(os.Stderr.Fd())) && !*dryRun {
		opts.ProgressWriter = os.Stderr
	}
	engine := syncer.New(st, opts)

	report, runErr := engine.Run(ctx, m, sel)
	if report == nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", runErr)
		return 2
	}
	fmt.Println(report.Summary())
	if runErr != nil || !report.OK() {
		return 1
	}
	return 0
}

// acquireManifest prefers a local file, then the published manifest in
// the bucket, then a live listing scan. Manifest problems are fatal
// before any download starts.
func acquireManifest(ctx context.Context, st store.Store, localPath, manifestKey, keyPrefix, label string) (*manifest.Manifest, error) {
	if localPath != "" {
		return manifest.Load(localPath)
	}
	if manifestKey != "" {
		body, _, err := st.Get(ctx, manifestKey)
		if err != nil {
			return nil, fmt.Errorf("fetch manifest %s: %w", manifestKey, err)
		}
		defer body.Close()
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("fetch manifest %s: %w", manifestKey, err)
		}
		return manifest.Parse(label, data)
	}
	logging.Info("no published manifest, scanning the listing", zap.String("prefix", keyPrefix))
	return scan.Run(ctx, st, label, scan.Options{Prefix: keyPrefix})
}

func cmdList(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	catalogPath := fs.String("catalog", cfg.CatalogPath, "dataset registry file (default: built-in)")
	fs.Parse(args)

	cat, err := loadCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "datasets: %v\n", err)
		return 2
	}

	fmt.Printf("%-24s  %-14s  %-10s  %s\n", "NAME", "BUCKET", "PREFIX", "DESCRIPTION")
	for _, ds := range cat.All() {
		fmt.Printf("%-24s  %-14s  %-10s  %s\n", ds.Name, ds.Bucket, ds.Prefix, ds.Description)
	}
	return 0
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}
