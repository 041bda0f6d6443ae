package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/exprtrail/internal/server"
	"github.com/matzehuels/exprtrail/pkg/observability"
	"github.com/matzehuels/exprtrail/pkg/store"
)

// Document stores accepted by --store.
const (
	storeMemory = "memory"
	storeMongo  = "mongo"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr      string
	store     string
	mongoURI  string
	mongoDB   string
	cache     string
	redisAddr string
	detailed  bool
	metrics   bool
}

// serveCommand creates the serve command, which hosts documents and their
// reconciled steps over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host documents and their steps over HTTP",
		Long: `Serve starts an HTTP server that accepts typez documents and serves each
rewrite step as JSON, DOT, SVG or PNG:

  POST   /documents                   upload a document
  GET    /documents                   list stored documents
  GET    /documents/{id}              document summary
  DELETE /documents/{id}              remove a document
  GET    /documents/{id}/steps/{n}    one step (.json, .dot, .svg, .png)
  GET    /metrics                     Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyServeFlags(cmd, &opts)
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&opts.store, "store", "", "document store: memory (default), mongo")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB connection string")
	cmd.Flags().StringVar(&opts.mongoDB, "mongo-db", "", "MongoDB database name")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "artifact cache: file (default), memory, redis, none")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for --cache redis")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "render detailed diagrams")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", true, "expose Prometheus metrics on /metrics")

	return cmd
}

// applyServeFlags fills unset flags from the config file and writes the
// cache choice back so newRunner picks it up.
func (c *CLI) applyServeFlags(cmd *cobra.Command, opts *serveOpts) {
	cfg := c.Config.Serve
	flags := cmd.Flags()
	if !flags.Changed("addr") {
		opts.addr = cfg.Addr
	}
	if !flags.Changed("store") {
		opts.store = cfg.Store
	}
	if !flags.Changed("mongo-uri") {
		opts.mongoURI = cfg.MongoURI
	}
	if !flags.Changed("mongo-db") {
		opts.mongoDB = cfg.MongoDatabase
	}
	if !flags.Changed("detailed") {
		opts.detailed = c.Config.Render.Detailed
	}
	if !flags.Changed("metrics") {
		opts.metrics = cfg.Metrics
	}
	if flags.Changed("cache") {
		c.Config.Cache.Backend = opts.cache
	}
	if flags.Changed("redis-addr") {
		c.Config.Cache.RedisAddr = opts.redisAddr
	}
}

func (c *CLI) openStore(ctx context.Context, opts serveOpts) (store.Store, error) {
	switch opts.store {
	case storeMemory, "":
		return store.NewMemoryStore(), nil
	case storeMongo:
		if opts.mongoURI == "" {
			return nil, fmt.Errorf("--store mongo needs --mongo-uri")
		}
		return store.NewMongoStore(ctx, store.MongoOptions{URI: opts.mongoURI, Database: opts.mongoDB})
	default:
		return nil, fmt.Errorf("unknown store %q (must be one of: memory, mongo)", opts.store)
	}
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	st, err := c.openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return err
	}
	defer runner.Close()

	cfg := server.Config{
		Store:    st,
		Runner:   runner,
		Logger:   logger,
		Detailed: opts.detailed,
	}
	if opts.metrics {
		hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
		observability.SetReconcileHooks(hooks)
		observability.SetCacheHooks(hooks)
		observability.SetHTTPHooks(hooks)
		defer observability.Reset()
		cfg.Metrics = hooks.Handler()
	}

	printInfo("Serving on %s", StyleLink.Render("http://"+displayAddr(opts.addr)))
	printDetail("store: %s · cache: %s", opts.store, c.Config.Cache.Backend)

	err = server.New(cfg).ListenAndServe(ctx, opts.addr)
	if errors.Is(err, context.Canceled) {
		printInfo("Server stopped")
		return nil
	}
	return err
}

// displayAddr turns ":8080" into "localhost:8080" for printing.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
