package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-carmarket/cache"
	"github.com/goliatone/go-carmarket/config"
	"github.com/goliatone/go-carmarket/httpapi"
	"github.com/goliatone/go-carmarket/kvstore"
	"github.com/goliatone/go-carmarket/logging"
	"github.com/goliatone/go-carmarket/marketplace"
	"github.com/goliatone/go-carmarket/metrics"
	"github.com/goliatone/go-carmarket/remote/bunclient"
)

// Container is the composition root. It owns the cache store, the database
// client and the key-value store, and builds the marketplace service on top
// of them. Close releases everything it opened.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	store         cache.Store
	keySerializer cache.KeySerializer
	client        *bunclient.Client
	kv            kvstore.Store
	service       *marketplace.Service
	closers       []io.Closer
}

type containerOptions struct {
	logger       *slog.Logger
	logOutput    io.Writer
	registry     *prometheus.Registry
	cacheOptions []cache.Option
	service      []marketplace.Option
}

// Option customizes a Container.
type Option func(*containerOptions)

// WithLogger replaces the logger built from the logging section.
func WithLogger(logger *slog.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithLogOutput redirects the configured logger.
func WithLogOutput(w io.Writer) Option {
	return func(o *containerOptions) {
		o.logOutput = w
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *containerOptions) {
		o.registry = reg
	}
}

// WithCacheOptions passes options to the cache store, such as a test clock.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *containerOptions) {
		o.cacheOptions = append(o.cacheOptions, opts...)
	}
}

// WithServiceOptions appends options applied after the configured ones.
func WithServiceOptions(opts ...marketplace.Option) Option {
	return func(o *containerOptions) {
		o.service = append(o.service, opts...)
	}
}

// NewContainer validates cfg and wires every dependency. On failure the
// resources opened so far are released.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	var o containerOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		keySerializer: cache.NewDefaultKeySerializer(),
		metrics:       metrics.NewRecorder(o.registry),
	}

	c.logger = o.logger
	if c.logger == nil {
		logger, err := logging.New(cfg.Logging, o.logOutput)
		if err != nil {
			return nil, err
		}
		c.logger = logger
	}

	if err := c.wire(ctx, o); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	return c, nil
}

// NewContainerWithDefaults builds a container from config.DefaultConfig.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, config.DefaultConfig(), opts...)
}

func (c *Container) wire(ctx context.Context, o containerOptions) error {
	storeCfg, err := c.config.CacheStoreConfig()
	if err != nil {
		return err
	}
	store, closer, err := cache.NewStore(ctx, storeCfg, o.cacheOptions...)
	if err != nil {
		return fmt.Errorf("di: cache store: %w", err)
	}
	c.store = store
	c.closers = append(c.closers, closer)

	clientCfg, err := c.config.ClientConfig()
	if err != nil {
		return err
	}
	client, err := bunclient.Open(ctx, clientCfg)
	if err != nil {
		return err
	}
	c.client = client
	c.closers = append(c.closers, client)

	switch c.config.KV.Backend {
	case config.KVRedis:
		rdb, err := cache.DialRedis(ctx, storeCfg.Redis)
		if err != nil {
			return fmt.Errorf("di: kv store: %w", err)
		}
		c.closers = append(c.closers, rdb)
		c.kv = kvstore.NewRedis(rdb, storeCfg.Redis.Prefix+"-kv")
	default:
		c.kv = kvstore.NewMemory()
	}

	policy, err := c.config.TTLPolicy()
	if err != nil {
		return err
	}

	serviceOpts := []marketplace.Option{
		marketplace.WithKeySerializer(c.keySerializer),
		marketplace.WithTTLPolicy(policy),
		marketplace.WithLogger(c.logger),
		marketplace.WithMetrics(c.metrics),
		marketplace.WithConnectivityProbe(c.config.Facade.ProbeConnectivity),
		marketplace.WithSingleFlight(c.config.Facade.SingleFlight),
		marketplace.WithInvalidateOnWrite(c.config.Facade.InvalidateOnWrite),
		marketplace.WithFeaturedLimit(c.config.Facade.FeaturedLimit),
		marketplace.WithRecentSearches(marketplace.NewRecentSearches(c.kv)),
	}
	c.service = marketplace.New(client, store, append(serviceOpts, o.service...)...)

	c.logger.Info("container ready",
		slog.String("cache_backend", string(storeCfg.Backend)),
		slog.String("database_driver", clientCfg.Driver),
		slog.String("kv_backend", c.config.KV.Backend),
	)
	return nil
}

// Migrate creates the schema and, when fixtures is non-nil, loads them.
func (c *Container) Migrate(ctx context.Context, fixtures *bunclient.Fixtures) error {
	if err := bunclient.CreateSchema(ctx, c.client.DB()); err != nil {
		return err
	}
	if fixtures == nil {
		return nil
	}
	return bunclient.Seed(ctx, c.client.DB(), *fixtures)
}

func (c *Container) Service() *marketplace.Service {
	return c.service
}

// Store returns the shared cache store.
func (c *Container) Store() cache.Store {
	return c.store
}

func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

func (c *Container) Client() *bunclient.Client {
	return c.client
}

func (c *Container) KV() kvstore.Store {
	return c.kv
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

func (c *Container) Metrics() *metrics.Recorder {
	return c.metrics
}

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// Handler returns the HTTP API over the container's service.
func (c *Container) Handler() http.Handler {
	return httpapi.New(c.service, c.metrics, c.logger)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
