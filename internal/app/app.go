package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/niksmo/dynamic-pricing/config"
	"github.com/niksmo/dynamic-pricing/internal/adapter"
	"github.com/niksmo/dynamic-pricing/internal/adapter/httphandler"
	"github.com/niksmo/dynamic-pricing/internal/adapter/invoker"
	"github.com/niksmo/dynamic-pricing/internal/adapter/kafka"
	"github.com/niksmo/dynamic-pricing/internal/adapter/metrics"
	"github.com/niksmo/dynamic-pricing/internal/adapter/storage"
	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/router"
	"github.com/niksmo/dynamic-pricing/internal/core/service"
	"github.com/niksmo/dynamic-pricing/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/sr"
	"golang.org/x/sync/errgroup"
)

type serdes struct {
	priceChanged schema.Serde
}

type producers struct {
	priceChanges kafka.PriceChangesProducer
	changeStream kafka.ChangeStreamProducer
}

type consumers struct {
	triggers kafka.TriggerConsumer
}

type views struct {
	proc  *kafka.PriceViewProcessor
	price kafka.PriceView
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	registry   *prometheus.Registry
	sqlDB      *storage.SQLDB
	stores     service.Stores
	tlsCfg     *tls.Config
	serdes     serdes
	producers  producers
	consumers  consumers
	views      views
	service    service.Service
	router     router.Router
	httpServer httphandler.HTTPServer
	runners    *errgroup.Group
	procWG     *sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{
		ctx:      ctx,
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		procWG:   new(sync.WaitGroup),
	}

	app.initLogger()
	app.initMetrics()
	app.initStorage()
	if cfg.KafkaEnabled() {
		app.initBrokerTLS()
		app.initSerdes()
		app.initOutboundAdapters()
	}
	app.initCoreService()
	if cfg.KafkaEnabled() {
		app.initKafkaInboundAdapters()
	}
	app.initHTTPServer()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initMetrics() {
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func (app *App) initStorage() {
	const op = "App.initStorage"
	log := slog.With("op", op, "driver", app.cfg.Storage.Driver)

	if app.cfg.Storage.Driver == config.DriverMemory {
		store := storage.NewMemoryStore()
		if path := app.cfg.Storage.SeedFile; path != "" {
			app.loadSeed(store, path)
		}
		app.stores = service.Stores{
			Prices:     store,
			Products:   store,
			Customers:  store,
			Promotions: store,
			Selections: store,
		}
		log.Info("storage is ready")
		return
	}

	if app.cfg.Storage.SeedFile != "" {
		log.Warn("seed file is only loaded by the memory driver")
	}

	dialect := storage.Dialect(app.cfg.Storage.Driver)
	db, err := storage.NewSQLDB(app.ctx, dialect, app.cfg.Storage.DSN)
	if err != nil {
		app.fallDown(op, err)
	}
	if err := storage.Migrate(db); err != nil {
		app.fallDown(op, err)
	}

	app.sqlDB = &db
	app.stores = service.Stores{
		Prices:     storage.NewPricesRepository(db),
		Products:   storage.NewProductsRepository(db),
		Customers:  storage.NewCustomersRepository(db),
		Promotions: storage.NewPromotionsRepository(db),
		Selections: storage.NewSelectionsRepository(db),
	}
	log.Info("storage is ready")
}

func (app *App) loadSeed(store *storage.MemoryStore, path string) {
	const op = "App.loadSeed"

	f, err := os.Open(path)
	if err != nil {
		app.fallDown(op, err)
	}
	defer f.Close()

	if err := store.LoadSeed(f); err != nil {
		app.fallDown(op, err)
	}
}

func (app *App) initBrokerTLS() {
	const op = "App.initBrokerTLS"

	t := app.cfg.Broker.TLS
	if !t.Enabled() {
		return
	}

	tlsCfg, err := adapter.MakeTLSConfig(t.CAFile, t.CertFile, t.KeyFile)
	if err != nil {
		app.fallDown(op, err)
	}
	app.tlsCfg = tlsCfg
	kafka.ApplyGokaTLS(tlsCfg)
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"
	urls := app.cfg.Broker.SchemaRegistryURLs

	srOpts := []sr.ClientOpt{sr.URLs(urls...)}
	if app.tlsCfg != nil {
		srOpts = append(srOpts, sr.DialTLSConfig(app.tlsCfg))
	}
	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		app.fallDown(op, err)
	}

	schemaCreater := schema.NewSchemaCreater(srClient)

	subject := app.cfg.Broker.Topics.PriceChanges + "-value"
	priceChangedSerde, err := schema.NewSerdePriceChangedV1(
		app.ctx,
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes.priceChanged = priceChangedSerde
}

func (app *App) initOutboundAdapters() {
	const op = "App.initOutboundAdapters"

	ctx := app.ctx
	seedBrokers := app.cfg.Broker.SeedBrokers
	topics := app.cfg.Broker.Topics
	tlsOpts := kafka.TLSOpts(app.tlsCfg)

	priceChangesProducer, err := kafka.NewPriceChangesProducer(
		kafka.ProducerClientOpt(ctx, seedBrokers, topics.PriceChanges, tlsOpts...),
		kafka.ProducerEncoderOpt(app.serdes.priceChanged),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	changeStreamProducer, err := kafka.NewChangeStreamProducer(
		kafka.ProducerClientOpt(ctx, seedBrokers, "", tlsOpts...),
		kafka.ChangeStreamTopicsOpt(topics.InventoryChanges, topics.PurchaseSelections),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.producers.priceChanges = priceChangesProducer
	app.producers.changeStream = changeStreamProducer
}

func (app *App) initCoreService() {
	opts := []service.Opt{
		service.DemandCoefficientOpt(app.cfg.Pricing.DemandCoefficient),
		service.SeasonalInvokerOpt(invoker.NewSeasonalInvoker(
			app.seasonalURL(), app.cfg.Invoker.Timeout,
		)),
	}
	if app.cfg.KafkaEnabled() {
		opts = append(opts,
			service.PriceEventsOpt(app.producers.priceChanges),
			service.ChangeStreamOpt(app.producers.changeStream),
		)
	}

	app.service = service.New(app.stores, opts...)
	app.router = router.New(
		app.service,
		router.OutcomeRecorderOpt(metrics.NewOutcomeCounter(app.registry)),
	)
}

// seasonalURL defaults to the seasonal trigger route of this process.
func (app *App) seasonalURL() string {
	if u := app.cfg.Invoker.SeasonalURL; u != "" {
		return u
	}
	host := app.cfg.HTTP.Addr
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	path := httphandler.TriggerPaths[domain.KindSeasonalDiscountRequest]
	return "http://" + host + path
}

func (app *App) initKafkaInboundAdapters() {
	const op = "App.initKafkaInboundAdapters"

	seedBrokers := app.cfg.Broker.SeedBrokers
	topics := app.cfg.Broker.Topics
	groups := app.cfg.Broker.Consumers

	routes := map[string]domain.TriggerKind{
		topics.CompetitorPrices:   domain.KindCompetitorPriceUpdate,
		topics.InventoryChanges:   domain.KindInventoryChange,
		topics.PurchaseSelections: domain.KindPurchaseSelectionInsert,
		topics.SeasonalRequests:   domain.KindSeasonalDiscountRequest,
	}
	routedTopics := make([]string, 0, len(routes))
	for topic := range routes {
		routedTopics = append(routedTopics, topic)
	}

	triggerConsumer, err := kafka.NewTriggerConsumer(
		kafka.ConsumerClientOpt(
			seedBrokers, groups.TriggerGroup, routedTopics,
			kafka.TLSOpts(app.tlsCfg)...,
		),
		kafka.TriggerRoutesOpt(routes),
		kafka.TriggerHandlerOpt(app.router),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	priceViewProc, err := kafka.NewPriceViewProc(
		seedBrokers, topics.PriceChanges, groups.PriceViewGroup,
		app.serdes.priceChanged,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	priceView, err := kafka.NewPriceView(
		seedBrokers, groups.PriceViewGroup, app.serdes.priceChanged,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.consumers.triggers = triggerConsumer
	app.views.proc = priceViewProc
	app.views.price = priceView
}

func (app *App) initHTTPServer() {
	mux := http.NewServeMux()
	httphandler.RegisterTriggers(mux, app.router)
	httphandler.RegisterInventory(mux, app.service)
	httphandler.RegisterSelections(mux, app.service)
	httphandler.RegisterPrices(mux, app.service, app.service)
	if app.cfg.KafkaEnabled() {
		httphandler.RegisterPublishedPrices(mux, app.views.price)
	}
	httphandler.RegisterMetrics(mux, app.registry)

	limit := httphandler.RateLimit(app.cfg.HTTP.RateLimit, app.cfg.HTTP.RateBurst)
	handler := httphandler.RequestID(limit(httphandler.AllowJSON(mux)))
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTP.Addr, handler, app.cfg.HTTP.HandlerTimeout,
	)
}

func (app *App) Run(stopFn context.CancelFunc) {
	g, ctx := errgroup.WithContext(app.ctx)
	app.runners = g

	go app.httpServer.Run(stopFn)

	if app.cfg.KafkaEnabled() {
		app.procWG.Add(1)
		go app.views.proc.Run(ctx, stopFn, app.procWG)

		g.Go(func() error {
			app.consumers.triggers.Run(ctx)
			return nil
		})
		g.Go(func() error {
			if err := app.views.price.Run(ctx); err != nil {
				stopFn()
				return err
			}
			return nil
		})
	}

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	const op = "App.Close"
	log := slog.With("op", op)

	log.Info("application is closing...")

	app.httpServer.Close(ctx)

	if app.cfg.KafkaEnabled() {
		app.views.proc.Close()
		if app.runners != nil {
			if err := app.runners.Wait(); err != nil {
				log.Error("runner stopped with error", "err", err)
			}
		}
		app.procWG.Wait()
		app.consumers.triggers.Close()
		app.producers.priceChanges.Close()
		app.producers.changeStream.Close()
	}

	if app.sqlDB != nil {
		app.sqlDB.Close()
	}

	log.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
