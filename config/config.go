package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "PRICING_CONFIG_FILE"
	envPrefix         = "PRICING"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type storage struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	SeedFile string `mapstructure:"seed_file"`
}

type topics struct {
	CompetitorPrices   string `mapstructure:"competitor_prices"`
	InventoryChanges   string `mapstructure:"inventory_changes"`
	PurchaseSelections string `mapstructure:"purchase_selections"`
	SeasonalRequests   string `mapstructure:"seasonal_requests"`
	PriceChanges       string `mapstructure:"price_changes"`
}

type consumers struct {
	TriggerGroup   string `mapstructure:"trigger_group"`
	PriceViewGroup string `mapstructure:"price_view_group"`
}

type brokerTLS struct {
	CAFile   string `mapstructure:"ca_file"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// Enabled reports whether the broker connections use mutual TLS.
func (t brokerTLS) Enabled() bool {
	return t.CAFile != ""
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	TLS                brokerTLS `mapstructure:"tls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
}

type pricing struct {
	DemandCoefficient decimal.Decimal `mapstructure:"demand_coefficient"`
}

type invoker struct {
	SeasonalURL string        `mapstructure:"seasonal_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type httpServer struct {
	Addr           string        `mapstructure:"addr"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

type Config struct {
	LogLevel slog.Level `mapstructure:"log_level"`
	HTTP     httpServer `mapstructure:"http"`
	Storage  storage    `mapstructure:"storage"`
	Broker   broker     `mapstructure:"broker"`
	Pricing  pricing    `mapstructure:"pricing"`
	Invoker  invoker    `mapstructure:"invoker"`
}

// KafkaEnabled reports whether seed brokers are configured. Without them
// the service runs on HTTP intake only.
func (c Config) KafkaEnabled() bool {
	return len(c.Broker.SeedBrokers) != 0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.handler_timeout", "15s")
	v.SetDefault("http.rate_limit", 0)
	v.SetDefault("http.rate_burst", 0)
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "file:pricing.db?_busy_timeout=5000")
	v.SetDefault("storage.seed_file", "")
	v.SetDefault("broker.seed_brokers", []string{})
	v.SetDefault("broker.schema_registry_urls", []string{})
	v.SetDefault("broker.tls.ca_file", "")
	v.SetDefault("broker.tls.cert_file", "")
	v.SetDefault("broker.tls.key_file", "")
	v.SetDefault("broker.topics.competitor_prices", "competitor-prices")
	v.SetDefault("broker.topics.inventory_changes", "inventory-changes")
	v.SetDefault("broker.topics.purchase_selections", "purchase-selections")
	v.SetDefault("broker.topics.seasonal_requests", "seasonal-requests")
	v.SetDefault("broker.topics.price_changes", "price-changes")
	v.SetDefault("broker.consumers.trigger_group", "pricing-triggers")
	v.SetDefault("broker.consumers.price_view_group", "price-view")
	v.SetDefault("pricing.demand_coefficient", "0.05")
	v.SetDefault("invoker.seasonal_url", "")
	v.SetDefault("invoker.timeout", "10s")
}

// Load reads the configuration for the process arguments and exits on
// failure.
func Load() Config {
	cfg, err := LoadFrom(os.Args[1:])
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFrom reads the file named by the --config flag in args or by the
// PRICING_CONFIG_FILE variable, then applies PRICING_* overrides.
// Without a file only defaults and the environment are used.
func LoadFrom(args []string) (Config, error) {
	const op = "config.LoadFrom"

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := configFilepath(args)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	var cfg Config
	err = v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverSQLite:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for SQL drivers")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Pricing.DemandCoefficient.IsNegative() {
		return errors.New("pricing.demand_coefficient must not be negative")
	}

	if c.KafkaEnabled() && len(c.Broker.SchemaRegistryURLs) == 0 {
		return errors.New("broker.schema_registry_urls are required with seed brokers")
	}

	if c.Broker.TLS.Enabled() &&
		(c.Broker.TLS.CertFile == "" || c.Broker.TLS.KeyFile == "") {
		return errors.New("broker.tls requires ca_file, cert_file and key_file")
	}
	return nil
}

func configFilepath(args []string) (string, error) {
	cmdLine := pflag.NewFlagSet("pricing", pflag.ContinueOnError)
	arg := cmdLine.String("config", "", "config file")
	if err := cmdLine.Parse(args); err != nil {
		return "", err
	}
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env, nil
	}
	return *arg, nil
}

func die(err error) {
	fmt.Printf("failed to load config: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPAddr=%q
	HTTPHandlerTimeout=%s
	HTTPRateLimit=%v/%d

	Storage:
	Driver=%q
	SeedFile=%q

	Pricing:
	DemandCoefficient=%s
	SeasonalURL=%q
	InvokerTimeout=%s

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	TLS=%t
	Topics:
		CompetitorPrices=%q
		InventoryChanges=%q
		PurchaseSelections=%q
		SeasonalRequests=%q
		PriceChanges=%q
	Consumers:
		TriggerGroup=%q
		PriceViewGroup=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTP.Addr,
		c.HTTP.HandlerTimeout,
		c.HTTP.RateLimit,
		c.HTTP.RateBurst,
		c.Storage.Driver,
		c.Storage.SeedFile,
		c.Pricing.DemandCoefficient,
		c.Invoker.SeasonalURL,
		c.Invoker.Timeout,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.TLS.Enabled(),
		c.Broker.Topics.CompetitorPrices,
		c.Broker.Topics.InventoryChanges,
		c.Broker.Topics.PurchaseSelections,
		c.Broker.Topics.SeasonalRequests,
		c.Broker.Topics.PriceChanges,
		c.Broker.Consumers.TriggerGroup,
		c.Broker.Consumers.PriceViewGroup,
	)
}
