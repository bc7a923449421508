package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-pqc/internal/orchestrator"
	"github.com/khanhnv2901/seca-pqc/internal/probe"
)

// Store drivers.
const (
	storeDriverJSON     = "json"
	storeDriverPostgres = "postgres"
	storeDriverNone     = "none"
)

// Cancellation backends.
const (
	cancelBackendMemory = "memory"
	cancelBackendRedis  = "redis"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Scan     ScanRuntimeConfig
	Store    StoreConfig
	Cancel   CancelConfig
}

// DefaultValues represent operator-level defaults, typically derived from env/config.
type DefaultValues struct {
	Operator         string
	TelemetryEnabled bool
}

// ScanRuntimeConfig holds the retry policy and probe settings.
type ScanRuntimeConfig struct {
	MaxRounds          int
	RetryDelay         time.Duration
	InitialTimeout     time.Duration
	TimeoutIncrement   time.Duration
	Concurrency        int
	BackoffAttempts    int
	BackoffBase        time.Duration
	Pacing             time.Duration
	DispatchInterval   time.Duration
	PrecheckTimeout    time.Duration
	SingleTimeout      time.Duration
	Tool               string
	RenormalizeWeights bool
	SaveResults        bool
	ProgressEnabled    bool
}

// StoreConfig selects where batches are persisted.
type StoreConfig struct {
	Driver   string
	DSN      string
	MaxConns int
}

// CancelConfig selects where cancellation flags live.
type CancelConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type defaultOverrides struct {
	TelemetryEnabled *bool
	Operator         string
	OperatorOverride bool
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	policy := orchestrator.DefaultPolicy()
	return &CLIConfig{
		Defaults: DefaultValues{
			Operator:         detectOperatorFromEnv(),
			TelemetryEnabled: true,
		},
		Scan: ScanRuntimeConfig{
			MaxRounds:        policy.MaxRounds,
			RetryDelay:       policy.RetryDelay,
			InitialTimeout:   policy.InitialTimeout,
			TimeoutIncrement: policy.TimeoutIncrement,
			Concurrency:      policy.MaxConcurrency,
			BackoffAttempts:  policy.BackoffAttempts,
			BackoffBase:      policy.BackoffBase,
			Pacing:           policy.Pacing,
			PrecheckTimeout:  probe.DefaultPrecheckTimeout,
			SingleTimeout:    orchestrator.DefaultSingleTimeout,
			Tool:             probe.DefaultCommand,
			SaveResults:      true,
			ProgressEnabled:  true,
		},
		Store: StoreConfig{
			Driver:   storeDriverJSON,
			MaxConns: 10,
		},
		Cancel: CancelConfig{
			Backend:   cancelBackendMemory,
			RedisAddr: "localhost:6379",
		},
	}
}

// Policy converts the scan settings into an orchestrator policy.
func (c ScanRuntimeConfig) Policy() orchestrator.Policy {
	return orchestrator.Policy{
		MaxRounds:        c.MaxRounds,
		RetryDelay:       c.RetryDelay,
		InitialTimeout:   c.InitialTimeout,
		TimeoutIncrement: c.TimeoutIncrement,
		MaxConcurrency:   c.Concurrency,
		BackoffAttempts:  c.BackoffAttempts,
		BackoffBase:      c.BackoffBase,
		Pacing:           c.Pacing,
		DispatchInterval: c.DispatchInterval,
	}
}

func detectOperatorFromEnv() string {
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	if env := os.Getenv("LOGNAME"); env != "" {
		return env
	}
	return ""
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{}

	if viper.IsSet("defaults.telemetry") {
		val := viper.GetBool("defaults.telemetry")
		overrides.TelemetryEnabled = &val
	}

	if viper.IsSet("defaults.operator") {
		overrides.Operator = viper.GetString("defaults.operator")
		overrides.OperatorOverride = true
	}

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadDefaultOverrides()
	flags := cmd.Flags()

	if overrides.OperatorOverride && overrides.Operator != "" {
		cliConfig.Defaults.Operator = overrides.Operator
		setStringFlagIfUnset(flags, "operator", overrides.Operator)
	}

	if overrides.TelemetryEnabled != nil {
		applyBoolDefault(flags, "telemetry", *overrides.TelemetryEnabled, func(v bool) {
			cliConfig.Defaults.TelemetryEnabled = v
		})
	}

	scanCfg := &cliConfig.Scan
	applyViperInt(flags, "scan.max_rounds", "rounds", &scanCfg.MaxRounds)
	applyViperInt(flags, "scan.concurrency", "concurrency", &scanCfg.Concurrency)
	applyViperInt(flags, "scan.backoff_attempts", "backoff-attempts", &scanCfg.BackoffAttempts)
	applyViperDuration(flags, "scan.retry_delay", "retry-delay", &scanCfg.RetryDelay)
	applyViperDuration(flags, "scan.initial_timeout", "timeout", &scanCfg.InitialTimeout)
	applyViperDuration(flags, "scan.timeout_increment", "timeout-increment", &scanCfg.TimeoutIncrement)
	applyViperDuration(flags, "scan.backoff_base", "backoff-base", &scanCfg.BackoffBase)
	applyViperDuration(flags, "scan.pacing", "pacing", &scanCfg.Pacing)
	applyViperDuration(flags, "scan.dispatch_interval", "dispatch-interval", &scanCfg.DispatchInterval)
	applyViperDuration(flags, "scan.precheck_timeout", "precheck-timeout", &scanCfg.PrecheckTimeout)
	applyViperDuration(flags, "scan.single_timeout", "single-timeout", &scanCfg.SingleTimeout)
	applyViperString(flags, "scan.tool", "tool", &scanCfg.Tool)
	applyViperBool(flags, "scan.renormalize_weights", "renormalize", &scanCfg.RenormalizeWeights)
	applyViperBool(flags, "scan.save_results", "save", &scanCfg.SaveResults)

	applyViperString(flags, "store.driver", "store", &cliConfig.Store.Driver)
	applyViperString(flags, "store.dsn", "dsn", &cliConfig.Store.DSN)
	applyViperInt(flags, "store.max_conns", "max-conns", &cliConfig.Store.MaxConns)

	applyViperString(flags, "cancel.backend", "cancel-backend", &cliConfig.Cancel.Backend)
	applyViperString(flags, "cancel.redis_addr", "redis-addr", &cliConfig.Cancel.RedisAddr)
	applyViperString(flags, "cancel.redis_password", "redis-password", &cliConfig.Cancel.RedisPassword)
	applyViperInt(flags, "cancel.redis_db", "redis-db", &cliConfig.Cancel.RedisDB)
}

func applyViperInt(flags *pflag.FlagSet, key, flag string, dst *int) {
	if !viper.IsSet(key) {
		return
	}
	applyIntDefault(flags, flag, viper.GetInt(key), func(v int) { *dst = v })
}

func applyViperBool(flags *pflag.FlagSet, key, flag string, dst *bool) {
	if !viper.IsSet(key) {
		return
	}
	applyBoolDefault(flags, flag, viper.GetBool(key), func(v bool) { *dst = v })
}

func applyViperDuration(flags *pflag.FlagSet, key, flag string, dst *time.Duration) {
	if !viper.IsSet(key) {
		return
	}
	applyDurationDefault(flags, flag, viper.GetDuration(key), func(v time.Duration) { *dst = v })
}

func applyViperString(flags *pflag.FlagSet, key, flag string, dst *string) {
	if !viper.IsSet(key) {
		return
	}
	applyStringDefault(flags, flag, viper.GetString(key), func(v string) { *dst = v })
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyDurationDefault(flags *pflag.FlagSet, name string, value time.Duration, setter func(time.Duration)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}

// addScanFlags binds the retry policy flags of the scan command.
func addScanFlags(flags *pflag.FlagSet) {
	c := &cliConfig.Scan
	flags.IntVar(&c.MaxRounds, "rounds", c.MaxRounds, "Maximum retry rounds")
	flags.IntVar(&c.Concurrency, "concurrency", c.Concurrency, "Parallel scans per round (capped at 2)")
	flags.IntVar(&c.BackoffAttempts, "backoff-attempts", c.BackoffAttempts, "Attempts per scan when rate limited")
	flags.DurationVar(&c.RetryDelay, "retry-delay", c.RetryDelay, "Delay between retry rounds")
	flags.DurationVar(&c.InitialTimeout, "timeout", c.InitialTimeout, "Probe timeout in the first round")
	flags.DurationVar(&c.TimeoutIncrement, "timeout-increment", c.TimeoutIncrement, "Probe timeout added per round")
	flags.DurationVar(&c.BackoffBase, "backoff-base", c.BackoffBase, "First rate-limit backoff delay")
	flags.DurationVar(&c.Pacing, "pacing", c.Pacing, "Pause after each successful scan")
	flags.DurationVar(&c.DispatchInterval, "dispatch-interval", c.DispatchInterval, "Minimum spacing between probe launches (0 = disabled)")
	flags.DurationVar(&c.PrecheckTimeout, "precheck-timeout", c.PrecheckTimeout, "DNS precheck timeout")
	flags.DurationVar(&c.SingleTimeout, "single-timeout", c.SingleTimeout, "Timeout for single-domain API scans")
	flags.StringVar(&c.Tool, "tool", c.Tool, "Path to the ssllabs-scan binary")
	flags.BoolVar(&c.RenormalizeWeights, "renormalize", c.RenormalizeWeights, "Renormalize category weights over present categories")
}

// addStoreFlags binds the persistence flags.
func addStoreFlags(flags *pflag.FlagSet) {
	c := &cliConfig.Store
	flags.StringVar(&c.Driver, "store", c.Driver, "Result store: json, postgres or none")
	flags.StringVar(&c.DSN, "dsn", c.DSN, "Postgres connection string (store=postgres)")
	flags.IntVar(&c.MaxConns, "max-conns", c.MaxConns, "Postgres pool size")
}

// addCancelFlags binds the cancellation registry flags.
func addCancelFlags(flags *pflag.FlagSet) {
	c := &cliConfig.Cancel
	flags.StringVar(&c.Backend, "cancel-backend", c.Backend, "Cancellation registry: memory or redis")
	flags.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address (cancel-backend=redis)")
	flags.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	flags.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")
}
