package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to the upper-cased key of every setting when read
// from the environment, e.g. NUMBERS_INSTANCEID or NUMBERS_LOGLEVEL.
const EnvPrefix = "NUMBERS"

// Config is shared by all of the binaries. Not every field means something to
// every binary; the frontend doesn't listen for gRPC, and numbersd doesn't
// serve the JSON API.
type Config struct {

	// Address to listen on for gRPC. numbersd only.
	Addr string `mapstructure:"addr"`

	// Address for other services to reach this one. Defaults to Addr.
	PubAddr string `mapstructure:"pubAddr"`

	// Identifies this instance in service discovery, and in every result it
	// computes. Defaults to something derived from PubAddr.
	InstanceID string `mapstructure:"instanceId"`

	// The name that numbers service instances register under, and that the
	// frontend looks them up by.
	ServiceName string `mapstructure:"serviceName"`

	// Address to serve HTTP on. For the frontend, that's the JSON API and
	// metrics. For numbersd, just metrics; empty disables it.
	HTTPAddr string `mapstructure:"httpAddr"`

	LogLevel string `mapstructure:"logLevel"`

	Discovery DiscoveryConfig `mapstructure:"discovery"`
}

type DiscoveryConfig struct {

	// How often the frontend polls the catalog for instances.
	Interval time.Duration `mapstructure:"interval"`

	// How often Consul should health check each instance, and how long to wait
	// for a response.
	CheckInterval time.Duration `mapstructure:"checkInterval"`
	CheckTimeout  time.Duration `mapstructure:"checkTimeout"`

	// How long an instance can be critical before Consul deregisters it.
	DeregisterAfter time.Duration `mapstructure:"deregisterAfter"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", "localhost:9000")
	v.SetDefault("pubAddr", "")
	v.SetDefault("instanceId", "")
	v.SetDefault("serviceName", "numbers")
	v.SetDefault("httpAddr", "")
	v.SetDefault("logLevel", "info")

	v.SetDefault("discovery.interval", "1s")
	v.SetDefault("discovery.checkInterval", "3s")
	v.SetDefault("discovery.checkTimeout", "1s")
	v.SetDefault("discovery.deregisterAfter", "10s")
}

// Flags returns the flags which every binary accepts. The names match the
// config keys, so that BindPFlags can line them up.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to YAML config file")
	fs.String("addr", "", "address to start grpc server on")
	fs.String("pubAddr", "", "address for other services to reach this (default: same as --addr)")
	fs.String("instanceId", "", "instance identifier (default: derived from --pubAddr)")
	fs.String("serviceName", "", "service name to register or discover numbers instances as")
	fs.String("httpAddr", "", "address to serve http on")
	fs.String("logLevel", "", "one of debug, info, warn, error")
	return fs
}

// Load reads the config from (in increasing order of precedence) defaults, the
// YAML file named by the --config flag, the environment, and flags which were
// explicitly set.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		// Only bind flags which were set, so that empty flag defaults don't
		// shadow the real defaults above.
		var err error
		fs.Visit(func(f *pflag.Flag) {
			if f.Name == "config" || err != nil {
				return
			}
			err = v.BindPFlag(f.Name, f)
		})
		if err != nil {
			return Config{}, fmt.Errorf("error binding flags: %w", err)
		}

		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.PubAddr == "" {
		cfg.PubAddr = cfg.Addr
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("missing: serviceName")
	}

	if c.Discovery.Interval <= 0 {
		return fmt.Errorf("invalid discovery.interval: %s", c.Discovery.Interval)
	}

	return nil
}
