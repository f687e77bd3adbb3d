package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type config struct {
	Port           int           `mapstructure:"port"`
	Hostname       string        `mapstructure:"hostname"`
	DataDir        string        `mapstructure:"data_dir"`
	KeysDir        string        `mapstructure:"keys_dir"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CNAMETTL       time.Duration `mapstructure:"cname_ttl"`
	Debug          bool          `mapstructure:"debug"`

	// MIMETypes maps extra file extensions to media types. It is only
	// read from the config file.
	MIMETypes map[string]string `mapstructure:"mime_types"`

	// GenerateCert is set by --generate-cert and never read from files.
	GenerateCert bool `mapstructure:"-"`
}

// settings lists each configuration key with its flag and environment
// variable.
var settings = []struct {
	key, flag, env string
}{
	{"port", "port", "GEMINI_PORT"},
	{"hostname", "hostname", "GEMINI_HOSTNAME"},
	{"data_dir", "data-dir", "DATA_DIR"},
	{"keys_dir", "keys-dir", "KEYS_DIR"},
	{"idle_timeout", "idle-timeout", "IDLE_TIMEOUT"},
	{"request_timeout", "request-timeout", "REQUEST_TIMEOUT"},
	{"cname_ttl", "cname-ttl", "CNAME_TTL"},
	{"debug", "debug", "DEBUG"},
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("gemhost", pflag.ContinueOnError)
	fs.Int("port", 1965, "port to listen on")
	fs.String("hostname", "localhost", "hostname for generated certificates")
	fs.String("data-dir", "./data", "content root holding one directory per capsule")
	fs.String("keys-dir", "./keys", "directory holding server.crt and server.key")
	fs.Duration("idle-timeout", 30*time.Second, "maximum lifetime of a connection")
	fs.Duration("request-timeout", 10*time.Second, "time allowed to send the request line")
	fs.Duration("cname-ttl", 60*time.Second, "how long CNAME mappings are cached")
	fs.Bool("debug", false, "enable debug logging")
	fs.String("config", "", "path to a config file")
	fs.Bool("generate-cert", false, "write a self-signed certificate to the keys directory and exit")
	return fs
}

// loadConfig builds the configuration from args, the environment and an
// optional config file, in that order of precedence.
func loadConfig(args []string) (*config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	for _, s := range settings {
		if err := v.BindPFlag(s.key, fs.Lookup(s.flag)); err != nil {
			return nil, err
		}
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, err
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	} else {
		v.SetConfigName("gemhost")
		v.AddConfigPath("/etc/gemhost/")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "reading config")
			}
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	cfg.GenerateCert, _ = fs.GetBool("generate-cert")

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.DataDir == "" {
		return nil, errors.New("data_dir must not be empty")
	}
	return &cfg, nil
}
