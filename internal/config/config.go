// Package config loads cifscloak settings from defaults, an optional
// config.yaml inside the vault directory, CIFSCLOAK_* environment variables
// and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lovincyrus/cifscloak/internal/mount"
)

const (
	EnvPrefix      = "CIFSCLOAK"
	VaultDirName   = ".cifstab"
	ConfigFileName = "config"
)

// PolicyConfig overrides the token sets of one operation. Empty lists keep
// the built-in tables.
type PolicyConfig struct {
	Retryable  []string `mapstructure:"retryable"`
	Acceptable []string `mapstructure:"acceptable"`
}

// Config is the resolved runtime configuration.
type Config struct {
	// Home is the directory holding .cifstab, the user's home by default.
	Home string `mapstructure:"home" validate:"required"`

	Retries       int           `mapstructure:"retries" default:"3" validate:"gte=1"`
	WaitSecs      int           `mapstructure:"waitsecs" default:"5" validate:"gte=0"`
	PromptTimeout time.Duration `mapstructure:"prompt_timeout" default:"3s" validate:"gt=0"`

	MountBinary  string `mapstructure:"mount_binary" default:"mount" validate:"required"`
	UmountBinary string `mapstructure:"umount_binary" default:"umount" validate:"required"`

	Debug     bool   `mapstructure:"debug"`
	SyslogTag string `mapstructure:"syslog_tag" default:"cifscloak" validate:"required"`

	Policy struct {
		Mount  PolicyConfig `mapstructure:"mount"`
		Umount PolicyConfig `mapstructure:"umount"`
	} `mapstructure:"policy"`
}

// keys are bound to the environment explicitly; viper's Unmarshal only
// sees environment values for keys it already knows.
var keys = []string{
	"home", "retries", "waitsecs", "prompt_timeout",
	"mount_binary", "umount_binary", "debug", "syslog_tag",
	"policy.mount.retryable", "policy.mount.acceptable",
	"policy.umount.retryable", "policy.umount.acceptable",
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"home":           "home",
	"debug":          "debug",
	"retries":        "retries",
	"waitsecs":       "waitsecs",
	"prompt-timeout": "prompt_timeout",
}

var validate = validator.New()

// Load resolves the configuration. flags may be nil. Only flags set on the
// command line are bound, so a flag's default never masks the config file.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setupViper(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", name)
				}
			}
		}
	}

	home := v.GetString("home")
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return nil, errors.Wrap(err, "resolve home directory")
		}
		v.SetDefault("home", home)
	}

	explicit := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Changed {
			explicit = f.Value.String()
		}
	}
	if err := readConfigFile(v, filepath.Join(home, VaultDirName), explicit); err != nil {
		return nil, err
	}

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "apply defaults")
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// readConfigFile reads config.yaml from dir, or the explicit path. A
// missing default file is not an error; a missing explicit file is.
func readConfigFile(v *viper.Viper, dir, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "read config file")
	}
	return nil
}

// Validate checks cfg and reports the first failing field.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return errors.Newf("%s: failed %q check (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// VaultDir is where the database and key file live.
func (c *Config) VaultDir() string {
	return filepath.Join(c.Home, VaultDirName)
}

// Wait is WaitSecs as a duration.
func (c *Config) Wait() time.Duration {
	return time.Duration(c.WaitSecs) * time.Second
}

// Policies returns the built-in tables with any configured overrides.
func (c *Config) Policies() mount.Policies {
	ps := mount.DefaultPolicies()
	for op, pc := range map[mount.Operation]PolicyConfig{
		mount.OpMount:  c.Policy.Mount,
		mount.OpUmount: c.Policy.Umount,
	} {
		p := ps[op]
		if len(pc.Retryable) > 0 {
			p.Retryable = pc.Retryable
		}
		if len(pc.Acceptable) > 0 {
			p.Acceptable = pc.Acceptable
		}
		p.MaxAttempts = c.Retries
		p.Delay = c.Wait()
		ps[op] = p
	}
	return ps
}

// CommandLine returns the external tool names to run.
func (c *Config) CommandLine() mount.CommandLine {
	cl := mount.DefaultCommandLine()
	cl.MountBinary = c.MountBinary
	cl.UmountBinary = c.UmountBinary
	return cl
}
