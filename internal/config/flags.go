package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flags records the settings given on the command line so they can be
// applied after the file and environment overlays.
type Flags struct {
	ConfigFile string

	values []*flagValue
}

type flagValue struct {
	opt option
	def string
	raw string
	set bool
}

func (v *flagValue) String() string {
	if v.set {
		return v.raw
	}
	return v.def
}

func (v *flagValue) Set(s string) error {
	scratch := Default()
	if err := v.opt.set(scratch, s); err != nil {
		return err
	}
	v.raw = s
	v.set = true
	return nil
}

func (v *flagValue) Type() string { return "string" }

// BindFlags registers one flag per option plus --config on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	defaults := Default()
	f := &Flags{}
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "YAML or JSON configuration file (env "+EnvConfigFile+")")
	for _, opt := range options {
		v := &flagValue{opt: opt, def: opt.get(defaults)}
		fs.Var(v, opt.flag(), fmt.Sprintf("%s (env %s)", opt.usage, opt.env()))
		f.values = append(f.values, v)
	}
	return f
}

// Apply overlays the flags that were set explicitly.
func (f *Flags) Apply(c *Config) error {
	if f == nil {
		return nil
	}
	for _, v := range f.values {
		if !v.set {
			continue
		}
		if err := v.opt.set(c, v.raw); err != nil {
			return fmt.Errorf("config: --%s: %w", v.opt.flag(), err)
		}
	}
	return nil
}

// Load builds the effective configuration: defaults, then the file named by
// --config or HDFS_CRUD_CONFIG, then the environment, then explicit flags.
func Load(f *Flags, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	file := ""
	if f != nil {
		file = f.ConfigFile
	}
	if file == "" {
		file, _ = lookup(EnvConfigFile)
	}
	if file != "" {
		if err := cfg.LoadFile(file); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(lookup); err != nil {
		return nil, err
	}
	if err := f.Apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
