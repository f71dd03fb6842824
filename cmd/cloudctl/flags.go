package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ShadowFalcon24/atomic-cloud/internal/resource"
)

func bindFlag(v *viper.Viper, key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

// parseKeyValues turns ["k=v", ...] into key/value pairs, keeping order.
func parseKeyValues(pairs []string) ([]resource.KeyValue, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make([]resource.KeyValue, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		out = append(out, resource.KeyValue{Key: key, Value: value})
	}
	return out, nil
}

// resourceFlags are the allocation flags shared by groups and servers.
type resourceFlags struct {
	memory, swap, cpu, io, disk, ports uint32
}

func (r *resourceFlags) register(fs *pflag.FlagSet) {
	fs.Uint32Var(&r.memory, "memory", 1024, "memory in MiB")
	fs.Uint32Var(&r.swap, "swap", 0, "swap in MiB")
	fs.Uint32Var(&r.cpu, "cpu", 100, "cpu share in percent")
	fs.Uint32Var(&r.io, "io", 500, "io weight")
	fs.Uint32Var(&r.disk, "disk", 2048, "disk in MiB")
	fs.Uint32Var(&r.ports, "ports", 1, "number of ports to allocate")
}

func (r *resourceFlags) resources() resource.Resources {
	return resource.Resources{Memory: r.memory, Swap: r.swap, CPU: r.cpu, IO: r.io, Disk: r.disk, Ports: r.ports}
}

type specFlags struct {
	image     string
	settings  []string
	env       []string
	permanent bool
	fallback  bool
	fallbackP int32
}

func (s *specFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&s.image, "image", "", "image the server runs")
	fs.StringArrayVar(&s.settings, "setting", nil, "plugin setting key=value (repeatable)")
	fs.StringArrayVar(&s.env, "env", nil, "environment variable key=value (repeatable)")
	fs.BoolVar(&s.permanent, "permanent", false, "keep the disk when the server stops")
	fs.BoolVar(&s.fallback, "fallback", false, "users may fall back to this server")
	fs.Int32Var(&s.fallbackP, "fallback-priority", 0, "fallback priority")
}

func (s *specFlags) specification() (resource.Specification, error) {
	settings, err := parseKeyValues(s.settings)
	if err != nil {
		return resource.Specification{}, err
	}
	env, err := parseKeyValues(s.env)
	if err != nil {
		return resource.Specification{}, err
	}
	spec := resource.Specification{
		Image:         s.image,
		Settings:      settings,
		Environment:   env,
		DiskRetention: resource.RetentionTemporary,
	}
	if s.permanent {
		spec.DiskRetention = resource.RetentionPermanent
	}
	if s.fallback {
		spec.Fallback = &resource.Fallback{Enabled: true, Priority: s.fallbackP}
	}
	return spec, nil
}
