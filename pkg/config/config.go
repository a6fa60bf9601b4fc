// Package config loads the responder configuration with viper.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"starEcho/layers"
	"starEcho/neigh"
	"starEcho/pkg/log"
	"starEcho/responder"
)

const envPrefix = "STARECHO"

// Device types.
const (
	DeviceTap  = "tap"
	DeviceRaw  = "raw"
	DevicePcap = "pcap"
)

type Config struct {
	Identity  IdentityConfig  `mapstructure:"identity" yaml:"identity"`
	Device    DeviceConfig    `mapstructure:"device" yaml:"device"`
	Buffer    BufferConfig    `mapstructure:"buffer" yaml:"buffer"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Responder ResponderConfig `mapstructure:"responder" yaml:"responder"`
	Drain     DrainConfig     `mapstructure:"drain" yaml:"drain"`
	Idle      IdleConfig      `mapstructure:"idle" yaml:"idle"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Log       log.Config      `mapstructure:"log" yaml:"log"`
}

type IdentityConfig struct {
	MAC string `mapstructure:"mac" yaml:"mac"`
	IP  string `mapstructure:"ip" yaml:"ip"`
}

type DeviceConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // tap | raw | pcap
	Name string `mapstructure:"name" yaml:"name"`
	// HostCIDR is assigned to the host side of a TAP link, e.g. 192.168.1.1/24.
	HostCIDR  string `mapstructure:"host_cidr" yaml:"host_cidr"`
	PcapIn    string `mapstructure:"pcap_in" yaml:"pcap_in"`
	PcapOut   string `mapstructure:"pcap_out" yaml:"pcap_out"`
	MaxFrames int    `mapstructure:"max_frames" yaml:"max_frames"`
}

type BufferConfig struct {
	Size int `mapstructure:"size" yaml:"size"`
}

type CacheConfig struct {
	Capacity  int    `mapstructure:"capacity" yaml:"capacity"`
	Policy    string `mapstructure:"policy" yaml:"policy"` // reject | evict-oldest
	BPFMirror bool   `mapstructure:"bpf_mirror" yaml:"bpf_mirror"`
	// BPFPinPath pins the mirror map in bpffs when not empty.
	BPFPinPath string `mapstructure:"bpf_pin_path" yaml:"bpf_pin_path"`
}

type ResponderConfig struct {
	UDPChecksum       string `mapstructure:"udp_checksum" yaml:"udp_checksum"` // zero | recompute
	StrictDestination bool   `mapstructure:"strict_destination" yaml:"strict_destination"`
}

type DrainConfig struct {
	MaxReceiveErrors int           `mapstructure:"max_receive_errors" yaml:"max_receive_errors"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type IdleConfig struct {
	ReportInterval time.Duration `mapstructure:"report_interval" yaml:"report_interval"`
}

type MetricsConfig struct {
	// Listen is the address of the metrics and pprof server, empty disables it.
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// Load reads path, if not empty, then applies STARECHO_* environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	// identity.ip -> STARECHO_IDENTITY_IP
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return cfg, nil
}

// Default returns the built-in defaults. Unlike Load it ignores the
// environment.
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("identity.mac", "20:18:03:01:00:00")
	v.SetDefault("identity.ip", "192.168.1.33")

	v.SetDefault("device.type", DeviceTap)
	v.SetDefault("device.name", "tap0")
	v.SetDefault("device.host_cidr", "")
	v.SetDefault("device.pcap_in", "")
	v.SetDefault("device.pcap_out", "")
	v.SetDefault("device.max_frames", 4096)

	v.SetDefault("buffer.size", 1514)

	v.SetDefault("cache.capacity", neigh.DefaultCapacity)
	v.SetDefault("cache.policy", neigh.PolicyReject.String())
	v.SetDefault("cache.bpf_mirror", false)
	v.SetDefault("cache.bpf_pin_path", "")

	v.SetDefault("responder.udp_checksum", responder.UDPChecksumZero.String())
	v.SetDefault("responder.strict_destination", false)

	v.SetDefault("drain.max_receive_errors", 16)
	v.SetDefault("drain.poll_interval", "100ms")

	v.SetDefault("idle.report_interval", "1s")

	v.SetDefault("metrics.listen", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "/var/log/starecho/starecho.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)
}

// Validate checks every field that has a restricted form.
func (c *Config) Validate() error {
	if _, err := c.ResponderIdentity(); err != nil {
		return err
	}

	switch c.Device.Type {
	case DeviceTap, DeviceRaw:
		if c.Device.Name == "" {
			return errors.Errorf("device.name is required for %s", c.Device.Type)
		}
	case DevicePcap:
	default:
		return errors.Errorf("invalid device.type: %s", c.Device.Type)
	}
	if c.Device.MaxFrames <= 0 {
		return errors.Errorf("device.max_frames must be positive: %d", c.Device.MaxFrames)
	}

	if c.Buffer.Size < layers.LengthEthernet+layers.LengthARPIPv4 {
		return errors.Errorf("buffer.size too small: %d", c.Buffer.Size)
	}

	if c.Cache.Capacity <= 0 {
		return errors.Errorf("cache.capacity must be positive: %d", c.Cache.Capacity)
	}
	if _, err := neigh.ParsePolicy(c.Cache.Policy); err != nil {
		return err
	}
	if _, err := responder.ParseUDPChecksum(c.Responder.UDPChecksum); err != nil {
		return err
	}

	if c.Drain.MaxReceiveErrors <= 0 {
		return errors.Errorf("drain.max_receive_errors must be positive: %d", c.Drain.MaxReceiveErrors)
	}
	if c.Drain.PollInterval <= 0 {
		return errors.Errorf("drain.poll_interval must be positive: %v", c.Drain.PollInterval)
	}

	return c.Log.Validate()
}

// ResponderIdentity parses the identity section.
func (c *Config) ResponderIdentity() (responder.Identity, error) {
	var id responder.Identity
	mac, err := layers.ParseMAC(c.Identity.MAC)
	if err != nil {
		return id, errors.Wrapf(err, "invalid identity.mac %q", c.Identity.MAC)
	}
	if mac.IsBroadcast() {
		return id, errors.New("identity.mac must not be broadcast")
	}
	ip, err := layers.ParseIPv4Addr(c.Identity.IP)
	if err != nil {
		return id, errors.Wrapf(err, "invalid identity.ip %q", c.Identity.IP)
	}
	if ip.IsUnspecified() {
		return id, errors.New("identity.ip must not be 0.0.0.0")
	}
	return responder.Identity{MAC: mac, IP: ip}, nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal config failed")
	}
	return b, nil
}
