// Package config holds the tunable constants for this stack (initial RTO,
// retransmission ceiling, ARP cache TTL and throttle interval, MSS,
// advertised-window ceiling) plus a default ByteStream capacity. Layered
// resolution: environment variables override an
// optional YAML file, which overrides the built-in default.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/tinystack-net/tinystack/stackerr"
)

const envPrefix = "TINYSTACK"

// Stack is the set of tunables every constructor in this repo takes
// explicitly, so that two stacks in the same process can run with different
// settings.
type Stack struct {
	// MaxPayloadSize is the largest payload a single outbound segment may
	// carry (the maximum segment size).
	MaxPayloadSize int

	// InitialRTO is the sender's starting retransmission timeout.
	InitialRTO time.Duration

	// MaxRetxAttempts is the number of consecutive non-probe retransmissions
	// tolerated before the sender sets the stream error flag.
	MaxRetxAttempts int

	// MaxWindowSize is the advertised receive window ceiling. tcpreceiver
	// does not take a config.Stack: Receiver.Send caps its window at the
	// fixed value 65535 and does not read this field.
	MaxWindowSize uint16

	// ARPCacheTTL is how long a learned IP->MAC mapping is trusted.
	ARPCacheTTL time.Duration

	// ARPRequestThrottle is the minimum interval between ARP requests for
	// the same unresolved target.
	ARPRequestThrottle time.Duration

	// ByteStreamCapacity is a default ByteStream capacity for callers to use.
	// No constructor in this repository reads it: tcpsender.New and
	// tcpreceiver.New both take a caller-supplied stream.
	ByteStreamCapacity uint64
}

// Default returns the stack's built-in defaults.
func Default() Stack {
	return Stack{
		MaxPayloadSize:     1000,
		InitialRTO:         1000 * time.Millisecond,
		MaxRetxAttempts:    8,
		MaxWindowSize:      65535,
		ARPCacheTTL:        30000 * time.Millisecond,
		ARPRequestThrottle: 5000 * time.Millisecond,
		ByteStreamCapacity: 64000,
	}
}

// Load starts from Default and overlays a YAML file (if configPath is
// non-empty and exists) and then TINYSTACK_-prefixed environment variables,
// in that precedence order -- lowest to highest.
func Load(configPath string) (Stack, error) {
	s := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("max_payload_size", s.MaxPayloadSize)
	v.SetDefault("initial_rto_ms", s.InitialRTO.Milliseconds())
	v.SetDefault("max_retx_attempts", s.MaxRetxAttempts)
	v.SetDefault("max_window_size", int(s.MaxWindowSize))
	v.SetDefault("arp_cache_ttl_ms", s.ARPCacheTTL.Milliseconds())
	v.SetDefault("arp_request_throttle_ms", s.ARPRequestThrottle.Milliseconds())
	v.SetDefault("byte_stream_capacity", s.ByteStreamCapacity)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return Stack{}, stackerr.Wrapf(err, "failed to read config file %s", configPath)
			}
		}
	}

	s.MaxPayloadSize = v.GetInt("max_payload_size")
	s.InitialRTO = time.Duration(v.GetInt64("initial_rto_ms")) * time.Millisecond
	s.MaxRetxAttempts = v.GetInt("max_retx_attempts")
	s.MaxWindowSize = uint16(v.GetInt("max_window_size"))
	s.ARPCacheTTL = time.Duration(v.GetInt64("arp_cache_ttl_ms")) * time.Millisecond
	s.ARPRequestThrottle = time.Duration(v.GetInt64("arp_request_throttle_ms")) * time.Millisecond
	s.ByteStreamCapacity = v.GetUint64("byte_stream_capacity")

	return s, nil
}
