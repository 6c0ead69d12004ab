package dockerprovider

import "time"

// NetworkMode is the only thing a caller can configure about container
// networking; values other than host/bridge are rejected at New.
type NetworkMode string

const (
	NetworkModeHost   NetworkMode = "host"
	NetworkModeBridge NetworkMode = "bridge"
)

// SecurityConfig is the optional hardening applied to every sandbox
// container when the corresponding field is non-empty/non-zero.
type SecurityConfig struct {
	NoNewPrivileges bool
	AppArmorProfile string
	SeccompProfile  string
	CapDrop         []string
	PidsLimit       int64
}

// Config is the Docker provider's daemon/runtime configuration, read from
// environment by internal/config and passed in at construction.
type Config struct {
	Host          string
	TLSCertDir    string
	APITimeout    time.Duration
	NetworkMode   NetworkMode
	ExecdImage    string // platform image the execd archive cache pulls from
	PublicHost    string // host/IP returned in endpoint strings
	Security      SecurityConfig
	PortRangeLow  int
	PortRangeHigh int
	PortAllocTries int
}

// DefaultConfig returns sane defaults for the fields Config doesn't
// require a caller to set explicitly.
func DefaultConfig() Config {
	return Config{
		APITimeout:     180 * time.Second,
		NetworkMode:    NetworkModeBridge,
		PortRangeLow:   40000,
		PortRangeHigh:  60000,
		PortAllocTries: 50,
	}
}
