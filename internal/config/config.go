// Package config parses command-line flags into the settings used to wire
// up ofslicerd.
package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Config holds the settings needed to start the daemon. There is no file
// persistence; every run is configured fresh from its flags.
type Config struct {
	// ListenAddress is the address the REST/metrics HTTP server binds to.
	ListenAddress string

	// Bridge is the name of the OVS bridge this daemon manages. Every
	// dpid the controller sees is assumed to be this same local bridge;
	// the daemon does not yet support fanning a single process out across
	// multiple independently-named bridges.
	Bridge string

	// OFCTLPath is the path to the ovs-ofctl binary, passed through to
	// ovs.Client.
	OFCTLPath string

	// VSCTLPath is the path to the ovs-vsctl binary, passed through to
	// ovs.Client.
	VSCTLPath string

	// OVSDBAddress is the network address of ovsdb-server, e.g.
	// "unix:/var/run/openvswitch/db.sock".
	OVSDBAddress string

	// DefaultIdleTimeout is the idle timeout, in seconds, applied to every
	// learned MAC flow; there is no per-slice or per-request override.
	DefaultIdleTimeout int

	// MetersEnabled turns on per-endpoint ingress bandwidth enforcement.
	MetersEnabled bool

	// NetlinkStatsEnabled turns on the optional vport-counter diagnostics
	// adapter, which requires running on the same host as the
	// datapath's kernel module.
	NetlinkStatsEnabled bool

	// DiscoveryInterval is how often internal/ovsdiscovery polls OVSDB
	// for bridge and interface changes.
	DiscoveryInterval time.Duration

	// LogLevel is a logrus level name (e.g. "info", "debug").
	LogLevel string
}

// Default returns the Config used when no flags are given.
func Default() Config {
	return Config{
		ListenAddress:       ":8080",
		Bridge:              "br0",
		OFCTLPath:           "ovs-ofctl",
		VSCTLPath:           "ovs-vsctl",
		OVSDBAddress:        "unix:/var/run/openvswitch/db.sock",
		DefaultIdleTimeout:  600,
		MetersEnabled:       false,
		NetlinkStatsEnabled: false,
		DiscoveryInterval:   5 * time.Second,
		LogLevel:            "info",
	}
}

// Parse binds Config's fields to fs and parses args into them, starting
// from Default().
func Parse(fs *pflag.FlagSet, args []string) (Config, error) {
	cfg := Default()

	fs.StringVar(&cfg.ListenAddress, "listen-address", cfg.ListenAddress,
		"address the REST API and metrics endpoints bind to")
	fs.StringVar(&cfg.Bridge, "bridge", cfg.Bridge,
		"name of the OVS bridge this daemon manages")
	fs.StringVar(&cfg.OFCTLPath, "ofctl-path", cfg.OFCTLPath,
		"path to the ovs-ofctl binary")
	fs.StringVar(&cfg.VSCTLPath, "vsctl-path", cfg.VSCTLPath,
		"path to the ovs-vsctl binary")
	fs.StringVar(&cfg.OVSDBAddress, "ovsdb-address", cfg.OVSDBAddress,
		"network address of ovsdb-server, e.g. unix:/var/run/openvswitch/db.sock")
	fs.IntVar(&cfg.DefaultIdleTimeout, "default-idle-timeout", cfg.DefaultIdleTimeout,
		"idle timeout in seconds applied to learned MAC flows")
	fs.BoolVar(&cfg.MetersEnabled, "meters-enabled", cfg.MetersEnabled,
		"enforce per-endpoint ingress bandwidth limits with OpenFlow meters")
	fs.BoolVar(&cfg.NetlinkStatsEnabled, "netlink-stats-enabled", cfg.NetlinkStatsEnabled,
		"expose vport counters read over generic netlink in the diagnostics surface")
	fs.DurationVar(&cfg.DiscoveryInterval, "discovery-interval", cfg.DiscoveryInterval,
		"how often to poll OVSDB for bridge and interface changes")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"logrus level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
