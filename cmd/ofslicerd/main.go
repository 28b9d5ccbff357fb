// Command ofslicerd is the slicer reconciliation daemon: it keeps an
// OpenFlow 1.3 switch's flow, group, and meter tables in sync with a
// declarative set of slices, accepting configuration over REST and
// discovering switch topology by polling OVSDB.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ovslicer/ovslicer/internal/config"
	"github.com/ovslicer/ovslicer/internal/controller"
	"github.com/ovslicer/ovslicer/internal/engine"
	"github.com/ovslicer/ovslicer/internal/flowintent"
	"github.com/ovslicer/ovslicer/internal/metrics"
	"github.com/ovslicer/ovslicer/internal/netlinkstats"
	"github.com/ovslicer/ovslicer/internal/ovsdiscovery"
	"github.com/ovslicer/ovslicer/internal/restapi"
	"github.com/ovslicer/ovslicer/ovs"
	"github.com/ovslicer/ovslicer/ovsdb"
	"github.com/ovslicer/ovslicer/ovsnl"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("ofslicerd", pflag.ContinueOnError)
	cfg, err := config.Parse(fs, args)
	if err != nil {
		return err
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ovsClient := ovs.New(
		ovs.OFCTLPath(cfg.OFCTLPath),
		ovs.VSCTLPath(cfg.VSCTLPath),
		ovs.Protocols([]string{ovs.ProtocolOpenFlow13}),
	)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	adapter := flowintent.NewAdapter(ovsClient)
	engineCfg := engine.Config{
		Bridge:        cfg.Bridge,
		IdleTimeout:   cfg.DefaultIdleTimeout,
		MetersEnabled: cfg.MetersEnabled,
	}
	ctrl := controller.New(adapter, engineCfg, log)
	ctrl.OnEvent(func(dpid uint64, d time.Duration, err error) {
		m.ObserveRevalidation(strconv.FormatUint(dpid, 10), d, err)
	})

	dbConn, err := ovsdb.Dial(splitNetworkAddr(cfg.OVSDBAddress))
	if err != nil {
		return fmt.Errorf("connecting to ovsdb at %s: %w", cfg.OVSDBAddress, err)
	}
	defer dbConn.Close()

	discoverer := ovsdiscovery.New(dbConn, cfg.Bridge, cfg.DiscoveryInterval, ctrl.Dispatch, log)
	go discoverer.Run(ctx)

	var vports *netlinkstats.Collector
	if cfg.NetlinkStatsEnabled {
		nlClient, err := ovsnl.New()
		if err != nil {
			log.WithError(err).Warn("netlink stats disabled: failed to open generic netlink")
		} else if c, err := netlinkstats.New(nlClient, 0); err != nil {
			log.WithError(err).Warn("netlink stats disabled")
		} else {
			vports = c
		}
	}

	go reportSliceMetrics(ctx, ctrl, ovsClient, cfg.Bridge, m)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.Handle(apiPathPrefix, restapi.NewRouter(ctrl, ovsClient, cfg.Bridge, vports, log))

	server := &http.Server{Addr: cfg.ListenAddress, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("address", cfg.ListenAddress).Info("ofslicerd listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// apiPathPrefix is mounted as a catch-all since restapi.NewRouter builds
// its own gorilla/mux router with the full, versioned path already baked
// into each route.
const apiPathPrefix = "/"

// splitNetworkAddr turns a "network:address" string such as
// "unix:/var/run/openvswitch/db.sock" or "tcp:127.0.0.1:6640" into the
// (network, address) pair net.Dial expects.
func splitNetworkAddr(s string) (string, string) {
	network, addr, found := strings.Cut(s, ":")
	if !found {
		return "unix", s
	}
	return network, addr
}
