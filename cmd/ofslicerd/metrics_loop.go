package main

import (
	"context"
	"strconv"
	"time"

	"github.com/ovslicer/ovslicer/internal/controller"
	"github.com/ovslicer/ovslicer/internal/engine"
	"github.com/ovslicer/ovslicer/internal/metrics"
	"github.com/ovslicer/ovslicer/ovs"
)

// shutdownGrace bounds how long the HTTP server waits for in-flight
// requests to finish once a shutdown signal arrives.
const shutdownGrace = 5 * time.Second

// metricsSampleInterval is how often reportSliceMetrics snapshots every
// known switch's slice/group counts and per-slice traffic counters into m.
// Each pass costs one ovs-ofctl dump-aggregate call per slice, so this is
// deliberately coarser than the controller's own revalidation cadence.
const metricsSampleInterval = 15 * time.Second

// reportSliceMetrics periodically snapshots every known switch's slice
// state and per-slice traffic counters into m, until ctx is cancelled.
// Revalidation counts and durations are recorded inline via
// controller.Controller.OnEvent instead, since those are discrete events
// this poll loop would otherwise have to reconstruct.
func reportSliceMetrics(ctx context.Context, ctrl *controller.Controller, client *ovs.Client, bridge string, m *metrics.Metrics) {
	t := time.NewTicker(metricsSampleInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, dpid := range ctrl.Known() {
				dpidLabel := strconv.FormatUint(dpid, 10)

				slices := ctrl.Query(dpid, func(ss *engine.SwitchState) interface{} {
					return ss.Slices()
				}).([]*engine.Slice)
				m.ObserveSlices(dpidLabel, slices)

				for _, s := range slices {
					if s.Empty() {
						continue
					}
					stats, err := client.OpenFlow.AggregateStats(bridge, engine.SliceCookie(s.ID), ovs.CookieMaskAll)
					if err != nil {
						continue
					}
					m.ObserveSliceTraffic(dpidLabel, s.ID, stats)
				}
			}
		}
	}
}
