// Package netlinkstats exposes per-vport packet counters straight from the
// in-kernel Open vSwitch datapath, for the diagnostics surface. It is
// strictly optional: a host without the ovs_vport generic netlink family
// (non-Linux, or a kernel module that hasn't registered it) simply runs
// without this adapter.
package netlinkstats

import (
	"errors"

	"github.com/ovslicer/ovslicer/ovsnl"
)

// ErrUnavailable is returned by New when the local generic netlink
// connection has no ovs_vport family to query.
var ErrUnavailable = errors.New("netlinkstats: ovs_vport generic netlink family not available")

// PortStats is a snapshot of one vport's counters.
type PortStats struct {
	Name      string
	RxPackets uint64
	TxPackets uint64
	RxBytes   uint64
	TxBytes   uint64
	RxErrors  uint64
	TxErrors  uint64
	RxDropped uint64
	TxDropped uint64
}

// lister is satisfied by *ovsnl.Client's Vport field; narrowed so Collector
// is testable without a live netlink socket.
type lister interface {
	List(dpID int) ([]ovsnl.Vport, error)
}

// A Collector reads vport counters for a single kernel datapath.
type Collector struct {
	lister lister
	dpID   int
}

// New builds a Collector for the datapath numbered dpID, reading through
// client's Vport service. It returns ErrUnavailable if client didn't find
// the ovs_vport family at connect time.
func New(client *ovsnl.Client, dpID int) (*Collector, error) {
	if client.Vport == nil {
		return nil, ErrUnavailable
	}
	return newCollector(client.Vport, dpID), nil
}

func newCollector(l lister, dpID int) *Collector {
	return &Collector{lister: l, dpID: dpID}
}

// Snapshot lists every vport currently attached to the datapath along with
// its counters.
func (c *Collector) Snapshot() ([]PortStats, error) {
	vports, err := c.lister.List(c.dpID)
	if err != nil {
		return nil, err
	}

	out := make([]PortStats, 0, len(vports))
	for _, v := range vports {
		out = append(out, PortStats{
			Name:      v.Spec.Name(),
			RxPackets: v.Stats.RxPackets,
			TxPackets: v.Stats.TxPackets,
			RxBytes:   v.Stats.RxBytes,
			TxBytes:   v.Stats.TxBytes,
			RxErrors:  v.Stats.RxErrors,
			TxErrors:  v.Stats.TxErrors,
			RxDropped: v.Stats.RxDropped,
			TxDropped: v.Stats.TxDropped,
		})
	}
	return out, nil
}
