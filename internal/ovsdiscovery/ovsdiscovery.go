// Package ovsdiscovery polls the Open_vSwitch OVSDB for Bridge and
// Interface rows and turns what it finds into controller.Event values
// (DatapathEnter, DatapathLeave, PortAdded, PortRemoved), standing in for
// the switch-side connection handling that a real OpenFlow controller
// transport would otherwise provide.
package ovsdiscovery

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ovslicer/ovslicer/internal/controller"
	"github.com/ovslicer/ovslicer/ovsdb"
)

// database is the name of the database every OVSDB-speaking switch serves.
const database = "Open_vSwitch"

// A transactor runs OVSDB transactions. Satisfied by *ovsdb.Client; a
// narrower interface than the whole Client so Discoverer is testable
// without a live connection.
type transactor interface {
	Transact(ctx context.Context, db string, ops []ovsdb.TransactOp) ([]ovsdb.Row, error)
}

// A Discoverer polls a single bridge's Bridge and Interface rows and
// dispatches the resulting topology events through Dispatch.
type Discoverer struct {
	client   transactor
	bridge   string
	interval time.Duration
	dispatch func(controller.Event)
	log      *logrus.Logger

	mu      sync.Mutex
	entered bool
	dpid    uint64
	known   map[int]struct{}
}

// New creates a Discoverer for bridge, polling client every interval and
// handing the resulting events to dispatch.
func New(client *ovsdb.Client, bridge string, interval time.Duration, dispatch func(controller.Event), log *logrus.Logger) *Discoverer {
	return newDiscoverer(client, bridge, interval, dispatch, log)
}

func newDiscoverer(client transactor, bridge string, interval time.Duration, dispatch func(controller.Event), log *logrus.Logger) *Discoverer {
	return &Discoverer{
		client:   client,
		bridge:   bridge,
		interval: interval,
		dispatch: dispatch,
		log:      log,
		known:    make(map[int]struct{}),
	}
}

// Run polls until ctx is done. Poll errors are logged and skipped; a
// transient OVSDB hiccup should not tear down topology state derived from
// the last successful poll.
func (d *Discoverer) Run(ctx context.Context) {
	t := time.NewTicker(d.interval)
	defer t.Stop()

	d.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.poll(ctx)
		}
	}
}

func (d *Discoverer) poll(ctx context.Context) {
	dpid, ports, err := d.fetch(ctx)
	if err != nil {
		d.log.WithField("bridge", d.bridge).WithError(err).Warn("ovsdiscovery: poll failed")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.entered {
		d.entered = true
		d.dpid = dpid
		d.known = ports
		d.dispatch(controller.DatapathEnter{DPID: dpid, Ports: portList(ports)})
		return
	}

	if dpid != d.dpid {
		// The bridge was torn down and recreated under a new datapath ID;
		// the old switch's state is gone, so report it leaving before the
		// new one enters.
		d.dispatch(controller.DatapathLeave{DPID: d.dpid})
		d.dpid = dpid
		d.known = ports
		d.dispatch(controller.DatapathEnter{DPID: dpid, Ports: portList(ports)})
		return
	}

	for p := range ports {
		if _, ok := d.known[p]; !ok {
			d.dispatch(controller.PortAdded{DPID: dpid, Port: p})
		}
	}
	for p := range d.known {
		if _, ok := ports[p]; !ok {
			d.dispatch(controller.PortRemoved{DPID: dpid, Port: p})
		}
	}
	d.known = ports
}

// fetch retrieves the bridge's datapath ID and the ofport of every
// interface currently attached to it.
func (d *Discoverer) fetch(ctx context.Context) (uint64, map[int]struct{}, error) {
	bridgeRows, err := d.client.Transact(ctx, database, []ovsdb.TransactOp{
		ovsdb.Select{
			Table: "Bridge",
			Where: []ovsdb.Cond{ovsdb.Equal("name", d.bridge)},
		},
	})
	if err != nil {
		return 0, nil, err
	}
	if len(bridgeRows) == 0 {
		return 0, nil, errBridgeNotFound{bridge: d.bridge}
	}

	raw, _ := ovsString(bridgeRows[0]["datapath_id"])
	dpid, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, nil, err
	}

	ifaceRows, err := d.client.Transact(ctx, database, []ovsdb.TransactOp{
		ovsdb.Select{Table: "Interface"},
	})
	if err != nil {
		return 0, nil, err
	}

	ports := make(map[int]struct{}, len(ifaceRows))
	for _, row := range ifaceRows {
		n, ok := ovsInt(row["ofport"])
		if !ok || n <= 0 {
			// Negative or absent ofport means the interface failed to
			// attach to the datapath; it carries no traffic.
			continue
		}
		ports[n] = struct{}{}
	}

	return dpid, ports, nil
}

func portList(ports map[int]struct{}) []int {
	out := make([]int, 0, len(ports))
	for p := range ports {
		out = append(out, p)
	}
	return out
}

type errBridgeNotFound struct{ bridge string }

func (e errBridgeNotFound) Error() string {
	return "ovsdiscovery: bridge " + e.bridge + " not found"
}
