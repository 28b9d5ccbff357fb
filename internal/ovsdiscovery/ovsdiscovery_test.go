package ovsdiscovery

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ovslicer/ovslicer/internal/controller"
	"github.com/ovslicer/ovslicer/ovsdb"
)

// fakeTransactor answers Transact by table name, ignoring Where clauses
// other than to check the test doesn't need them.
type fakeTransactor struct {
	bridgeRows []ovsdb.Row
	ifaceRows  []ovsdb.Row
}

func (f *fakeTransactor) Transact(_ context.Context, _ string, ops []ovsdb.TransactOp) ([]ovsdb.Row, error) {
	sel := ops[0].(ovsdb.Select)
	switch sel.Table {
	case "Bridge":
		return f.bridgeRows, nil
	case "Interface":
		return f.ifaceRows, nil
	default:
		return nil, nil
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(discard{})
	return log
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestDiscovererFirstPollEmitsDatapathEnter(t *testing.T) {
	fake := &fakeTransactor{
		bridgeRows: []ovsdb.Row{{"datapath_id": "000000000001"}},
		ifaceRows: []ovsdb.Row{
			{"ofport": float64(1)},
			{"ofport": float64(2)},
		},
	}

	var events []controller.Event
	d := newDiscoverer(fake, "br0", time.Hour, func(e controller.Event) {
		events = append(events, e)
	}, testLogger())

	d.poll(context.Background())

	require.Len(t, events, 1)
	enter, ok := events[0].(controller.DatapathEnter)
	require.True(t, ok)
	require.Equal(t, uint64(1), enter.DPID)
	require.ElementsMatch(t, []int{1, 2}, enter.Ports)
}

func TestDiscovererDetectsPortChurn(t *testing.T) {
	fake := &fakeTransactor{
		bridgeRows: []ovsdb.Row{{"datapath_id": "000000000001"}},
		ifaceRows: []ovsdb.Row{
			{"ofport": float64(1)},
			{"ofport": float64(2)},
		},
	}

	var events []controller.Event
	d := newDiscoverer(fake, "br0", time.Hour, func(e controller.Event) {
		events = append(events, e)
	}, testLogger())

	d.poll(context.Background())
	events = nil

	fake.ifaceRows = []ovsdb.Row{
		{"ofport": float64(2)},
		{"ofport": float64(3)},
	}
	d.poll(context.Background())

	require.Len(t, events, 2)

	var added, removed bool
	for _, e := range events {
		switch ev := e.(type) {
		case controller.PortAdded:
			require.Equal(t, 3, ev.Port)
			added = true
		case controller.PortRemoved:
			require.Equal(t, 1, ev.Port)
			removed = true
		}
	}
	require.True(t, added)
	require.True(t, removed)
}

func TestDiscovererIgnoresUnattachedInterfaces(t *testing.T) {
	fake := &fakeTransactor{
		bridgeRows: []ovsdb.Row{{"datapath_id": "000000000001"}},
		ifaceRows: []ovsdb.Row{
			{"ofport": float64(1)},
			{"ofport": float64(-1)},
			{"name": "no-ofport-at-all"},
		},
	}

	var events []controller.Event
	d := newDiscoverer(fake, "br0", time.Hour, func(e controller.Event) {
		events = append(events, e)
	}, testLogger())

	d.poll(context.Background())

	require.Len(t, events, 1)
	enter := events[0].(controller.DatapathEnter)
	require.Equal(t, []int{1}, enter.Ports)
}

func TestDiscovererDatapathRecreateEmitsLeaveThenEnter(t *testing.T) {
	fake := &fakeTransactor{
		bridgeRows: []ovsdb.Row{{"datapath_id": "000000000001"}},
		ifaceRows:  []ovsdb.Row{{"ofport": float64(1)}},
	}

	var events []controller.Event
	d := newDiscoverer(fake, "br0", time.Hour, func(e controller.Event) {
		events = append(events, e)
	}, testLogger())

	d.poll(context.Background())
	events = nil

	fake.bridgeRows = []ovsdb.Row{{"datapath_id": "000000000002"}}
	d.poll(context.Background())

	require.Len(t, events, 2)
	leave, ok := events[0].(controller.DatapathLeave)
	require.True(t, ok)
	require.Equal(t, uint64(1), leave.DPID)

	enter, ok := events[1].(controller.DatapathEnter)
	require.True(t, ok)
	require.Equal(t, uint64(2), enter.DPID)
}
