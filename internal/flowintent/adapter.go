package flowintent

import (
	"fmt"

	"github.com/ovslicer/ovslicer/ovs"
)

// An Adapter applies Intents to a real switch through an ovs.Client,
// serving as the thin translation layer between the engine's typed mutation
// stream and ovs-vsctl/ovs-ofctl shell invocations.
type Adapter struct {
	Client *ovs.Client
}

// NewAdapter wraps client in an Adapter.
func NewAdapter(client *ovs.Client) *Adapter {
	return &Adapter{Client: client}
}

// Apply serialises and issues a single Intent. Intents are applied in the
// order given; callers issuing an ordered stream (deletes before adds, per
// the revalidation contract) must call Apply once per Intent in that order.
func (a *Adapter) Apply(intent Intent) error {
	switch v := intent.(type) {
	case InstallFlow:
		return a.Client.OpenFlow.AddFlow(v.Bridge, v.Flow)
	case DeleteFlow:
		return a.Client.OpenFlow.DelFlows(v.Bridge, v.Flow)
	case InstallGroup:
		return a.Client.OpenFlow.Group.AddGroup(v.Bridge, v.Group)
	case ModifyGroup:
		return a.Client.OpenFlow.Group.ModGroup(v.Bridge, v.Group)
	case DeleteGroup:
		return a.Client.OpenFlow.Group.DelGroups(v.Bridge, v.ID)
	case InstallMeter:
		return a.Client.OpenFlow.Meter.AddMeter(v.Bridge, v.Meter)
	case DeleteMeter:
		return a.Client.OpenFlow.Meter.DelMeters(v.Bridge, v.ID)
	case PacketOut:
		return a.Client.OpenFlow.PacketOut(v.Bridge, v.InPort, v.Packet, v.Actions)
	default:
		return fmt.Errorf("flowintent: unrecognized intent %T", intent)
	}
}

// ApplyAll applies a stream of Intents in order, stopping and returning the
// first error encountered. A transport error partway through leaves the
// remaining intents unapplied; per the revalidation design, the caller is
// expected to retry the whole pass on reattach rather than resume mid-list.
func (a *Adapter) ApplyAll(intents []Intent) error {
	for _, intent := range intents {
		if err := a.Apply(intent); err != nil {
			return fmt.Errorf("flowintent: apply %T on %s: %w", intent, intent.bridge(), err)
		}
	}
	return nil
}
