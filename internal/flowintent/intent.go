// Package flowintent defines a typed, pre-serialization description of the
// OpenFlow mutations the reconciliation engine emits, and a thin adapter
// that serialises them through the ovs package. Expressing mutations as
// values instead of imperatively calling ovs.Client makes revalidation
// testable without a live switch: assert on the emitted Intent slice, not
// on shell-outs.
package flowintent

import "github.com/ovslicer/ovslicer/ovs"

// An Intent is a single OpenFlow mutation or injection destined for one
// bridge.
type Intent interface {
	bridge() string
}

// InstallFlow adds or replaces Flow on Bridge.
type InstallFlow struct {
	Bridge string
	Flow   *ovs.Flow
}

func (i InstallFlow) bridge() string { return i.Bridge }

// DeleteFlow removes flows on Bridge matching Flow's match criteria. A nil
// Flow deletes every flow on the bridge.
type DeleteFlow struct {
	Bridge string
	Flow   *ovs.Flow
}

func (i DeleteFlow) bridge() string { return i.Bridge }

// InstallGroup adds or replaces Group on Bridge.
type InstallGroup struct {
	Bridge string
	Group  *ovs.Group
}

func (i InstallGroup) bridge() string { return i.Bridge }

// ModifyGroup replaces the buckets of an existing group on Bridge. Used
// instead of InstallGroup once a group has already been created for an
// endpoint.
type ModifyGroup struct {
	Bridge string
	Group  *ovs.Group
}

func (i ModifyGroup) bridge() string { return i.Bridge }

// DeleteGroup removes the group identified by ID from Bridge.
type DeleteGroup struct {
	Bridge string
	ID     uint32
}

func (i DeleteGroup) bridge() string { return i.Bridge }

// InstallMeter adds Meter on Bridge.
type InstallMeter struct {
	Bridge string
	Meter  *ovs.Meter
}

func (i InstallMeter) bridge() string { return i.Bridge }

// DeleteMeter removes the meter identified by ID from Bridge.
type DeleteMeter struct {
	Bridge string
	ID     uint32
}

func (i DeleteMeter) bridge() string { return i.Bridge }

// PacketOut injects Packet into Bridge as if it had arrived on InPort,
// applying Actions.
type PacketOut struct {
	Bridge  string
	InPort  int
	Packet  []byte
	Actions []ovs.Action
}

func (i PacketOut) bridge() string { return i.Bridge }
