package endpoint

import (
	"fmt"
	"net"

	"github.com/ovslicer/ovslicer/ovs"
)

// OpenFlow table numbers of the three-table pipeline.
const (
	TableIngressUntagged uint8 = 0
	TableIngressTagged   uint8 = 1
	TableForwarding      uint8 = 2
)

// Priority levels used across the pipeline.
const (
	PriorityLLDPDrop       = 6
	PriorityMACQualified   = 5
	PriorityIngress        = 4 // endpoint ingress / E-Line / first-tag-pop
	PriorityLearnedUnicast = 2
	PriorityFlood          = 1
)

// taggedBit marks a vlan_vid match/set value as carrying a tag, per the
// OpenFlow 1.3 OXM_OF_VLAN_VID convention (bit 0x1000 means "tagged").
const taggedBit = 0x1000

// cTagEtherType and sTagEtherType are the 802.1Q and 802.1ad TPIDs pushed
// by EgressAction for 2- and 3-tuple endpoints.
const (
	cTagEtherType = 0x8100
	sTagEtherType = 0x88a8
)

// IngressMatch computes the table, priority, and match fields used to
// recognize traffic entering the switch on e. mac, if non-nil, qualifies
// the match to a specific source address (priority 5, used by learning
// rules); a nil mac produces the endpoint's unqualified default rule
// (priority 4).
func IngressMatch(e Endpoint, mac net.HardwareAddr) (table uint8, priority int, matches []ovs.Match) {
	priority = PriorityIngress
	if mac != nil {
		priority = PriorityMACQualified
	}

	switch e.Arity {
	case 1:
		matches = []ovs.Match{ovs.InPortMatch(e.Port)}
		table = TableIngressUntagged
	case 2:
		matches = []ovs.Match{
			ovs.InPortMatch(e.Port),
			ovs.Metadata(uint64(e.VLAN)),
		}
		table = TableIngressTagged
	case 3:
		matches = []ovs.Match{
			ovs.InPortMatch(e.Port),
			ovs.Metadata(uint64(e.VLAN)),
			ovs.DataLinkVLAN(taggedBit | e.Inner),
		}
		table = TableIngressTagged
	}

	if mac != nil {
		matches = append(matches, ovs.DataLinkSource(mac))
	}

	return table, priority, matches
}

// EgressAction computes the action list needed to forward a packet to e,
// given the port the packet actually arrived on. The output port is e.Port
// unless that equals fromPort, in which case the reserved IN_PORT value is
// substituted, since OpenFlow silently drops an output-to-ingress-port
// bucket otherwise.
func EgressAction(e Endpoint, fromPort int) []ovs.Action {
	out := outputPort(e.Port, fromPort)

	switch e.Arity {
	case 1:
		return []ovs.Action{ovs.Output(out)}
	case 2:
		return []ovs.Action{
			ovs.PushVLAN(cTagEtherType),
			ovs.SetField(fmt.Sprintf("0x%04x", taggedBit|e.VLAN), "vlan_vid"),
			ovs.Output(out),
		}
	case 3:
		return []ovs.Action{
			ovs.PushVLAN(cTagEtherType),
			ovs.SetField(fmt.Sprintf("0x%04x", taggedBit|e.Inner), "vlan_vid"),
			ovs.PushVLAN(sTagEtherType),
			ovs.SetField(fmt.Sprintf("0x%04x", taggedBit|e.VLAN), "vlan_vid"),
			ovs.Output(out),
		}
	default:
		return nil
	}
}

// outputPort substitutes the IN_PORT reserved value when port equals the
// packet's ingress port.
func outputPort(port, fromPort int) int {
	if port == fromPort {
		return ovs.PortIN_PORT
	}
	return port
}
