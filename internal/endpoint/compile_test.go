package endpoint

import (
	"net"
	"reflect"
	"testing"

	"github.com/ovslicer/ovslicer/ovs"
)

func TestIngressMatch(t *testing.T) {
	mac := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	var tests = []struct {
		desc     string
		e        Endpoint
		mac      net.HardwareAddr
		table    uint8
		priority int
		matches  []ovs.Match
	}{
		{
			desc:     "bare port unqualified",
			e:        New1(1),
			table:    TableIngressUntagged,
			priority: PriorityIngress,
			matches:  []ovs.Match{ovs.InPortMatch(1)},
		},
		{
			desc:     "bare port MAC qualified",
			e:        New1(1),
			mac:      mac,
			table:    TableIngressUntagged,
			priority: PriorityMACQualified,
			matches:  []ovs.Match{ovs.InPortMatch(1), ovs.DataLinkSource(mac)},
		},
		{
			desc:     "tagged endpoint",
			e:        New2(1, 100),
			table:    TableIngressTagged,
			priority: PriorityIngress,
			matches:  []ovs.Match{ovs.InPortMatch(1), ovs.Metadata(100)},
		},
		{
			desc:     "double-tagged endpoint",
			e:        New3(1, 100, 200),
			table:    TableIngressTagged,
			priority: PriorityIngress,
			matches: []ovs.Match{
				ovs.InPortMatch(1),
				ovs.Metadata(100),
				ovs.DataLinkVLAN(taggedBit | 200),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			table, priority, matches := IngressMatch(tt.e, tt.mac)

			if want, got := tt.table, table; want != got {
				t.Fatalf("unexpected table:\n- want: %d\n-  got: %d", want, got)
			}
			if want, got := tt.priority, priority; want != got {
				t.Fatalf("unexpected priority:\n- want: %d\n-  got: %d", want, got)
			}
			if want, got := tt.matches, matches; !reflect.DeepEqual(want, got) {
				t.Fatalf("unexpected matches:\n- want: %#v\n-  got: %#v", want, got)
			}
		})
	}
}

func TestEgressAction(t *testing.T) {
	var tests = []struct {
		desc     string
		e        Endpoint
		fromPort int
		actions  []ovs.Action
	}{
		{
			desc:     "bare port, different source",
			e:        New1(2),
			fromPort: 1,
			actions:  []ovs.Action{ovs.Output(2)},
		},
		{
			desc:     "bare port, IN_PORT substitution",
			e:        New1(1),
			fromPort: 1,
			actions:  []ovs.Action{ovs.Output(ovs.PortIN_PORT)},
		},
		{
			desc:     "tagged endpoint",
			e:        New2(2, 100),
			fromPort: 1,
			actions: []ovs.Action{
				ovs.PushVLAN(cTagEtherType),
				ovs.SetField("0x1064", "vlan_vid"),
				ovs.Output(2),
			},
		},
		{
			desc:     "double-tagged endpoint",
			e:        New3(2, 100, 200),
			fromPort: 1,
			actions: []ovs.Action{
				ovs.PushVLAN(cTagEtherType),
				ovs.SetField("0x10c8", "vlan_vid"),
				ovs.PushVLAN(sTagEtherType),
				ovs.SetField("0x1064", "vlan_vid"),
				ovs.Output(2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			actions := EgressAction(tt.e, tt.fromPort)

			if want, got := tt.actions, actions; !reflect.DeepEqual(want, got) {
				t.Fatalf("unexpected actions:\n- want: %#v\n-  got: %#v", want, got)
			}
		})
	}
}
