package ovs

import "testing"

func TestFlowMarshalText(t *testing.T) {
	var tests = []struct {
		desc string
		f    *Flow
		out  string
		err  error
	}{
		{
			desc: "no actions",
			f: &Flow{
				Table: 0,
			},
			err: errNoActions,
		},
		{
			desc: "drop with other actions",
			f: &Flow{
				Table:   0,
				Actions: []Action{Drop(), Output(1)},
			},
			err: errActionsWithDrop,
		},
		{
			desc: "simple drop",
			f: &Flow{
				Cookie:   1,
				Table:    0,
				Priority: 100,
				Actions:  []Action{Drop()},
			},
			out: "cookie=0x0000000000000001,table=0,priority=100,idle_timeout=0,actions=drop",
		},
		{
			desc: "with matches, in_port, meter, and flow removed",
			f: &Flow{
				Table:           1,
				Priority:        200,
				InPort:          3,
				Matches:         []Match{DataLinkVLAN(0x1005)},
				Meter:           2,
				IdleTimeout:     30,
				SendFlowRemoved: true,
				Actions:         []Action{PopVLAN(), Output(PortLOCAL)},
			},
			out: "cookie=0x0000000000000000,table=1,priority=200,in_port=3,vlan_vid=0x1005,meter=2,idle_timeout=30,flags=send_flow_rem,actions=pop_vlan,output:LOCAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			out, err := tt.f.MarshalText()
			if tt.err != nil {
				ferr, ok := err.(*FlowError)
				if !ok || ferr.Err != tt.err {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if want, got := tt.out, string(out); want != got {
				t.Fatalf("unexpected text:\n- want: %q\n-  got: %q", want, got)
			}
		})
	}
}

func TestFlowMatchSpec(t *testing.T) {
	var tests = []struct {
		desc string
		f    *Flow
		out  string
	}{
		{
			desc: "table only",
			f:    &Flow{Table: 2},
			out:  "table=2",
		},
		{
			desc: "with cookie mask",
			f: &Flow{
				Table:      2,
				Priority:   50,
				Cookie:     0x2a,
				CookieMask: CookieMaskAll,
			},
			out: "table=2,priority=50,cookie=0x000000000000002a/0xffffffffffffffff",
		},
		{
			desc: "with in_port and match",
			f: &Flow{
				Table:   3,
				InPort:  5,
				Matches: []Match{Metadata(1)},
			},
			out: "table=3,in_port=5,metadata=0x1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			out, err := tt.f.matchSpec()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if want, got := tt.out, string(out); want != got {
				t.Fatalf("unexpected text:\n- want: %q\n-  got: %q", want, got)
			}
		})
	}
}
