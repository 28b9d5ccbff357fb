// Copyright 2017 DigitalOcean.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ovs

import (
	"net"
	"testing"
)

func TestMatchMarshalText(t *testing.T) {
	var tests = []struct {
		desc string
		m    Match
		out  string
	}{
		{
			desc: "InPortMatch numeric",
			m:    InPortMatch(3),
			out:  "in_port=3",
		},
		{
			desc: "InPortMatch reserved",
			m:    InPortMatch(PortLOCAL),
			out:  "in_port=LOCAL",
		},
		{
			desc: "Metadata",
			m:    Metadata(0x2a),
			out:  "metadata=0x2a",
		},
		{
			desc: "DataLinkVLAN",
			m:    DataLinkVLAN(0x1005),
			out:  "vlan_vid=0x1005",
		},
		{
			desc: "DataLinkSource",
			m:    DataLinkSource(net.HardwareAddr{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}),
			out:  "dl_src=de:ad:be:ef:00:01",
		},
		{
			desc: "DataLinkDestination",
			m:    DataLinkDestination(net.HardwareAddr{0xde, 0xad, 0xbe, 0xef, 0x00, 0x02}),
			out:  "dl_dst=de:ad:be:ef:00:02",
		},
		{
			desc: "DataLinkType",
			m:    DataLinkType(0x88cc),
			out:  "dl_type=0x88cc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			out, err := tt.m.MarshalText()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if want, got := tt.out, string(out); want != got {
				t.Fatalf("unexpected text:\n- want: %q\n-  got: %q", want, got)
			}
		})
	}
}

func TestPortString(t *testing.T) {
	var tests = []struct {
		port int
		out  string
	}{
		{port: 1, out: "1"},
		{port: PortLOCAL, out: "LOCAL"},
		{port: PortController, out: "CONTROLLER"},
		{port: PortFlood, out: "FLOOD"},
	}

	for _, tt := range tests {
		if want, got := tt.out, portString(tt.port); want != got {
			t.Fatalf("unexpected portString(%d):\n- want: %q\n-  got: %q", tt.port, want, got)
		}
	}
}
