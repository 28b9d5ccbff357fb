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

// Package ovs wraps the ovs-vsctl/ovs-ofctl command-line tools; the
// internal/flowintent Adapter turns flowintent values into calls on it.
// Unlike the upstream
// go-openvswitch library, this fork's Match/Action vocabulary is trimmed to
// exactly what a VLAN-tag-based L2 slicer pipeline needs: no L3/L4/ARP/ICMP
// matches, since the slicer never inspects past the Ethernet header.
package ovs

import (
	"fmt"
	"net"
)

// Match keys recognized by parseMatch/matchparser.go.
const (
	inPort   = "in_port"
	metadata = "metadata"
	dlVLAN   = "vlan_vid"
	dlSRC    = "dl_src"
	dlDST    = "dl_dst"
	dlType   = "dl_type"
)

// A Match is a single OVS flow match, which can be marshaled to its textual
// form for use with ovs-ofctl.
type Match interface {
	MarshalText() (text []byte, err error)
	GoString() string
}

// Reserved OpenFlow port names, as recognized by ovs-ofctl.
const (
	PortLOCAL      = -1
	PortIN_PORT    = -2
	PortController = -3
	PortAll        = -4
	PortFlood      = -5
	PortNone       = -6
)

var reservedPortNames = map[int]string{
	PortLOCAL:      "LOCAL",
	PortIN_PORT:    "IN_PORT",
	PortController: "CONTROLLER",
	PortAll:        "ALL",
	PortFlood:      "FLOOD",
	PortNone:       "NONE",
}

// portString renders a port number using its reserved name when one exists.
func portString(port int) string {
	if name, ok := reservedPortNames[port]; ok {
		return name
	}
	return fmt.Sprintf("%d", port)
}

// InPortMatch matches the ingress port of a packet.
type InPortMatch int

// MarshalText implements Match.
func (m InPortMatch) MarshalText() ([]byte, error) {
	return bprintf("in_port=%s", portString(int(m))), nil
}

// GoString implements Match.
func (m InPortMatch) GoString() string {
	return fmt.Sprintf("ovs.InPortMatch(%d)", int(m))
}

// Metadata matches the 64-bit OpenFlow metadata register, used by this
// slicer to carry the source endpoint's group ID between tables.
type Metadata uint64

// MarshalText implements Match.
func (m Metadata) MarshalText() ([]byte, error) {
	return bprintf("metadata=0x%x", uint64(m)), nil
}

// GoString implements Match.
func (m Metadata) GoString() string {
	return fmt.Sprintf("ovs.Metadata(0x%x)", uint64(m))
}

// DataLinkVLAN matches a VLAN ID. Values are expected to carry the 0x1000
// "tagged" bit as produced by endpoint.IngressMatch; a bare value without
// that bit matches untagged traffic only when used with a mask of 0x1fff.
type DataLinkVLAN int

// MarshalText implements Match.
func (m DataLinkVLAN) MarshalText() ([]byte, error) {
	return bprintf("vlan_vid=0x%04x", int(m)), nil
}

// GoString implements Match.
func (m DataLinkVLAN) GoString() string {
	return fmt.Sprintf("ovs.DataLinkVLAN(0x%04x)", int(m))
}

// DataLinkSource matches the Ethernet source address of a packet.
type DataLinkSource net.HardwareAddr

// MarshalText implements Match.
func (m DataLinkSource) MarshalText() ([]byte, error) {
	return bprintf("dl_src=%s", net.HardwareAddr(m).String()), nil
}

// GoString implements Match.
func (m DataLinkSource) GoString() string {
	return fmt.Sprintf("ovs.DataLinkSource(%s)", hwAddrGoString(net.HardwareAddr(m)))
}

// DataLinkDestination matches the Ethernet destination address of a packet.
type DataLinkDestination net.HardwareAddr

// MarshalText implements Match.
func (m DataLinkDestination) MarshalText() ([]byte, error) {
	return bprintf("dl_dst=%s", net.HardwareAddr(m).String()), nil
}

// GoString implements Match.
func (m DataLinkDestination) GoString() string {
	return fmt.Sprintf("ovs.DataLinkDestination(%s)", hwAddrGoString(net.HardwareAddr(m)))
}

// DataLinkType matches the EtherType of a packet, e.g. 0x88cc for LLDP.
type DataLinkType uint16

// MarshalText implements Match.
func (m DataLinkType) MarshalText() ([]byte, error) {
	return bprintf("dl_type=0x%04x", uint16(m)), nil
}

// GoString implements Match.
func (m DataLinkType) GoString() string {
	return fmt.Sprintf("ovs.DataLinkType(0x%04x)", uint16(m))
}
