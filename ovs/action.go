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

import "fmt"

// Action string constants recognized by parseAction/actionparser.go.
const (
	actionDrop = "drop"
)

// An Action is a single OVS flow action, which can be marshaled to its
// textual form for use with ovs-ofctl.
type Action interface {
	MarshalText() (text []byte, err error)
	GoString() string
}

// dropAction is a sentinel Action with no textual arguments.
type dropAction struct{}

// Drop drops a packet without forwarding it.
func Drop() Action { return dropAction{} }

func (dropAction) MarshalText() ([]byte, error) { return []byte(actionDrop), nil }
func (dropAction) GoString() string             { return "ovs.Drop()" }

// outputAction outputs a packet to a specific port.
type outputAction struct {
	port int
}

// Output outputs a packet to the specified port number. The caller is
// responsible for substituting the reserved IN_PORT value when the target
// port equals the packet's ingress port, per OpenFlow semantics.
func Output(port int) Action { return outputAction{port: port} }

func (a outputAction) MarshalText() ([]byte, error) {
	return bprintf("output:%s", portString(a.port)), nil
}

func (a outputAction) GoString() string {
	return fmt.Sprintf("ovs.Output(%d)", a.port)
}

// groupAction outputs a packet to a group's bucket fan-out.
type groupAction struct {
	group uint32
}

// Group sends a packet to the named OpenFlow group.
func Group(group uint32) Action { return groupAction{group: group} }

func (a groupAction) MarshalText() ([]byte, error) {
	return bprintf("group:%d", a.group), nil
}

func (a groupAction) GoString() string {
	return fmt.Sprintf("ovs.Group(%d)", a.group)
}

// controllerAction sends a packet to the OpenFlow controller.
type controllerAction struct {
	maxLen int
}

// Controller sends a packet to the controller, truncated to maxLen bytes
// (use 65535 to request the entire packet, per OFPCML_NO_BUFFER).
func Controller(maxLen int) Action { return controllerAction{maxLen: maxLen} }

func (a controllerAction) MarshalText() ([]byte, error) {
	return bprintf("controller:%d", a.maxLen), nil
}

func (a controllerAction) GoString() string {
	return fmt.Sprintf("ovs.Controller(%d)", a.maxLen)
}

// gotoTableAction transitions processing to a later table.
type gotoTableAction struct {
	table uint8
}

// GotoTable directs the pipeline to resume matching in the specified table.
func GotoTable(table uint8) Action { return gotoTableAction{table: table} }

func (a gotoTableAction) MarshalText() ([]byte, error) {
	return bprintf("goto_table:%d", a.table), nil
}

func (a gotoTableAction) GoString() string {
	return fmt.Sprintf("ovs.GotoTable(%d)", a.table)
}

// setFieldAction overwrites a field in the packet or pipeline state.
type setFieldAction struct {
	value string
	field string
}

// SetField sets field to value, e.g. SetField("0x3", "metadata").
func SetField(value, field string) Action {
	return setFieldAction{value: value, field: field}
}

func (a setFieldAction) MarshalText() ([]byte, error) {
	return bprintf("set_field:%s->%s", a.value, a.field), nil
}

func (a setFieldAction) GoString() string {
	return fmt.Sprintf("ovs.SetField(%q, %q)", a.value, a.field)
}

// pushVLANAction pushes a new, outermost 802.1Q/802.1ad tag.
type pushVLANAction struct {
	etherType uint16
}

// PushVLAN pushes a VLAN header with the given TPID (0x8100 for a C-TAG,
// 0x88a8 for an S-TAG). A following SetField sets the VLAN ID in the new tag.
func PushVLAN(etherType uint16) Action { return pushVLANAction{etherType: etherType} }

func (a pushVLANAction) MarshalText() ([]byte, error) {
	return bprintf("push_vlan:0x%04x", a.etherType), nil
}

func (a pushVLANAction) GoString() string {
	return fmt.Sprintf("ovs.PushVLAN(0x%04x)", a.etherType)
}

// popVLANAction removes the outermost VLAN tag.
type popVLANAction struct{}

// PopVLAN removes the outermost 802.1Q/802.1ad tag from a packet.
func PopVLAN() Action { return popVLANAction{} }

func (popVLANAction) MarshalText() ([]byte, error) { return []byte("pop_vlan"), nil }
func (popVLANAction) GoString() string             { return "ovs.PopVLAN()" }

// moveAction copies a field or register range into another, using Open
// vSwitch's Nicira move extension.
type moveAction struct {
	src, dst string
}

// Move copies src into dst, e.g. Move("NXM_OF_VLAN_TCI[]", "OXM_OF_METADATA[]")
// to carry the incoming VLAN tag into the metadata register across a
// goto_table transition.
func Move(src, dst string) Action { return moveAction{src: src, dst: dst} }

func (a moveAction) MarshalText() ([]byte, error) {
	return bprintf("move:%s->%s", a.src, a.dst), nil
}

func (a moveAction) GoString() string {
	return fmt.Sprintf("ovs.Move(%q, %q)", a.src, a.dst)
}

// meterAction attaches a meter to a flow; it is always emitted first among a
// flow's instructions, per OpenFlow 1.3.
type meterAction struct {
	id uint32
}

// Meter attaches the named meter to a flow.
func Meter(id uint32) Action { return meterAction{id: id} }

func (a meterAction) MarshalText() ([]byte, error) {
	return bprintf("meter:%d", a.id), nil
}

func (a meterAction) GoString() string {
	return fmt.Sprintf("ovs.Meter(%d)", a.id)
}
