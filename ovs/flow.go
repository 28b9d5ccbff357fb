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
	"bytes"
	"errors"
	"fmt"
)

var (
	// errNoActions is returned when a Flow has no Actions set, which is
	// invalid for ovs-ofctl add-flow (use Drop() to express an explicit
	// drop instead of an empty action list).
	errNoActions = errors.New("flow must have one or more actions")

	// errActionsWithDrop is returned when Drop is combined with any other
	// action, which ovs-ofctl rejects.
	errActionsWithDrop = errors.New("flow actions cannot contain drop and other actions")
)

// A FlowError is an error encountered while marshaling or applying a Flow.
type FlowError struct {
	Err error
}

// Error implements error.
func (e *FlowError) Error() string {
	return fmt.Sprintf("invalid flow: %v", e.Err)
}

// CookieMask selects which bits of a Flow's Cookie must match during a
// delete or modify operation. The zero value adds no cookie restriction,
// so flows match whatever their cookie; CookieMaskAll requires every bit
// to match, i.e. the exact cookie.
type CookieMask uint64

// CookieMaskAll requires an exact cookie match; used to scope bulk deletes
// (e.g. "every rule for this group") to flows carrying one cookie value.
const CookieMaskAll CookieMask = 0xffffffffffffffff

// A Flow is a single row in an OVS flow table, understood by ovs-ofctl
// add-flow/del-flows/mod-flows.
type Flow struct {
	// Cookie is an opaque value attached to the flow, used here to scope
	// bulk deletes to a specific endpoint group or slice.
	Cookie uint64

	// CookieMask restricts delete/modify operations to flows whose cookie
	// matches Cookie under this mask. Ignored for add-flow.
	CookieMask CookieMask

	// Table is the flow table this flow belongs to.
	Table uint8

	// Priority ranks this flow relative to others in the same table;
	// higher values are evaluated first.
	Priority int

	// InPort, when non-zero, restricts this flow (or, for deletes, matches
	// flows) to f.InPort's ingress port. Use Matches with an InPortMatch
	// instead when an explicit zero in_port must be expressed.
	InPort int

	// Matches holds the flow's match fields, beyond InPort.
	Matches []Match

	// Actions holds the flow's action list. Must be non-empty for
	// add-flow; Drop() must not be combined with other actions.
	Actions []Action

	// IdleTimeout, if non-zero, requests the switch remove this flow
	// after this many seconds without a matching packet.
	IdleTimeout int

	// SendFlowRemoved requests the switch emit a FlowRemoved notification
	// when this flow expires or is deleted.
	SendFlowRemoved bool

	// Meter, if non-zero, attaches a rate-limiting meter to the flow.
	Meter uint32
}

// MarshalText marshals a Flow to the textual form expected by ovs-ofctl
// add-flow.
func (f *Flow) MarshalText() ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "cookie=0x%016x,", f.Cookie)
	fmt.Fprintf(&buf, "table=%d,", f.Table)
	fmt.Fprintf(&buf, "priority=%d,", f.Priority)

	if f.InPort != 0 {
		fmt.Fprintf(&buf, "in_port=%s,", portString(f.InPort))
	}

	for _, m := range f.Matches {
		mb, err := m.MarshalText()
		if err != nil {
			return nil, err
		}
		buf.Write(mb)
		buf.WriteByte(',')
	}

	if f.Meter != 0 {
		fmt.Fprintf(&buf, "meter=%d,", f.Meter)
	}

	fmt.Fprintf(&buf, "idle_timeout=%d,", f.IdleTimeout)

	if f.SendFlowRemoved {
		buf.WriteString("flags=send_flow_rem,")
	}

	if err := writeActions(&buf, f.Actions); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GoString implements fmt.GoStringer for debugging.
func (f *Flow) GoString() string {
	return fmt.Sprintf("&ovs.Flow{Table: %d, Priority: %d, Cookie: 0x%x}", f.Table, f.Priority, f.Cookie)
}

func (f *Flow) validate() error {
	if len(f.Actions) == 0 {
		return &FlowError{Err: errNoActions}
	}

	if len(f.Actions) > 1 {
		for _, a := range f.Actions {
			if _, ok := a.(dropAction); ok {
				return &FlowError{Err: errActionsWithDrop}
			}
		}
	}

	return nil
}

// matchSpec renders a Flow's match portion only (table, priority, in_port,
// Matches, cookie/cookie_mask), used by del-flows and mod-flows, which take
// no actions when merely targeting existing flows for removal.
func (f *Flow) matchSpec() ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "table=%d", f.Table)

	if f.Priority != 0 {
		fmt.Fprintf(&buf, ",priority=%d", f.Priority)
	}

	if f.CookieMask != 0 {
		fmt.Fprintf(&buf, ",cookie=0x%016x/0x%016x", f.Cookie, uint64(f.CookieMask))
	}

	if f.InPort != 0 {
		fmt.Fprintf(&buf, ",in_port=%s", portString(f.InPort))
	}

	for _, m := range f.Matches {
		mb, err := m.MarshalText()
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(mb)
	}

	return buf.Bytes(), nil
}

// writeActions renders a comma-joined actions= clause.
func writeActions(buf *bytes.Buffer, actions []Action) error {
	buf.WriteString("actions=")

	for i, a := range actions {
		if i > 0 {
			buf.WriteByte(',')
		}

		ab, err := a.MarshalText()
		if err != nil {
			return err
		}
		buf.Write(ab)
	}

	return nil
}
