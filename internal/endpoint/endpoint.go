// Package endpoint models the tuple that identifies a tagged or untagged
// traffic class on a physical switch port, and the conflict relation used
// to keep a switch's endpoint set partitioned.
package endpoint

import "fmt"

// maxPort is the largest port number the switch will ever report; the
// reserved OpenFlow port range starts just above it.
const maxPort = 0x7fffffff

// An Endpoint is a (port[, vlan[, inner-vlan]]) descriptor. Arity reports
// how many of Port/VLAN/Inner are meaningful: 1, 2, or 3.
type Endpoint struct {
	Port  int
	VLAN  int
	Inner int
	Arity int
}

// New1 builds a bare-port endpoint.
func New1(port int) Endpoint { return Endpoint{Port: port, Arity: 1} }

// New2 builds a (port, outer-vlan) endpoint.
func New2(port, vlan int) Endpoint { return Endpoint{Port: port, VLAN: vlan, Arity: 2} }

// New3 builds a (port, outer-vlan, inner-vlan) endpoint.
func New3(port, vlan, inner int) Endpoint {
	return Endpoint{Port: port, VLAN: vlan, Inner: inner, Arity: 3}
}

// Validate reports whether e is a well-formed endpoint: arity 1 through 3,
// every meaningful field non-negative, and the port within the range the
// switch can report.
func (e Endpoint) Validate() error {
	if e.Arity < 1 || e.Arity > 3 {
		return fmt.Errorf("endpoint %s: arity must be 1, 2, or 3", e)
	}
	if e.Port < 0 || e.Port > maxPort {
		return fmt.Errorf("endpoint %s: port out of range", e)
	}
	if e.Arity >= 2 && e.VLAN < 0 {
		return fmt.Errorf("endpoint %s: vlan must be non-negative", e)
	}
	if e.Arity >= 3 && e.Inner < 0 {
		return fmt.Errorf("endpoint %s: inner vlan must be non-negative", e)
	}
	return nil
}

// Conflicts reports whether e and o cannot coexist in distinct slices: their
// Port fields match, and every position both endpoints define agrees.
func (e Endpoint) Conflicts(o Endpoint) bool {
	if e.Port != o.Port {
		return false
	}

	if e.Arity >= 2 && o.Arity >= 2 && e.VLAN != o.VLAN {
		return false
	}
	if e.Arity >= 3 && o.Arity >= 3 && e.Inner != o.Inner {
		return false
	}

	return true
}

// Equal reports whether e and o describe the same endpoint.
func (e Endpoint) Equal(o Endpoint) bool {
	return e.Arity == o.Arity && e.Port == o.Port && e.VLAN == o.VLAN && e.Inner == o.Inner
}

// String renders e as "(port[,vlan[,inner]])", matching the tuple notation
// used throughout the design.
func (e Endpoint) String() string {
	switch e.Arity {
	case 1:
		return fmt.Sprintf("(%d)", e.Port)
	case 2:
		return fmt.Sprintf("(%d,%d)", e.Port, e.VLAN)
	case 3:
		return fmt.Sprintf("(%d,%d,%d)", e.Port, e.VLAN, e.Inner)
	default:
		return fmt.Sprintf("(invalid arity %d)", e.Arity)
	}
}
