// Package engine implements the reconciliation engine: per-switch slice
// bookkeeping, MAC learning, and the revalidation driver that reduces the
// gap between desired and installed OpenFlow state to a stream of
// flowintent.Intent values.
package engine

import "github.com/ovslicer/ovslicer/internal/endpoint"

// A SliceID stably identifies a Slice within one SwitchState. Slices and
// their owning switch reference each other by ID rather than by cyclic
// pointer ownership.
type SliceID uint64

// A Slice is a logically isolated mini-switch: a target endpoint set, the
// subset currently realised in the switch, a learned MAC table, and (for
// slices with three or more sanitized endpoints) one OpenFlow group per
// endpoint.
type Slice struct {
	ID SliceID

	// Target is the endpoint set the operator wants.
	Target map[endpoint.Endpoint]struct{}

	// Established is the endpoint set currently realised in the switch.
	Established map[endpoint.Endpoint]struct{}

	// Sanitized is Target intersected with the switch's known ports,
	// recomputed by the Sanitise step of revalidation.
	Sanitized map[endpoint.Endpoint]struct{}

	// MACTable maps a learned source address (net.HardwareAddr.String())
	// to the endpoint it was last seen on, within this slice only.
	MACTable map[string]endpoint.Endpoint

	// Groups maps each sanitized endpoint to its allocated OpenFlow group
	// ID, populated only while |Sanitized| >= 3.
	Groups map[endpoint.Endpoint]uint32

	// Bandwidth carries the optional per-endpoint rate limits supplied at
	// creation time, keyed by endpoint.
	Bandwidth map[endpoint.Endpoint]Bandwidth
}

// Bandwidth is a pair of optional rate limits, in kilobits per second,
// carried on a creation request's circuit object. Zero means unset.
type Bandwidth struct {
	Ingress uint64
	Egress  uint64
}

func newSlice(id SliceID) *Slice {
	return &Slice{
		ID:          id,
		Target:      make(map[endpoint.Endpoint]struct{}),
		Established: make(map[endpoint.Endpoint]struct{}),
		Sanitized:   make(map[endpoint.Endpoint]struct{}),
		MACTable:    make(map[string]endpoint.Endpoint),
		Groups:      make(map[endpoint.Endpoint]uint32),
		Bandwidth:   make(map[endpoint.Endpoint]Bandwidth),
	}
}

// Empty reports whether the slice has fewer than two target endpoints and
// should be garbage-collected.
func (s *Slice) Empty() bool {
	return len(s.Target) <= 1
}

// Endpoints returns the slice's target endpoint set as a slice, in no
// particular order.
func (s *Slice) Endpoints() []endpoint.Endpoint {
	out := make([]endpoint.Endpoint, 0, len(s.Target))
	for e := range s.Target {
		out = append(out, e)
	}
	return out
}

// forgetMAC removes every MACTable entry currently pointing at e, used when
// e leaves Established during revalidation.
func (s *Slice) forgetMAC(e endpoint.Endpoint) {
	for mac, owner := range s.MACTable {
		if owner.Equal(e) {
			delete(s.MACTable, mac)
		}
	}
}
