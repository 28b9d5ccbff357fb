package engine

import "github.com/ovslicer/ovslicer/internal/flowintent"

// AttachSwitch marks ss as attached to a live bridge, seeds its known-port
// set, and returns the base pipeline intents that must be installed before
// any slice-specific rule means anything. Every existing slice is marked
// invalid so the next Revalidate call reconciles them against the fresh
// port set.
func (ss *SwitchState) AttachSwitch(ports []int) []flowintent.Intent {
	ss.Attached = true

	ss.knownPorts = make(map[int]struct{}, len(ports))
	for _, p := range ports {
		ss.knownPorts[p] = struct{}{}
	}

	for id := range ss.slices {
		ss.invalidate(id)
	}

	return BasePipeline(ss.Cfg.Bridge)
}

// DetachSwitch marks ss as no longer attached. Slice bookkeeping is left
// intact so a subsequent reattach can revalidate against it; no intents
// are produced, since there is no live switch left to address them to.
func (ss *SwitchState) DetachSwitch() {
	ss.Attached = false
}

// PortAdded records a newly discovered port and invalidates any slice
// referencing it, so the next revalidation can bring it into service.
func (ss *SwitchState) PortAdded(port int) {
	ss.knownPorts[port] = struct{}{}

	for e, id := range ss.endpointIndex {
		if e.Port == port {
			ss.invalidate(id)
		}
	}
}

// PortRemoved forgets a port and invalidates any slice referencing it, so
// the next revalidation retracts its rules via Sanitise.
func (ss *SwitchState) PortRemoved(port int) {
	delete(ss.knownPorts, port)

	for e, id := range ss.endpointIndex {
		if e.Port == port {
			ss.invalidate(id)
		}
	}
}
