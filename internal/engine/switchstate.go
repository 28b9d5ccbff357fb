package engine

import (
	"fmt"
	"sync"

	"github.com/ovslicer/ovslicer/internal/endpoint"
	"github.com/ovslicer/ovslicer/internal/idalloc"
)

// Config carries per-switch tunables that do not vary across revalidations.
type Config struct {
	// Bridge is the OVS bridge name flowintent.Intent values are addressed
	// to.
	Bridge string

	// IdleTimeout is the default idle_timeout, in seconds, applied to
	// learned ingress rules.
	IdleTimeout int

	// MetersEnabled gates whether per-endpoint bandwidth limits are
	// realised as OpenFlow meters. When false, Flow.Meter is always left
	// zero and no meter clause is ever emitted, per Open Question (iii).
	MetersEnabled bool
}

// DefaultIdleTimeout is used when Config.IdleTimeout is zero.
const DefaultIdleTimeout = 600

// FloodCookie is the reserved cookie value attached to table-2 flood rules,
// so unlearn operations (which filter by a real group's cookie) never
// delete them.
const FloodCookie uint64 = 0xFFFFFFFFFFFFFFFF

// An EndpointRequest is one circuit object from a slice-creation POST: an
// endpoint plus its optional per-direction bandwidth limits.
type EndpointRequest struct {
	Endpoint endpoint.Endpoint
	Bandwidth
}

// SwitchState is the per-switch registry of slices, the endpoint-to-slice
// index, known ports, ID allocators, and the invalidation set driving
// revalidation. All mutating operations are expected to be serialised by
// the caller (the per-switch worker, §5); Mu is exported so a controller
// goroutine can hold it across a compound operation if needed.
type SwitchState struct {
	Mu sync.Mutex

	DPID     uint64
	Cfg      Config
	Attached bool

	slices map[SliceID]*Slice
	nextID SliceID

	endpointIndex map[endpoint.Endpoint]SliceID
	knownPorts    map[int]struct{}

	groupAlloc *idalloc.Allocator
	meterAlloc *idalloc.Allocator

	invalidSlices map[SliceID]struct{}

	// meters maps an endpoint to its allocated [ingress, egress] meter IDs;
	// zero means no meter allocated in that direction.
	meters map[endpoint.Endpoint][2]uint32

	// firstTagRules is the set of (port, outer VLAN) pairs currently
	// carrying an installed table-0 first-tag rule.
	firstTagRules map[portVLAN]struct{}

	// invalidFirstTag holds (port, outer VLAN) pairs a revalidation pass
	// flagged as possibly no longer needed; swept at the end of
	// Revalidate once every slice's delete/add pass has run, since a pair
	// can still be referenced by an endpoint in a different slice.
	invalidFirstTag map[portVLAN]struct{}
}

// NewSwitchState creates an empty SwitchState for dpid.
func NewSwitchState(dpid uint64, cfg Config) *SwitchState {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	// Meter ID 0 is never handed out, since a zero meter ID means "none".
	meterAlloc := idalloc.New()
	meterAlloc.Claim()

	return &SwitchState{
		DPID:            dpid,
		Cfg:             cfg,
		slices:          make(map[SliceID]*Slice),
		endpointIndex:   make(map[endpoint.Endpoint]SliceID),
		knownPorts:      make(map[int]struct{}),
		groupAlloc:      idalloc.New(),
		meterAlloc:      meterAlloc,
		invalidSlices:   make(map[SliceID]struct{}),
		meters:          make(map[endpoint.Endpoint][2]uint32),
		firstTagRules:   make(map[portVLAN]struct{}),
		invalidFirstTag: make(map[portVLAN]struct{}),
	}
}

// Slices returns every slice currently indexed by the switch, in no
// particular order.
func (ss *SwitchState) Slices() []*Slice {
	out := make([]*Slice, 0, len(ss.slices))
	for _, s := range ss.slices {
		out = append(out, s)
	}
	return out
}

// SliceFor returns the slice that owns e, if any.
func (ss *SwitchState) SliceFor(e endpoint.Endpoint) (*Slice, bool) {
	id, ok := ss.endpointIndex[e]
	if !ok {
		return nil, false
	}
	return ss.slices[id], true
}

func (ss *SwitchState) newSlice() *Slice {
	ss.nextID++
	s := newSlice(ss.nextID)
	ss.slices[s.ID] = s
	return s
}

func (ss *SwitchState) invalidate(id SliceID) {
	ss.invalidSlices[id] = struct{}{}
}

// conflicting returns every currently-targeted endpoint that conflicts
// with e, other than e itself.
func (ss *SwitchState) conflicting(e endpoint.Endpoint) []endpoint.Endpoint {
	var out []endpoint.Endpoint
	for other := range ss.endpointIndex {
		if other.Equal(e) {
			continue
		}
		if e.Conflicts(other) {
			out = append(out, other)
		}
	}
	return out
}

// abandonFrom removes e from s's target set and the switch's endpoint
// index, and marks s invalid. It does not touch group/meter allocations;
// those are released during revalidation's delete pass.
func (ss *SwitchState) abandonFrom(s *Slice, e endpoint.Endpoint) {
	delete(s.Target, e)
	delete(ss.endpointIndex, e)
	ss.invalidate(s.ID)
}

// adopt assigns e to dst, first evicting any conflicting endpoint (across
// every slice, per §4.2/§4.5) and, if e was already owned by a different
// slice, abandoning it there.
func (ss *SwitchState) adopt(e endpoint.Endpoint, dst *Slice) {
	for _, other := range ss.conflicting(e) {
		if owner, ok := ss.endpointIndex[other]; ok {
			ss.abandonFrom(ss.slices[owner], other)
		}
	}

	if owner, ok := ss.endpointIndex[e]; ok && owner != dst.ID {
		ss.abandonFrom(ss.slices[owner], e)
	}

	dst.Target[e] = struct{}{}
	ss.endpointIndex[e] = dst.ID
	ss.invalidate(dst.ID)
}

// CreateSlice realises request using the maximum-overlap policy (§4.5):
// each endpoint is validated and checked for intra-request conflicts, the
// best-overlapping existing slice (if any) adopts the new endpoints, and
// any of its endpoints not present in request are split into a fresh
// sibling slice so they are not lost.
func (ss *SwitchState) CreateSlice(request []EndpointRequest) (*Slice, error) {
	if err := validateRequest(request); err != nil {
		return nil, err
	}

	best, overlap := ss.bestOverlap(request)

	if best == nil || overlap == 0 {
		s := ss.newSlice()
		for _, r := range request {
			ss.adopt(r.Endpoint, s)
			s.Bandwidth[r.Endpoint] = r.Bandwidth
		}
		return s, nil
	}

	requested := make(map[endpoint.Endpoint]struct{}, len(request))
	for _, r := range request {
		requested[r.Endpoint] = struct{}{}
	}

	// Endpoints best doesn't yet have: adopt them.
	for _, r := range request {
		if _, ok := best.Target[r.Endpoint]; !ok {
			ss.adopt(r.Endpoint, best)
		}
		best.Bandwidth[r.Endpoint] = r.Bandwidth
	}

	// Endpoints best has but request doesn't: split into a sibling so they
	// survive the reshape.
	var stranded []endpoint.Endpoint
	for e := range best.Target {
		if _, ok := requested[e]; !ok {
			stranded = append(stranded, e)
		}
	}

	if len(stranded) > 0 {
		sibling := ss.newSlice()
		for _, e := range stranded {
			ss.abandonFrom(best, e)
			sibling.Target[e] = struct{}{}
			ss.endpointIndex[e] = sibling.ID
			if bw, ok := best.Bandwidth[e]; ok {
				sibling.Bandwidth[e] = bw
				delete(best.Bandwidth, e)
			}
		}
		ss.invalidate(sibling.ID)
	}

	return best, nil
}

// bestOverlap picks the existing slice with the greatest intersection with
// request's endpoints, ties broken by first encountered.
func (ss *SwitchState) bestOverlap(request []EndpointRequest) (*Slice, int) {
	counts := make(map[SliceID]int)
	order := make([]SliceID, 0)

	for _, r := range request {
		id, ok := ss.endpointIndex[r.Endpoint]
		if !ok {
			continue
		}
		if _, seen := counts[id]; !seen {
			order = append(order, id)
		}
		counts[id]++
	}

	var (
		best    *Slice
		bestCnt int
	)
	for _, id := range order {
		if counts[id] > bestCnt {
			bestCnt = counts[id]
			best = ss.slices[id]
		}
	}

	return best, bestCnt
}

func validateRequest(request []EndpointRequest) error {
	for i, r := range request {
		if err := r.Endpoint.Validate(); err != nil {
			return err
		}
		for j, other := range request {
			if i == j {
				continue
			}
			if r.Endpoint.Conflicts(other.Endpoint) {
				return fmt.Errorf("endpoint %s conflicts with %s within the same request", r.Endpoint, other.Endpoint)
			}
		}
	}
	return nil
}

// Disuse abandons every endpoint in endpoints from whatever slice currently
// owns it, if any; unowned entries are no-ops. Corresponds to the REST
// `disused` field.
func (ss *SwitchState) Disuse(endpoints []endpoint.Endpoint) {
	for _, e := range endpoints {
		if owner, ok := ss.endpointIndex[e]; ok {
			ss.abandonFrom(ss.slices[owner], e)
		}
	}
}
