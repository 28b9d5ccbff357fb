package engine

import (
	"fmt"

	"github.com/ovslicer/ovslicer/internal/endpoint"
	"github.com/ovslicer/ovslicer/internal/flowintent"
	"github.com/ovslicer/ovslicer/ovs"
)

// BaseCookie scopes the switch-wide pipeline rules — the LLDP drop and
// every per-port first-tag rule — so a bulk revalidation delete pass never
// touches them.
const BaseCookie uint64 = 0x1

func sliceCookie(id SliceID) uint64 { return uint64(id) << 8 }

// SliceCookie returns the OpenFlow cookie value carried by a two-endpoint
// slice's E-Line flows and learned ingress rules, for use by callers that
// need to scope an ovs-ofctl dump-aggregate query (or similar) to a single
// slice. Flows of a slice with three or more endpoints carry a group ID or
// FloodCookie as cookie instead, so a query scoped by this value does not
// count them.
func SliceCookie(id SliceID) uint64 { return sliceCookie(id) }

// BasePipeline returns the switch-wide flow that must exist before any
// slice-specific rule is meaningful: an LLDP drop at the highest priority.
// Tagged endpoints get the switch into table 1 themselves, via the
// per-(port, outer VLAN) first-tag rules ensureFirstTagRule installs
// alongside their owning endpoint's other rules; there is no catch-all
// table-0 default, so traffic matching neither an endpoint's own rule nor
// a first-tag rule simply falls through to the implicit table-miss drop.
func BasePipeline(bridge string) []flowintent.Intent {
	lldpDrop := &ovs.Flow{
		Cookie:   BaseCookie,
		Table:    endpoint.TableIngressUntagged,
		Priority: endpoint.PriorityLLDPDrop,
		Matches:  []ovs.Match{ovs.DataLinkType(0x88cc)},
		Actions:  []ovs.Action{ovs.Drop()},
	}

	return []flowintent.Intent{
		flowintent.InstallFlow{Bridge: bridge, Flow: lldpDrop},
	}
}

// portVLAN identifies the (port, outer VLAN) pair a tagged endpoint's
// table-0 first-tag rule is installed against. Multiple endpoints across
// different slices can share one pair (they differ only by inner VLAN), so
// the rule itself is a switch-wide resource tracked independently of any
// one slice.
type portVLAN struct {
	port  int
	outer int
}

// ensureFirstTagRule installs e's table-0 first-tag rule — pop the outer
// tag, carry its VLAN ID into metadata, and hand off to the tagged-ingress
// table — if e is tagged and the pair doesn't already have one installed.
func ensureFirstTagRule(ss *SwitchState, e endpoint.Endpoint) []flowintent.Intent {
	if e.Arity < 2 {
		return nil
	}

	pv := portVLAN{port: e.Port, outer: e.VLAN}
	delete(ss.invalidFirstTag, pv)

	if _, ok := ss.firstTagRules[pv]; ok {
		return nil
	}
	ss.firstTagRules[pv] = struct{}{}

	return []flowintent.Intent{flowintent.InstallFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
		Cookie:   BaseCookie,
		Table:    endpoint.TableIngressUntagged,
		Priority: endpoint.PriorityIngress,
		Matches: []ovs.Match{
			ovs.InPortMatch(e.Port),
			ovs.DataLinkVLAN(taggedVLANBit | e.VLAN),
		},
		Actions: []ovs.Action{
			ovs.PopVLAN(),
			ovs.SetField(fmt.Sprintf("0x%x", e.VLAN), "metadata"),
			ovs.GotoTable(endpoint.TableIngressTagged),
		},
	}}}
}

// taggedVLANBit mirrors endpoint's unexported taggedBit: the OXM_OF_VLAN_VID
// "present" bit OR'd into a tagged vlan_vid match.
const taggedVLANBit = 0x1000

// markFirstTagInvalid flags e's (port, outer) pair as a candidate for
// garbage collection; sweepFirstTagRules decides, once every dirty slice's
// passes have run, whether anything still references it.
func markFirstTagInvalid(ss *SwitchState, e endpoint.Endpoint) {
	if e.Arity < 2 {
		return
	}
	ss.invalidFirstTag[portVLAN{port: e.Port, outer: e.VLAN}] = struct{}{}
}

// sweepFirstTagRules deletes any first-tag rule flagged invalid during this
// revalidation that no endpoint, in any slice, still references.
func sweepFirstTagRules(ss *SwitchState) []flowintent.Intent {
	var intents []flowintent.Intent

	for pv := range ss.invalidFirstTag {
		if firstTagReferenced(ss, pv) {
			continue
		}
		intents = append(intents, flowintent.DeleteFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
			Table: endpoint.TableIngressUntagged,
			Matches: []ovs.Match{
				ovs.InPortMatch(pv.port),
				ovs.DataLinkVLAN(taggedVLANBit | pv.outer),
			},
		}})
		delete(ss.firstTagRules, pv)
	}

	ss.invalidFirstTag = make(map[portVLAN]struct{})

	return intents
}

func firstTagReferenced(ss *SwitchState, pv portVLAN) bool {
	for _, s := range ss.slices {
		for e := range s.Sanitized {
			if e.Arity >= 2 && e.Port == pv.port && e.VLAN == pv.outer {
				return true
			}
		}
	}
	return false
}

// Revalidate reduces the gap between every invalidated slice's Target and
// its Established/Sanitized/Groups state to an ordered stream of Intents:
// collect the invalid slices, sanitise their targets against known ports,
// delete stale rules, reconcile meters (before the add pass, so the rules
// it installs can reference them), add missing rules, commit Established,
// garbage-collect slices left with fewer than two target endpoints, and
// sweep first-tag rules no slice still references.
func Revalidate(ss *SwitchState) []flowintent.Intent {
	var intents []flowintent.Intent

	dirty := make([]*Slice, 0, len(ss.invalidSlices))
	for id := range ss.invalidSlices {
		if s, ok := ss.slices[id]; ok {
			dirty = append(dirty, s)
		}
	}

	for _, s := range dirty {
		sanitise(ss, s)
	}

	for _, s := range dirty {
		intents = append(intents, deletePass(ss, s)...)
	}

	intents = append(intents, MeterSweep(ss, dirty)...)

	for _, s := range dirty {
		intents = append(intents, addPass(ss, s)...)
	}

	for _, s := range dirty {
		commit(s)
	}

	intents = append(intents, gc(ss, dirty)...)
	intents = append(intents, sweepFirstTagRules(ss)...)

	ss.invalidSlices = make(map[SliceID]struct{})

	return intents
}

// sanitise recomputes Sanitized as Target intersected with the switch's
// known ports.
func sanitise(ss *SwitchState, s *Slice) {
	s.Sanitized = make(map[endpoint.Endpoint]struct{}, len(s.Target))
	for e := range s.Target {
		if _, known := ss.knownPorts[e.Port]; known {
			s.Sanitized[e] = struct{}{}
		}
	}
}

// deletePass emits intents tearing down s's stale rules, groups, and
// first-tag bookkeeping, per the deletion-phase cardinality rules: any
// transition out of a two-endpoint shape, or into a small (<=2) shape,
// invalidates everything the slice had established, since both rewrite
// every remaining endpoint's ingress rule; a large slice merely shrinking
// to another large slice only tears down what it actually lost.
func deletePass(ss *SwitchState, s *Slice) []flowintent.Intent {
	var intents []flowintent.Intent

	for e := range staleEndpoints(s) {
		table, _, matches := endpoint.IngressMatch(e, nil)

		flow := &ovs.Flow{
			Table:   table,
			Matches: matches,
		}
		if gid, ok := s.Groups[e]; ok {
			flow.Cookie = uint64(gid)
			flow.CookieMask = ovs.CookieMaskAll
		}
		intents = append(intents, flowintent.DeleteFlow{Bridge: ss.Cfg.Bridge, Flow: flow})

		s.forgetMAC(e)
		markFirstTagInvalid(ss, e)

		// A slice staying multi-endpoint releases only the lost endpoint's group.
		if gid, ok := s.Groups[e]; ok && len(s.Sanitized) > 2 {
			intents = append(intents, flowintent.DeleteFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
				Table:   endpoint.TableForwarding,
				Matches: []ovs.Match{ovs.Metadata(uint64(gid))},
			}})
			intents = append(intents, flowintent.DeleteGroup{Bridge: ss.Cfg.Bridge, ID: gid})
			intents = append(intents, flowintent.DeleteFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
				Table:      endpoint.TableForwarding,
				Cookie:     uint64(gid),
				CookieMask: ovs.CookieMaskAll,
			}})
			delete(s.Groups, e)
			ss.groupAlloc.Release(gid)
		}
	}

	if len(s.Established) > 2 && len(s.Sanitized) <= 2 {
		for e, gid := range s.Groups {
			intents = append(intents, flowintent.DeleteFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
				Table:   endpoint.TableForwarding,
				Matches: []ovs.Match{ovs.Metadata(uint64(gid))},
			}})
			intents = append(intents, flowintent.DeleteGroup{Bridge: ss.Cfg.Bridge, ID: gid})
			intents = append(intents, flowintent.DeleteFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
				Table:      endpoint.TableForwarding,
				Cookie:     uint64(gid),
				CookieMask: ovs.CookieMaskAll,
			}})
			delete(s.Groups, e)
			ss.groupAlloc.Release(gid)
		}
	}

	return intents
}

// staleEndpoints returns the endpoints whose ingress rules deletePass must
// tear down this revalidation, per the deletion-phase cardinality rules
// above.
func staleEndpoints(s *Slice) map[endpoint.Endpoint]struct{} {
	stale := make(map[endpoint.Endpoint]struct{}, len(s.Established))

	if len(s.Established) == 2 || len(s.Sanitized) <= 2 {
		for e := range s.Established {
			stale[e] = struct{}{}
		}
		return stale
	}

	for e := range s.Established {
		if _, stillWanted := s.Sanitized[e]; !stillWanted {
			stale[e] = struct{}{}
		}
	}
	return stale
}

// addPass emits intents installing ingress rules (and, for slices with
// three or more sanitized endpoints, per-endpoint flood groups and their
// table-2 lookup rules) for every endpoint newly present in Sanitized.
func addPass(ss *SwitchState, s *Slice) []flowintent.Intent {
	var intents []flowintent.Intent

	n := len(s.Sanitized)
	if n < 2 {
		return nil
	}

	if n == 2 {
		var a, b endpoint.Endpoint
		i := 0
		for e := range s.Sanitized {
			if i == 0 {
				a = e
			} else {
				b = e
			}
			i++
		}
		intents = append(intents, ensureFirstTagRule(ss, a)...)
		intents = append(intents, ensureFirstTagRule(ss, b)...)
		return append(intents, eLineFlow(ss, s, a, b), eLineFlow(ss, s, b, a))
	}

	intents = append(intents, ensureGroups(ss, s)...)

	// A small (<3) slice growing into a multi-endpoint one rewrites every
	// endpoint's ingress rule, not just the newly requested ones, since a
	// small slice's endpoints never had a controller-directed rule to
	// begin with. Otherwise only the genuinely new endpoints need one.
	smallToMulti := len(s.Established) < 3

	for e := range s.Sanitized {
		if !smallToMulti {
			if _, already := s.Established[e]; already {
				continue
			}
		}

		intents = append(intents, ensureFirstTagRule(ss, e)...)

		table, priority, matches := endpoint.IngressMatch(e, nil)
		gid := s.Groups[e]

		intents = append(intents, flowintent.InstallFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
			Cookie:   uint64(gid),
			Table:    table,
			Priority: priority,
			Matches:  matches,
			Actions:  []ovs.Action{ovs.Controller(0xffff)},
			Meter:    ss.meterFor(e),
		}})
	}

	return intents
}

// eLineFlow builds the ingress rule forwarding traffic entering on from
// straight out to to, the transparent cross-connect behaviour a
// two-endpoint slice provides.
func eLineFlow(ss *SwitchState, s *Slice, from, to endpoint.Endpoint) flowintent.Intent {
	table, priority, matches := endpoint.IngressMatch(from, nil)
	return flowintent.InstallFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
		Cookie:   sliceCookie(s.ID),
		Table:    table,
		Priority: priority,
		Matches:  matches,
		Actions:  endpoint.EgressAction(to, from.Port),
		Meter:    ss.meterFor(from),
	}}
}

// ensureGroups allocates a flood group for every sanitized endpoint that
// doesn't already have one, and reinstalls (via InstallGroup or
// ModifyGroup, depending on whether the group already existed) every
// sanitized endpoint's bucket list, since adding or removing a single
// member changes every other member's flood fan-out.
func ensureGroups(ss *SwitchState, s *Slice) []flowintent.Intent {
	var intents []flowintent.Intent

	hadGroup := make(map[endpoint.Endpoint]struct{}, len(s.Groups))
	for e := range s.Groups {
		hadGroup[e] = struct{}{}
	}

	for e := range s.Sanitized {
		if _, ok := s.Groups[e]; !ok {
			s.Groups[e] = ss.groupAlloc.Claim()
		}
	}

	for e, gid := range s.Groups {
		if _, stillSanitized := s.Sanitized[e]; !stillSanitized {
			continue
		}

		var buckets []ovs.Bucket
		for o := range s.Sanitized {
			if o.Equal(e) {
				continue
			}
			buckets = append(buckets, ovs.Bucket{Actions: endpoint.EgressAction(o, e.Port)})
		}

		g := &ovs.Group{ID: gid, Type: ovs.GroupTypeAll, Buckets: buckets}

		if _, existed := hadGroup[e]; existed {
			intents = append(intents, flowintent.ModifyGroup{Bridge: ss.Cfg.Bridge, Group: g})
		} else {
			intents = append(intents, flowintent.InstallGroup{Bridge: ss.Cfg.Bridge, Group: g})
		}

		// Table-2 lookup rule redirecting this endpoint's own metadata value
		// to its flood group; reinstalled unconditionally since add-flow
		// overwrites in place.
		intents = append(intents, flowintent.InstallFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
			Cookie:   FloodCookie,
			Table:    endpoint.TableForwarding,
			Priority: endpoint.PriorityFlood,
			Matches:  []ovs.Match{ovs.Metadata(uint64(gid))},
			Actions:  []ovs.Action{ovs.Group(gid)},
		}})
	}

	return intents
}

// commit replaces Established with Sanitized now that the delete and add
// passes have been emitted for s.
func commit(s *Slice) {
	s.Established = make(map[endpoint.Endpoint]struct{}, len(s.Sanitized))
	for e := range s.Sanitized {
		s.Established[e] = struct{}{}
	}
}

// gc removes slices left with fewer than two endpoints after revalidation,
// releasing any group allocations they still hold.
func gc(ss *SwitchState, dirty []*Slice) []flowintent.Intent {
	var intents []flowintent.Intent

	for _, s := range dirty {
		if !s.Empty() {
			continue
		}

		for e, gid := range s.Groups {
			intents = append(intents, flowintent.DeleteGroup{Bridge: ss.Cfg.Bridge, ID: gid})
			ss.groupAlloc.Release(gid)
			delete(s.Groups, e)
		}

		for e := range s.Target {
			delete(ss.endpointIndex, e)
		}
		delete(ss.slices, s.ID)
	}

	return intents
}
