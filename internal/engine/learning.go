package engine

import (
	"fmt"
	"net"

	"github.com/ovslicer/ovslicer/internal/endpoint"
	"github.com/ovslicer/ovslicer/internal/flowintent"
	"github.com/ovslicer/ovslicer/ovs"
)

// PacketIn handles an OpenFlow packet-in arriving on src, learning its
// source MAC within the owning slice and computing how the buffered
// packet itself should be forwarded. It returns the intents needed to
// install the learning state (an idle-timeout-qualified ingress rule, plus,
// for multi-endpoint slices, a table-2 rule for every endpoint directing
// traffic back to this MAC) and a PacketOut intent releasing the buffered
// packet, or an error if src is not part of any slice.
func (ss *SwitchState) PacketIn(src endpoint.Endpoint, srcMAC, dstMAC net.HardwareAddr, packet []byte) ([]flowintent.Intent, error) {
	s, ok := ss.SliceFor(src)
	if !ok {
		return nil, fmt.Errorf("packet-in on endpoint %s, which belongs to no slice", src)
	}

	var intents []flowintent.Intent

	if prev, known := s.MACTable[srcMAC.String()]; !known || !prev.Equal(src) {
		intents = append(intents, ss.learn(s, src, srcMAC)...)
	}
	s.MACTable[srcMAC.String()] = src

	forward := ss.forwardAction(s, src, dstMAC)
	intents = append(intents, flowintent.PacketOut{
		Bridge:  ss.Cfg.Bridge,
		InPort:  src.Port,
		Packet:  packet,
		Actions: forward,
	})

	return intents, nil
}

// learn installs the idle-timeout-qualified ingress rule that detects when
// mac next goes quiet (so it can be unlearned), plus, for multi-endpoint
// slices, a table-2 rule for every endpoint in the slice — including src
// itself, which drops back rather than looping the frame out the port it
// arrived on — redirecting traffic addressed to mac to the right place.
// Every rule it installs for src carries src's own group ID as cookie (a
// two-endpoint slice, which holds no groups, uses the slice's cookie), so a
// later unlearn can scope its deletes to this endpoint alone. If mac was
// previously learned on a different endpoint of the slice, that endpoint's
// now-stale ingress learning rule is deleted first, so the MAC's move
// re-enters the controller on its new port rather than being silently
// shadowed.
func (ss *SwitchState) learn(s *Slice, src endpoint.Endpoint, mac net.HardwareAddr) []flowintent.Intent {
	var intents []flowintent.Intent

	if prev, known := s.MACTable[mac.String()]; known && !prev.Equal(src) {
		if prevGID, ok := s.Groups[prev]; ok {
			table, _, matches := endpoint.IngressMatch(prev, mac)
			intents = append(intents, flowintent.DeleteFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
				Table:      table,
				Matches:    matches,
				Cookie:     uint64(prevGID),
				CookieMask: ovs.CookieMaskAll,
			}})
		}
	}

	cookie := sliceCookie(s.ID)

	var actions []ovs.Action
	if gid, ok := s.Groups[src]; ok {
		cookie = uint64(gid)
		actions = []ovs.Action{
			ovs.SetField(fmt.Sprintf("0x%x", gid), "metadata"),
			ovs.GotoTable(endpoint.TableForwarding),
		}
	} else {
		var other endpoint.Endpoint
		for o := range s.Sanitized {
			if !o.Equal(src) {
				other = o
				break
			}
		}
		actions = endpoint.EgressAction(other, src.Port)
	}

	table, priority, matches := endpoint.IngressMatch(src, mac)
	intents = append(intents, flowintent.InstallFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
		Cookie:          cookie,
		Table:           table,
		Priority:        priority,
		Matches:         matches,
		Actions:         actions,
		IdleTimeout:     ss.Cfg.IdleTimeout,
		SendFlowRemoved: true,
		Meter:           ss.meterFor(src),
	}})

	if _, ok := s.Groups[src]; !ok {
		return intents
	}

	for o := range s.Sanitized {
		var oActions []ovs.Action
		if o.Equal(src) {
			oActions = []ovs.Action{ovs.Drop()}
		} else {
			oActions = endpoint.EgressAction(src, o.Port)
		}
		intents = append(intents, flowintent.InstallFlow{Bridge: ss.Cfg.Bridge, Flow: &ovs.Flow{
			Cookie:   cookie,
			Table:    endpoint.TableForwarding,
			Priority: endpoint.PriorityLearnedUnicast,
			Matches:  []ovs.Match{ovs.Metadata(uint64(s.Groups[o])), ovs.DataLinkDestination(mac)},
			Actions:  oActions,
		}})
	}

	return intents
}

// forwardAction computes how the packet that triggered a packet-in should
// itself be forwarded: directly to dstMAC's endpoint if already learned in
// this slice, or flooded via src's group (or, for two-endpoint slices,
// directly to the sole other endpoint) otherwise.
func (ss *SwitchState) forwardAction(s *Slice, src endpoint.Endpoint, dstMAC net.HardwareAddr) []ovs.Action {
	if dst, known := s.MACTable[dstMAC.String()]; known && !dst.Equal(src) {
		return endpoint.EgressAction(dst, src.Port)
	}

	if gid, ok := s.Groups[src]; ok {
		return []ovs.Action{ovs.Group(gid)}
	}

	var other endpoint.Endpoint
	for o := range s.Sanitized {
		if !o.Equal(src) {
			other = o
			break
		}
	}
	return endpoint.EgressAction(other, src.Port)
}

// FlowRemoved handles an IDLE_TIMEOUT flow-removed notification for the
// ingress learning rule installed for mac on src, unlearning it: the MAC
// table entry is dropped and every table-2 rule directing other endpoints
// toward mac is deleted.
func (ss *SwitchState) FlowRemoved(src endpoint.Endpoint, mac net.HardwareAddr) []flowintent.Intent {
	s, ok := ss.SliceFor(src)
	if !ok {
		return nil
	}

	if owner, known := s.MACTable[mac.String()]; !known || !owner.Equal(src) {
		return nil
	}
	delete(s.MACTable, mac.String())

	flow := &ovs.Flow{
		Table:   endpoint.TableForwarding,
		Matches: []ovs.Match{ovs.DataLinkDestination(mac)},
	}
	if gid, ok := s.Groups[src]; ok {
		flow.Cookie = uint64(gid)
		flow.CookieMask = ovs.CookieMaskAll
	}

	return []flowintent.Intent{
		flowintent.DeleteFlow{Bridge: ss.Cfg.Bridge, Flow: flow},
	}
}

// ForceLearn pins src's MAC binding without waiting for a packet-in,
// installing the same learning state PacketIn would after observing a
// frame from mac on src. Used by the forced-pinning RPC for endpoints
// whose traffic pattern is known in advance.
func (ss *SwitchState) ForceLearn(src endpoint.Endpoint, mac net.HardwareAddr) ([]flowintent.Intent, error) {
	s, ok := ss.SliceFor(src)
	if !ok {
		return nil, fmt.Errorf("force-learn on endpoint %s, which belongs to no slice", src)
	}

	if prev, known := s.MACTable[mac.String()]; known && prev.Equal(src) {
		return nil, nil
	}

	intents := ss.learn(s, src, mac)
	s.MACTable[mac.String()] = src
	return intents, nil
}
