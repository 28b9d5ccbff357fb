package engine

import (
	"github.com/ovslicer/ovslicer/internal/endpoint"
	"github.com/ovslicer/ovslicer/internal/flowintent"
	"github.com/ovslicer/ovslicer/ovs"
)

// MeterSweep reconciles the switch's meter allocations against the
// ingress bandwidth limits requested on each dirty slice's sanitized
// endpoints, allocating a meter for every endpoint that newly needs one
// and releasing any meter whose endpoint left the sanitized set or whose
// bandwidth limit was cleared. Only ingress is rate-limited: OpenFlow
// meters attach to a flow, and since a slice's egress path fans out
// through a shared group's buckets, there is no single flow to attach an
// egress meter to without duplicating per-destination table-2 rules. Egress
// values in Bandwidth are stored for reporting but not enforced.
//
// MeterSweep is a no-op when the switch configuration has meters disabled.
func MeterSweep(ss *SwitchState, dirty []*Slice) []flowintent.Intent {
	if !ss.Cfg.MetersEnabled {
		return nil
	}

	var intents []flowintent.Intent

	for _, s := range dirty {
		for e := range s.Sanitized {
			bw, hasBandwidth := s.Bandwidth[e]
			ids, hasMeter := ss.meters[e]

			switch {
			case hasBandwidth && bw.Ingress > 0 && !hasMeter:
				id := ss.meterAlloc.Claim()
				ss.meters[e] = [2]uint32{id, 0}
				intents = append(intents, flowintent.InstallMeter{Bridge: ss.Cfg.Bridge, Meter: &ovs.Meter{
					ID:    id,
					Bands: []ovs.MeterBand{{Rate: bw.Ingress}},
				}})

			case hasBandwidth && bw.Ingress > 0 && hasMeter:
				intents = append(intents, flowintent.InstallMeter{Bridge: ss.Cfg.Bridge, Meter: &ovs.Meter{
					ID:    ids[0],
					Bands: []ovs.MeterBand{{Rate: bw.Ingress}},
				}})

			case (!hasBandwidth || bw.Ingress == 0) && hasMeter:
				intents = append(intents, flowintent.DeleteMeter{Bridge: ss.Cfg.Bridge, ID: ids[0]})
				ss.meterAlloc.Release(ids[0])
				delete(ss.meters, e)
			}
		}

		for e, ids := range ss.meters {
			if _, stillSanitized := s.Sanitized[e]; stillSanitized {
				continue
			}
			if owner, ok := ss.endpointIndex[e]; ok && owner != s.ID {
				continue
			}
			intents = append(intents, flowintent.DeleteMeter{Bridge: ss.Cfg.Bridge, ID: ids[0]})
			ss.meterAlloc.Release(ids[0])
			delete(ss.meters, e)
		}
	}

	return intents
}

// meterFor returns the ingress meter ID allocated to e, or 0 if none.
func (ss *SwitchState) meterFor(e endpoint.Endpoint) uint32 {
	return ss.meters[e][0]
}
