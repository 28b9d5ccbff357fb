package restapi

import (
	"fmt"
	"net"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ovslicer/ovslicer/internal/endpoint"
	"github.com/ovslicer/ovslicer/internal/engine"
	"github.com/ovslicer/ovslicer/internal/flowintent"
)

// circuit is the wire representation of an endpoint tuple: [port], [port,
// vlan], or [port, vlan, inner]. It is used both for the bare tuples
// ("disused", GET/POST responses) and nested inside circuitRequest for a
// slice's POST body.
type circuit []int

func (c circuit) toEndpoint() (endpoint.Endpoint, error) {
	switch len(c) {
	case 1:
		return endpoint.New1(c[0]), nil
	case 2:
		return endpoint.New2(c[0], c[1]), nil
	case 3:
		return endpoint.New3(c[0], c[1], c[2]), nil
	default:
		return endpoint.Endpoint{}, fmt.Errorf("circuit must have 1 to 3 elements, got %d", len(c))
	}
}

func endpointToCircuit(e endpoint.Endpoint) circuit {
	switch e.Arity {
	case 1:
		return circuit{e.Port}
	case 2:
		return circuit{e.Port, e.VLAN}
	default:
		return circuit{e.Port, e.VLAN, e.Inner}
	}
}

// circuitRequest is one object from a slice-creation POST's "slices" array:
// an endpoint plus its optional per-direction bandwidth limits.
type circuitRequest struct {
	Circuit   circuit `json:"circuit"`
	IngressBW *uint64 `json:"ingress-bw,omitempty"`
	EgressBW  *uint64 `json:"egress-bw,omitempty"`
}

func (r circuitRequest) toEndpointRequest() (engine.EndpointRequest, error) {
	e, err := r.Circuit.toEndpoint()
	if err != nil {
		return engine.EndpointRequest{}, err
	}

	req := engine.EndpointRequest{Endpoint: e}
	if r.IngressBW != nil {
		req.Bandwidth.Ingress = *r.IngressBW
	}
	if r.EgressBW != nil {
		req.Bandwidth.Egress = *r.EgressBW
	}
	return req, nil
}

// learnRequest is the POST body's optional "learn" object, forcibly
// pinning a MAC binding on an endpoint ahead of any packet-in.
type learnRequest struct {
	MAC     string  `json:"mac"`
	Tuple   circuit `json:"tuple"`
	Timeout *int    `json:"timeout,omitempty"`
}

// configRequest is the full POST body accepted by the per-switch config
// endpoint. Every field is optional.
type configRequest struct {
	Slices  [][]circuitRequest `json:"slices,omitempty"`
	Disused []circuit          `json:"disused,omitempty"`
	Learn   *learnRequest      `json:"learn,omitempty"`
}

// configResponse is the GET/POST response shape: an array of slices, each
// an array of endpoint tuples. It mirrors the operator's configured
// target set, not the switch-filtered sanitized subset, so that a POST
// immediately followed by a GET round-trips even before the switch has
// reattached.
type configResponse [][]circuit

func slicesToResponse(slices []*engine.Slice) configResponse {
	sort.Slice(slices, func(i, j int) bool { return slices[i].ID < slices[j].ID })

	out := make(configResponse, 0, len(slices))
	for _, s := range slices {
		if s.Empty() {
			continue
		}
		endpoints := s.Endpoints()
		sort.Slice(endpoints, func(i, j int) bool {
			if endpoints[i].Port != endpoints[j].Port {
				return endpoints[i].Port < endpoints[j].Port
			}
			if endpoints[i].VLAN != endpoints[j].VLAN {
				return endpoints[i].VLAN < endpoints[j].VLAN
			}
			return endpoints[i].Inner < endpoints[j].Inner
		})

		circuits := make([]circuit, 0, len(endpoints))
		for _, e := range endpoints {
			circuits = append(circuits, endpointToCircuit(e))
		}
		out = append(out, circuits)
	}
	return out
}

// mutationPlan is a POST body after every circuit, MAC, and conflict has
// been validated, ready to run against a SwitchState without risk of a
// structural error appearing partway through. Validation mirrors
// engine.SwitchState's own per-request checks (arity, range, intra-request
// conflict) so that the 400 they'd otherwise produce asynchronously, deep
// inside the switch's worker goroutine, is instead surfaced synchronously
// to the caller.
type mutationPlan struct {
	disused []endpoint.Endpoint
	slices  [][]engine.EndpointRequest
	learn   *learnPlan
}

type learnPlan struct {
	mac   net.HardwareAddr
	tuple endpoint.Endpoint

	// timeout is accepted and validated but not yet wired: ForceLearn
	// always uses the switch's configured idle timeout. A per-binding
	// override would need a SwitchState.ForceLearn parameter.
	timeout *int
}

func parseConfigRequest(body configRequest) (mutationPlan, error) {
	var plan mutationPlan

	for _, c := range body.Disused {
		e, err := c.toEndpoint()
		if err != nil {
			return mutationPlan{}, fmt.Errorf("disused: %w", err)
		}
		if err := e.Validate(); err != nil {
			return mutationPlan{}, fmt.Errorf("disused: %w", err)
		}
		plan.disused = append(plan.disused, e)
	}

	for i, group := range body.Slices {
		reqs := make([]engine.EndpointRequest, 0, len(group))
		for _, cr := range group {
			req, err := cr.toEndpointRequest()
			if err != nil {
				return mutationPlan{}, fmt.Errorf("slices[%d]: %w", i, err)
			}
			if err := req.Endpoint.Validate(); err != nil {
				return mutationPlan{}, fmt.Errorf("slices[%d]: %w", i, err)
			}
			reqs = append(reqs, req)
		}
		if err := checkIntraRequestConflicts(reqs); err != nil {
			return mutationPlan{}, fmt.Errorf("slices[%d]: %w", i, err)
		}
		plan.slices = append(plan.slices, reqs)
	}

	if body.Learn != nil {
		mac, err := net.ParseMAC(body.Learn.MAC)
		if err != nil {
			return mutationPlan{}, fmt.Errorf("learn: %w", err)
		}
		tuple, err := body.Learn.Tuple.toEndpoint()
		if err != nil {
			return mutationPlan{}, fmt.Errorf("learn: %w", err)
		}
		if err := tuple.Validate(); err != nil {
			return mutationPlan{}, fmt.Errorf("learn: %w", err)
		}
		plan.learn = &learnPlan{mac: mac, tuple: tuple, timeout: body.Learn.Timeout}
	}

	return plan, nil
}

// checkIntraRequestConflicts rejects a circuit array that conflicts with
// itself, matching the check engine.SwitchState.CreateSlice performs
// internally before adopting any endpoint.
func checkIntraRequestConflicts(reqs []engine.EndpointRequest) error {
	for i, r := range reqs {
		for j, other := range reqs {
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

// apply runs the already-validated plan against ss, producing the
// RestMutation closure Dispatch expects. log is used only to record the
// vanishingly unlikely case where engine-level validation still rejects a
// plan despite restapi's own pre-validation above.
func (p mutationPlan) apply(log *logrus.Logger) func(*engine.SwitchState) []flowintent.Intent {
	return func(ss *engine.SwitchState) []flowintent.Intent {
		ss.Disuse(p.disused)

		for _, group := range p.slices {
			if _, err := ss.CreateSlice(group); err != nil {
				log.WithError(err).Error("slice creation rejected by engine after passing restapi validation")
			}
		}

		var intents []flowintent.Intent
		if p.learn != nil {
			learned, err := ss.ForceLearn(p.learn.tuple, p.learn.mac)
			if err != nil {
				log.WithError(err).Error("force-learn rejected by engine after passing restapi validation")
			}
			intents = append(intents, learned...)
		}
		return intents
	}
}
