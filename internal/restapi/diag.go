package restapi

import (
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ovslicer/ovslicer/internal/netlinkstats"
	"github.com/ovslicer/ovslicer/ovs"
)

// taggedVLAN mirrors endpoint.taggedBit: the OXM_OF_VLAN_VID "present" bit
// OR'd into a tagged vlan_vid match or set-field value.
const taggedVLAN = 0x1000

// DiagTrace serves GET /slicer/api/v1/diag/{dpid}/trace, running
// ovs-appctl ofproto/trace against bridge for a hypothetical packet
// described by query parameters, so an operator can see how the current
// flow table would handle it without sending real traffic.
//
// Recognised query parameters: in_port (required), vlan, inner, eth_src,
// eth_dst. vlan/inner, when present, are matched against the tagged
// ingress table the same way a real packet's tags would be.
func DiagTrace(client *ovs.Client, bridge string, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		if _, err := dpidVar(req); err != nil {
			sendError(log, resp, req, err, http.StatusBadRequest)
			return
		}

		q := req.URL.Query()

		inPort, err := strconv.Atoi(q.Get("in_port"))
		if err != nil {
			sendError(log, resp, req, errInvalidQuery("in_port", err), http.StatusBadRequest)
			return
		}

		// vlan/inner follow the same encoding IngressMatch uses for a
		// 2- or 3-tuple endpoint: the outer tag rides the metadata
		// register, the inner tag is a tagged vlan_vid match.
		var matches []ovs.Match
		if v := q.Get("vlan"); v != "" {
			vlan, err := strconv.Atoi(v)
			if err != nil {
				sendError(log, resp, req, errInvalidQuery("vlan", err), http.StatusBadRequest)
				return
			}
			matches = append(matches, ovs.Metadata(uint64(vlan)))
		}
		if v := q.Get("inner"); v != "" {
			inner, err := strconv.Atoi(v)
			if err != nil {
				sendError(log, resp, req, errInvalidQuery("inner", err), http.StatusBadRequest)
				return
			}
			matches = append(matches, ovs.DataLinkVLAN(taggedVLAN|inner))
		}
		if v := q.Get("eth_src"); v != "" {
			mac, err := net.ParseMAC(v)
			if err != nil {
				sendError(log, resp, req, errInvalidQuery("eth_src", err), http.StatusBadRequest)
				return
			}
			matches = append(matches, ovs.DataLinkSource(mac))
		}
		if v := q.Get("eth_dst"); v != "" {
			mac, err := net.ParseMAC(v)
			if err != nil {
				sendError(log, resp, req, errInvalidQuery("eth_dst", err), http.StatusBadRequest)
				return
			}
			matches = append(matches, ovs.DataLinkDestination(mac))
		}

		trace, err := client.OpenFlow.Trace(bridge, inPort, matches)
		if err != nil {
			sendError(log, resp, req, err, http.StatusInternalServerError)
			return
		}
		sendJSON(resp, http.StatusOK, trace)
	})
}

// DiagPorts serves GET /slicer/api/v1/diag/{dpid}/ports, returning
// ovs-ofctl's per-port counters for bridge.
func DiagPorts(client *ovs.Client, bridge string, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		if _, err := dpidVar(req); err != nil {
			sendError(log, resp, req, err, http.StatusBadRequest)
			return
		}

		stats, err := client.OpenFlow.DumpPorts(bridge)
		if err != nil {
			sendError(log, resp, req, err, http.StatusInternalServerError)
			return
		}
		sendJSON(resp, http.StatusOK, stats)
	})
}

// DiagVports serves GET /slicer/api/v1/diag/{dpid}/vports, returning
// kernel datapath vport counters read over generic netlink. If collector
// is nil (the adapter is disabled or unavailable on this host), it
// answers 503 rather than attempting anything.
func DiagVports(collector *netlinkstats.Collector, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		if _, err := dpidVar(req); err != nil {
			sendError(log, resp, req, err, http.StatusBadRequest)
			return
		}

		if collector == nil {
			sendError(log, resp, req, netlinkstats.ErrUnavailable, http.StatusServiceUnavailable)
			return
		}

		stats, err := collector.Snapshot()
		if err != nil {
			sendError(log, resp, req, err, http.StatusInternalServerError)
			return
		}
		sendJSON(resp, http.StatusOK, stats)
	})
}

func errInvalidQuery(param string, err error) error {
	return &queryError{param: param, err: err}
}

type queryError struct {
	param string
	err   error
}

func (e *queryError) Error() string { return "invalid " + e.param + " parameter: " + e.err.Error() }
func (e *queryError) Unwrap() error { return e.err }
