package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ovslicer/ovslicer/internal/controller"
	"github.com/ovslicer/ovslicer/internal/engine"
)

// ConfigGet serves GET /slicer/api/v1/config/{dpid}, returning the
// switch's current slice configuration. Unlike Query, which would
// auto-vivify an empty SwitchState for any dpid, it consults Known first
// so a genuinely unseen switch 404s instead of reporting an empty
// configuration.
func ConfigGet(ctrl *controller.Controller, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		dpid, err := dpidVar(req)
		if err != nil {
			sendError(log, resp, req, err, http.StatusBadRequest)
			return
		}

		if !isKnown(ctrl, dpid) {
			sendError(log, resp, req, fmt.Errorf("switch %d is not known", dpid), http.StatusNotFound)
			return
		}

		slices := querySlices(ctrl, dpid)
		sendJSON(resp, http.StatusOK, slicesToResponse(slices))
	})
}

// ConfigPost serves POST /slicer/api/v1/config/{dpid}. The body is fully
// parsed and validated before anything is dispatched, so a malformed
// request 400s without mutating any state; a well-formed request against
// an unknown switch is accepted and buffered, applied when the switch
// next attaches (§7).
func ConfigPost(ctrl *controller.Controller, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		dpid, err := dpidVar(req)
		if err != nil {
			sendError(log, resp, req, err, http.StatusBadRequest)
			return
		}

		var body configRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			sendError(log, resp, req, errors.Wrap(err, "malformed request body"), http.StatusBadRequest)
			return
		}

		plan, err := parseConfigRequest(body)
		if err != nil {
			sendError(log, resp, req, err, http.StatusBadRequest)
			return
		}

		ctrl.Dispatch(controller.RestMutation{DPID: dpid, Apply: plan.apply(log)})

		slices := querySlices(ctrl, dpid)
		sendJSON(resp, http.StatusOK, slicesToResponse(slices))
	})
}

func querySlices(ctrl *controller.Controller, dpid uint64) []*engine.Slice {
	result := ctrl.Query(dpid, func(ss *engine.SwitchState) interface{} {
		return ss.Slices()
	})
	return result.([]*engine.Slice)
}

func isKnown(ctrl *controller.Controller, dpid uint64) bool {
	for _, known := range ctrl.Known() {
		if known == dpid {
			return true
		}
	}
	return false
}

func dpidVar(req *http.Request) (uint64, error) {
	s := mux.Vars(req)["dpid"]
	dpid, err := parseDPID(s)
	if err != nil {
		return 0, fmt.Errorf("invalid dpid %q: %w", s, err)
	}
	return dpid, nil
}
