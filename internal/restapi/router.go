// Package restapi is the HTTP façade described in the external interfaces:
// it translates JSON requests into internal/controller calls and
// serialises configuration and diagnostics back out. It holds no engine
// state of its own.
package restapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ovslicer/ovslicer/internal/controller"
	"github.com/ovslicer/ovslicer/internal/netlinkstats"
	"github.com/ovslicer/ovslicer/ovs"
)

const apiPrefix = "/slicer/api/v1"

// NewRouter builds the full HTTP handler for ofslicerd: the per-switch
// config endpoint backed by ctrl, and the diagnostics endpoints backed
// directly by client against bridge. vports may be nil when the netlink
// vport-counter adapter isn't available on this host; its route then
// answers 503 instead of panicking.
func NewRouter(ctrl *controller.Controller, client *ovs.Client, bridge string, vports *netlinkstats.Collector, log *logrus.Logger) http.Handler {
	router := mux.NewRouter().SkipClean(true)
	router.Use(withRequestID(log))

	router.Handle(apiPrefix+"/config/{dpid}", ConfigGet(ctrl, log)).Methods(http.MethodGet)
	router.Handle(apiPrefix+"/config/{dpid}", ConfigPost(ctrl, log)).Methods(http.MethodPost)

	router.Handle(apiPrefix+"/diag/{dpid}/trace", DiagTrace(client, bridge, log)).Methods(http.MethodGet)
	router.Handle(apiPrefix+"/diag/{dpid}/ports", DiagPorts(client, bridge, log)).Methods(http.MethodGet)
	router.Handle(apiPrefix+"/diag/{dpid}/vports", DiagVports(vports, log)).Methods(http.MethodGet)

	return router
}

func parseDPID(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}
