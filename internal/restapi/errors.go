package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

// sendError writes a JSON error body and logs the underlying cause at a
// level appropriate to status: client errors are not noteworthy, anything
// the server itself couldn't complete is.
func sendError(log *logrus.Logger, resp http.ResponseWriter, req *http.Request, err error, status int) {
	fields := logrus.Fields{
		"request_id": requestID(req.Context()),
		"status":     status,
	}
	if status >= http.StatusInternalServerError {
		log.WithFields(fields).WithError(err).Error("request failed")
	} else {
		log.WithFields(fields).WithError(err).Debug("request rejected")
	}

	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(status)
	_ = json.NewEncoder(resp).Encode(errorResponse{Error: errors.Cause(err).Error()})
}

func sendJSON(resp http.ResponseWriter, status int, v interface{}) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(status)
	_ = json.NewEncoder(resp).Encode(v)
}
