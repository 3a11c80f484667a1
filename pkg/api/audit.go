package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/conduit/pkg/audit"
	"github.com/platinummonkey/conduit/pkg/httputil"
)

// AuditLog is an audit trail that can be read back.
type AuditLog interface {
	audit.Logger
	audit.Reader
}

// listAudit handles GET /api/v1/audit?type=plugin.load,plugin.unload&plugin=id&since=RFC3339&limit=n
func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		PluginID: httputil.ParseQueryString(r, "plugin", ""),
		Limit:    100,
	}
	if types := httputil.ParseQueryString(r, "type", ""); types != "" {
		for _, t := range strings.Split(types, ",") {
			filter.Types = append(filter.Types, audit.EventType(strings.TrimSpace(t)))
		}
	}
	if since := httputil.ParseQueryString(r, "since", ""); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			httputil.WriteBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = ts
	}
	if limit := httputil.ParseQueryString(r, "limit", ""); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			httputil.WriteBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	events, err := s.audit.Read(filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}
	_ = httputil.WriteSuccess(w, events)
}
