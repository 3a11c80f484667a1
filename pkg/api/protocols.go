package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/protocol"
)

// listProtocols handles GET /api/v1/protocols
func (s *Server) listProtocols(w http.ResponseWriter, r *http.Request) {
	views := []ProtocolView{}
	ok := s.run(w, r, func() error {
		for _, p := range s.manager.Registry().All() {
			views = append(views, s.protocolView(p))
		}
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, views)
	}
}

// getProtocol handles GET /api/v1/protocols/{id}
func (s *Server) getProtocol(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var view ProtocolView
	ok := s.run(w, r, func() error {
		p, found := s.manager.Registry().Lookup(id)
		if !found {
			return fmt.Errorf("%w: %s", protocol.ErrNotRegistered, id)
		}
		view = s.protocolView(p)
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, view)
	}
}
