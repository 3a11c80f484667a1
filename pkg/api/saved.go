package api

import (
	"net/http"
	"time"

	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/storage"
)

// getSaved handles GET /api/v1/saved
func (s *Server) getSaved(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.LoadState(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view := SavedView{Plugins: nonNil(state.Plugins)}
	if !s.run(w, r, func() error {
		view.Current = s.manager.SavedList()
		return nil
	}) {
		return
	}
	_ = httputil.WriteSuccess(w, view)
}

// saveCurrent handles PUT /api/v1/saved. It persists the modules that are
// loaded right now.
func (s *Server) saveCurrent(w http.ResponseWriter, r *http.Request) {
	var paths []string
	if !s.run(w, r, func() error {
		paths = s.manager.SavedList()
		return nil
	}) {
		return
	}
	state := &storage.SavedState{Plugins: nonNil(paths), UpdatedAt: time.Now().UTC()}
	if err := s.store.SaveState(r.Context(), state); err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, SavedView{Plugins: state.Plugins})
}

// restoreSaved handles POST /api/v1/saved/restore
func (s *Server) restoreSaved(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.LoadState(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := []PluginView{}
	ok := s.run(w, r, func() error {
		for _, p := range s.manager.LoadSaved(state.Plugins) {
			views = append(views, s.pluginView(p))
		}
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, views)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
