package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/conduit/pkg/async"
	"github.com/platinummonkey/conduit/pkg/dependencies"
	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/plugins"
)

// findPlugin must run on the control goroutine.
func (s *Server) findPlugin(r *http.Request) (*plugins.Plugin, error) {
	id := mux.Vars(r)["id"]
	p := s.manager.Find(id)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", errPluginNotFound, id)
	}
	return p, nil
}

// listPlugins handles GET /api/v1/plugins
func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	loadedOnly, err := httputil.ParseQueryBool(r, "loaded", false)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid loaded parameter")
		return
	}
	kind := httputil.ParseQueryString(r, "type", "")

	views := []PluginView{}
	ok := s.run(w, r, func() error {
		list := s.manager.All()
		if loadedOnly {
			list = s.manager.Loaded()
		}
		for _, p := range list {
			if kind != "" && p.Type().String() != kind {
				continue
			}
			views = append(views, s.pluginView(p))
		}
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, views)
	}
}

// getPlugin handles GET /api/v1/plugins/{id}
func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	var view PluginView
	ok := s.run(w, r, func() error {
		p, err := s.findPlugin(r)
		if err != nil {
			return err
		}
		view = s.pluginView(p)
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, view)
	}
}

// probePlugin handles POST /api/v1/plugins/probe
func (s *Server) probePlugin(w http.ResponseWriter, r *http.Request) {
	var req ProbeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Path == "" {
		httputil.WriteBadRequest(w, "path is required")
		return
	}

	var view PluginView
	ok := s.run(w, r, func() error {
		p, err := s.manager.ProbeAndQueue(req.Path)
		if err != nil {
			return err
		}
		view = s.pluginView(p)
		return nil
	})
	if ok {
		_ = httputil.WriteJSON(w, http.StatusCreated, view)
	}
}

const rescanTimeout = 2 * time.Minute

// rescanPlugins handles POST /api/v1/plugins/rescan. The search paths are
// probed again in the background; the request returns at once.
func (s *Server) rescanPlugins(w http.ResponseWriter, r *http.Request) {
	async.SafeGo(context.WithoutCancel(r.Context()), s.log, rescanTimeout, "plugin rescan", func(ctx context.Context) error {
		return s.loop.Call(ctx, func() error {
			s.manager.ProbeAll("")
			return nil
		})
	})
	_ = httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "rescanning"})
}

// loadPlugin handles POST /api/v1/plugins/{id}/load
func (s *Server) loadPlugin(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(p *plugins.Plugin) (*plugins.Plugin, error) {
		return p, s.manager.Load(p)
	})
}

// unloadPlugin handles POST /api/v1/plugins/{id}/unload
func (s *Server) unloadPlugin(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(p *plugins.Plugin) (*plugins.Plugin, error) {
		return p, s.manager.Unload(p)
	})
}

// reloadPlugin handles POST /api/v1/plugins/{id}/reload
func (s *Server) reloadPlugin(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.manager.Reload)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, fn func(*plugins.Plugin) (*plugins.Plugin, error)) {
	var view PluginView
	ok := s.run(w, r, func() error {
		p, err := s.findPlugin(r)
		if err != nil {
			return err
		}
		p, err = fn(p)
		if err != nil {
			return err
		}
		view = s.pluginView(p)
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, view)
	}
}

// destroyPlugin handles DELETE /api/v1/plugins/{id}
func (s *Server) destroyPlugin(w http.ResponseWriter, r *http.Request) {
	ok := s.run(w, r, func() error {
		p, err := s.findPlugin(r)
		if err != nil {
			return err
		}
		return s.manager.Destroy(p)
	})
	if ok {
		httputil.WriteNoContent(w)
	}
}

// listActions handles GET /api/v1/plugins/{id}/actions
func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	views := []ActionView{}
	ok := s.run(w, r, func() error {
		p, err := s.findPlugin(r)
		if err != nil {
			return err
		}
		for i, a := range s.manager.Actions(p) {
			views = append(views, ActionView{Index: i, Label: a.Label})
		}
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, views)
	}
}

// runAction handles POST /api/v1/plugins/{id}/actions/{index}
func (s *Server) runAction(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		httputil.WriteBadRequest(w, "invalid action index")
		return
	}
	ok := s.run(w, r, func() error {
		p, err := s.findPlugin(r)
		if err != nil {
			return err
		}
		actions := s.manager.Actions(p)
		if index >= len(actions) || actions[index].Callback == nil {
			return fmt.Errorf("%w: %d on %s", errActionNotFound, index, p.ID())
		}
		actions[index].Callback(p)
		return nil
	})
	if ok {
		httputil.WriteNoContent(w)
	}
}

// listCommands handles GET /api/v1/plugins/{id}/ipc
func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	views := []CommandView{}
	ok := s.run(w, r, func() error {
		p, err := s.findPlugin(r)
		if err != nil {
			return err
		}
		for _, name := range s.manager.IPCCommands(p) {
			params, ret, err := s.manager.IPCParams(p, name)
			if err != nil {
				return err
			}
			v := CommandView{Name: name, Params: []string{}, Return: ret.String()}
			for _, pt := range params {
				v.Params = append(v.Params, pt.String())
			}
			views = append(views, v)
		}
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, views)
	}
}

// callCommand handles POST /api/v1/plugins/{id}/ipc/{command}
func (s *Server) callCommand(w http.ResponseWriter, r *http.Request) {
	var req IPCRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	name := mux.Vars(r)["command"]

	var result any
	ok := s.run(w, r, func() error {
		p, err := s.findPlugin(r)
		if err != nil {
			return err
		}
		params, _, err := s.manager.IPCParams(p, name)
		if err != nil {
			return err
		}
		result, err = s.manager.IPCCall(p, name, coerceArgs(params, req.Args)...)
		return err
	})
	if !ok {
		return
	}
	if err, isErr := result.(error); isErr {
		result = err.Error()
	}
	_ = httputil.WriteSuccess(w, IPCResponse{Result: result})
}

// coerceArgs converts JSON numbers to the integer types a command
// declares. Anything that does not convert cleanly is passed through and
// rejected by the command's marshaller.
func coerceArgs(params []plugins.ValueType, args []any) []any {
	out := make([]any, len(args))
	copy(out, args)
	for i := range out {
		if i >= len(params) {
			break
		}
		f, isFloat := out[i].(float64)
		if !isFloat || f != math.Trunc(f) {
			continue
		}
		switch params[i] {
		case plugins.ValueInt:
			if f >= math.MinInt && f <= math.MaxInt {
				out[i] = int(f)
			}
		case plugins.ValueInt64:
			if f >= math.MinInt64 && f <= math.MaxInt64 {
				out[i] = int64(f)
			}
		}
	}
	return out
}

// pluginGraph handles GET /api/v1/plugins/graph
func (s *Server) pluginGraph(w http.ResponseWriter, r *http.Request) {
	var graph dependencies.CytoscapeGraph
	ok := s.run(w, r, func() error {
		graph = s.manager.Graph().Cytoscape(func(key string) (string, string) {
			if p, found := s.manager.Lookup(key); found {
				return p.Name(), p.Type().String()
			}
			return key, ""
		})
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, graph)
	}
}
