package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/conduit/pkg/accounts"
	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/protocol"
)

func (s *Server) findAccount(r *http.Request) (*protocol.Account, error) {
	id := mux.Vars(r)["id"]
	acct, ok := s.accounts.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", accounts.ErrAccountNotFound, id)
	}
	return acct, nil
}

// listAccounts handles GET /api/v1/accounts
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	views := []AccountView{}
	ok := s.run(w, r, func() error {
		for _, a := range s.accounts.All() {
			views = append(views, accountView(a))
		}
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, views)
	}
}

// createAccount handles POST /api/v1/accounts
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	var view AccountView
	ok := s.run(w, r, func() error {
		acct, err := s.accounts.Add(req.Username, req.ProtocolID)
		if err != nil {
			return err
		}
		acct.Password = req.Password
		acct.Alias = req.Alias
		for k, v := range req.Settings {
			acct.Settings[k] = v
		}
		view = accountView(acct)
		return nil
	})
	if ok {
		_ = httputil.WriteJSON(w, http.StatusCreated, view)
	}
}

// deleteAccount handles DELETE /api/v1/accounts/{id}
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.run(w, r, func() error { return s.accounts.Remove(id) }) {
		httputil.WriteNoContent(w)
	}
}

// connectAccount handles POST /api/v1/accounts/{id}/connect
func (s *Server) connectAccount(w http.ResponseWriter, r *http.Request) {
	s.accountOp(w, r, func(acct *protocol.Account) error {
		return s.accounts.Connect(r.Context(), acct)
	})
}

// disconnectAccount handles POST /api/v1/accounts/{id}/disconnect
func (s *Server) disconnectAccount(w http.ResponseWriter, r *http.Request) {
	s.accountOp(w, r, s.accounts.Disconnect)
}

// setAccountStatus handles PUT /api/v1/accounts/{id}/status
func (s *Server) setAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Status == "" {
		httputil.WriteBadRequest(w, "status is required")
		return
	}
	s.accountOp(w, r, func(acct *protocol.Account) error {
		return s.accounts.SetStatus(acct, req.Status, req.Message)
	})
}

func (s *Server) accountOp(w http.ResponseWriter, r *http.Request, fn func(*protocol.Account) error) {
	var view AccountView
	ok := s.run(w, r, func() error {
		acct, err := s.findAccount(r)
		if err != nil {
			return err
		}
		if err := fn(acct); err != nil {
			return err
		}
		view = accountView(acct)
		return nil
	})
	if ok {
		_ = httputil.WriteSuccess(w, view)
	}
}
