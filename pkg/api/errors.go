package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/platinummonkey/conduit/pkg/accounts"
	"github.com/platinummonkey/conduit/pkg/async"
	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/observability"
	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/protocol"
)

var (
	errPluginNotFound = errors.New("plugin not found")
	errActionNotFound = errors.New("action not found")
)

// statusFor maps core errors to HTTP status codes.
var statusFor = []struct {
	err    error
	status int
}{
	{async.ErrLoopStopped, http.StatusServiceUnavailable},
	{context.Canceled, http.StatusServiceUnavailable},
	{context.DeadlineExceeded, http.StatusServiceUnavailable},

	{errPluginNotFound, http.StatusNotFound},
	{errActionNotFound, http.StatusNotFound},
	{plugins.ErrNotFound, http.StatusNotFound},
	{plugins.ErrIPCNotFound, http.StatusNotFound},
	{accounts.ErrAccountNotFound, http.StatusNotFound},
	{protocol.ErrNotRegistered, http.StatusNotFound},

	{plugins.ErrIPCArgs, http.StatusBadRequest},
	{plugins.ErrNoLoader, http.StatusBadRequest},
	{plugins.ErrNoEntry, http.StatusBadRequest},
	{plugins.ErrEntryFailed, http.StatusBadRequest},
	{plugins.ErrUnrecognizedMagic, http.StatusBadRequest},
	{plugins.ErrProtocolContract, http.StatusBadRequest},
	{plugins.ErrLoaderContract, http.StatusBadRequest},
	{plugins.ErrOpen, http.StatusBadRequest},
	{accounts.ErrInvalidAccount, http.StatusBadRequest},
	{accounts.ErrUnknownStatus, http.StatusBadRequest},

	{plugins.ErrUnloadable, http.StatusConflict},
	{plugins.ErrNotLoaded, http.StatusConflict},
	{plugins.ErrDependencyNotFound, http.StatusConflict},
	{plugins.ErrDependencyFailed, http.StatusConflict},
	{plugins.ErrDependencyCycle, http.StatusConflict},
	{plugins.ErrLoadHookFailed, http.StatusConflict},
	{plugins.ErrUnloadHookFailed, http.StatusConflict},
	{plugins.ErrDuplicateProtocol, http.StatusConflict},
	{plugins.ErrProtocolReleased, http.StatusConflict},
	{plugins.ErrDestroyed, http.StatusConflict},
	{accounts.ErrDuplicateAccount, http.StatusConflict},
	{accounts.ErrProtocolNotFound, http.StatusConflict},
	{accounts.ErrNotConnected, http.StatusConflict},
	{protocol.ErrNotSupported, http.StatusNotImplemented},
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			httputil.WriteError(w, m.status, err)
			return
		}
	}
	observability.FromContext(r.Context(), s.log).WithError(err).Error("Request failed")
	httputil.WriteInternalError(w, err)
}
