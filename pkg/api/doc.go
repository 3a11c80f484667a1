// Package api serves the debug and introspection HTTP API.
//
// The API is a window onto the control goroutine: every handler submits its
// work through a Caller and never touches the module manager, the protocol
// registry or the account list directly.
//
// Routes:
//
//	GET    /api/v1/plugins                     ?loaded=true&type=protocol
//	POST   /api/v1/plugins/probe               {"path": "..."}
//	POST   /api/v1/plugins/rescan              probe the search paths again
//	GET    /api/v1/plugins/graph               Cytoscape.js graph
//	GET    /api/v1/plugins/{id}
//	DELETE /api/v1/plugins/{id}
//	POST   /api/v1/plugins/{id}/load|unload|reload
//	GET    /api/v1/plugins/{id}/actions
//	POST   /api/v1/plugins/{id}/actions/{index}
//	GET    /api/v1/plugins/{id}/ipc
//	POST   /api/v1/plugins/{id}/ipc/{command}  {"args": [...]}
//	GET    /api/v1/protocols
//	GET    /api/v1/protocols/{id}
//	GET    /api/v1/accounts
//	POST   /api/v1/accounts
//	DELETE /api/v1/accounts/{id}
//	POST   /api/v1/accounts/{id}/connect|disconnect
//	PUT    /api/v1/accounts/{id}/status
//	GET    /api/v1/saved
//	PUT    /api/v1/saved
//	POST   /api/v1/saved/restore
//	GET    /api/v1/audit                       ?type=plugin.load&plugin=id&since=RFC3339&limit=n
//
// /metrics, the health routes and the audit trail are mounted when
// configured. With an audit trail every mutating request is recorded.
package api
