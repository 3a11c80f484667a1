// Package protocol defines the protocol object, its optional capability
// tables and the registry that owns protocol lifetime.
//
// A protocol supplies a mandatory Base implementation (ListIcon, StatusTypes,
// Login, Close) and any subset of the optional groups: Client, Server, IM,
// Chat, Privacy, Xfer, Roomlist, Attention, Media and Factory. Implementations
// may embed the matching Unimplemented type to pick up default behaviour for
// the entries they do not provide.
//
// Callers never check which tables a protocol carries. The functions in
// dispatch.go look up the table and fall back to the documented default when
// it is absent:
//
//	n := protocol.SendIM(p, conn, "bob", "hi", protocol.MessageSend)
//	// n == -1 when p has no IM table
//
// # Registry
//
// Registry maps protocol ids to protocols. Register rejects duplicate ids.
// Remove force-disconnects every active account on the protocol before
// releasing it:
//
//	reg := protocol.NewRegistry(log)
//	reg.SetAccountSource(accountManager)
//	if err := reg.Register(p); err != nil { ... }
//
// Like the rest of the core, Registry is not safe for concurrent use. It is
// driven from a single control goroutine.
package protocol
