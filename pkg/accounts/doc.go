// Package accounts tracks user accounts and their connections.
//
// Manager drives logins and logouts through the protocol dispatch layer and
// implements protocol.AccountSource, so removing a protocol from the registry
// force-disconnects the accounts using it.
package accounts
