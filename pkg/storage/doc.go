// Package storage persists the list of modules to load on startup.
//
// A Store reads and replaces one SavedState per namespace. FileStore keeps
// it in a YAML file next to the host's configuration. The subpackages
// provide shared backends for hosts that run on more than one machine:
//
//   - sqlstore: PostgreSQL or SQLite table
//   - redisstore: Redis list
//   - s3store: YAML object in an S3 bucket
//
// Backends with nothing saved return an empty state, so a fresh host
// starts with no saved modules rather than an error.
//
//	store, err := storage.NewFileStore("/var/lib/conduit/saved-plugins.yaml")
//	if err != nil {
//		return err
//	}
//	state, err := store.LoadState(ctx)
//	loaded := manager.LoadSaved(state.Plugins)
//
// Every backend is safe for concurrent use.
package storage
