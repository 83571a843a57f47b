// Package logstore keeps a bounded, persisted log of classified errors and
// user actions for the running process.
//
// Entries are appended in arrival order and the oldest are evicted once
// MaxEntries is reached. After every mutation the most recent
// PersistEntries are written to a storage.Store under StorageKey, and
// persistence failures are only logged. Error-level entries matching a
// critical pattern feed a burst detector that raises an Alerter when the
// same component fails with the same message repeatedly in a short window.
//
//	st := logstore.New(cfg, kv, logstore.WithAlerter(bridge))
//	if err := st.Init(ctx); err != nil { ... }
//	defer st.Dispose(ctx)
//	entry := st.LogError(ctx, err, errors.Context{Component: "VideoList"})
package logstore
