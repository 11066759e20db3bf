// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

/*
Package supervisor provides process supervision for Marketlens using suture v4.

# Overview

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("marketlens")
	├── StoreSupervisor ("store-layer")
	│   └── store.GCService
	├── SyncSupervisor ("sync-layer")
	│   └── WarmTaskSupervisor ("warm-tasks")
	│       └── task:warm:<user> (one-shot, one per in-flight user)
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService

Long-running services are restarted with backoff when they fail. Warm-up tasks
are one-shot: TaskSupervisor adds them to the "warm-tasks" supervisor, refuses a
second task for the same key with ErrTaskRunning, and releases the key when the
task returns or panics. Tasks return suture.ErrDoNotRestart and are never
restarted.

Supervisor events are logged through sutureslog with a slog handler backed by
zerolog (see logging.NewSlogLogger).

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"),
	    supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
	    return err
	}

	tree.AddStoreService(store.NewGCService(db, cfg.Store.GCInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	warmer := sync.NewWarmer(orchestrator, tree.Tasks(), cfg.Sync.WarmDays)

	errCh := tree.ServeBackground(ctx)
*/
package supervisor
