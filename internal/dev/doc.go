// Package dev provides hot reload for `plowfinder serve`.
//
// This package implements:
//   - A watcher for the provider data file, built on fsnotify
//   - A Reloader that rebuilds the registry, optionally re-exports, and
//     swaps the server snapshot
//   - A WebSocket hub that tells browsers to reload or show an error
//
// # Usage
//
//	hub := dev.NewHub(logger)
//	reloader := dev.NewReloader(dev.ReloaderConfig{
//	    Load:  func() (*registry.Registry, error) { return registry.Load(path, registry.DefaultCities()) },
//	    Apply: srv.Swap,
//	    Hub:   hub,
//	})
//	watcher, err := dev.NewWatcher(path, func(string) { reloader.Reload(ctx) })
//	if err != nil {
//	    return err
//	}
//	watcher.Start(ctx)
//	defer watcher.Stop()
//
// # Hot Reload Protocol
//
// Browsers connect to /_plowfinder/reload and receive JSON messages:
//
//	{"type": "reload"}                 // reload the page
//	{"type": "error", "error": "..."}  // show the error overlay
//	{"type": "clear"}                  // hide the error overlay
//
// A failed reload leaves the previous snapshot in place, so the site keeps
// working while the data file is being edited.
package dev
