// Package dashboard provides the embedded web UI for pingboard.
//
// The page lays hosts out in a three-column grid, one card per host with its
// name, address, latency and a coloured indicator (green online, red offline,
// grey unknown). It loads the snapshot and then follows "/api/sse". Pressing
// F toggles fullscreen.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
// The server replaces every "{{.Title}}" in index.html with the configured
// title before serving it.
//
//go:embed assets/*
var Assets embed.FS
