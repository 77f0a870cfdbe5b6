// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog provides atomic run-marker file operations for
// detecting whether the daemon's previous run exited cleanly.
//
// The workflow:
//
//  1. On startup, cmd/jasperd calls [Check]. If no marker is found,
//     it is stale, or it records an unclean shutdown, the previous run
//     crashed or was killed and the significance baseline cannot be
//     trusted — the daemon forces its first tick.
//  2. cmd/jasperd then calls [Write] with CleanShutdown: false, so a
//     crash before graceful shutdown is detected on the next start.
//  3. On graceful shutdown, the lifecycle controller calls [Write]
//     with CleanShutdown: true.
//
// [Clear] removes a marker file; the daemon itself does not call it.
//
// The marker file is written atomically (write to temporary file,
// fsync, rename into place, fsync parent directory) so readers never
// see a partial or corrupt marker. [Check] includes staleness
// detection: it ignores markers older than a configurable maximum age.
//
// This package has no dependencies on other internal packages.
package watchdog
