// Package jobs runs the background work of the Renunganku API.
//
//   - VideoProcessor: bounded worker pool that transcodes uploads, with
//     retries and exponential backoff
//   - StoryCleanup: hourly removal of expired stories
//   - SessionCleanup: daily removal of stale login sessions
//   - BlogContentWatcher: imports blog content files and reloads them on change
//
// Every job exposes Start, Stop, RunOnce and IsRunning. Failures are logged
// with a "job" attribute and never stop the server.
package jobs
