// Package preflight provides readiness checks for the filesystem paths and
// external tools Shotbuddy depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before opening the project so a missing or
//     read-only directory is reported with a clear message.
//   - The CLI "shotbuddy status" command uses CheckSystemDeps and RunAll to
//     display health even when the daemon is offline.
package preflight
