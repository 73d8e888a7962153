// Package preflight provides readiness checks for the directories and
// external binaries the conversion service depends on.
//
// The serve command runs RunAll before binding its listener and refuses to
// start when a directory check fails; missing binaries are logged as
// warnings because the server can still answer downloads without them. The
// status command renders the same results for operators.
package preflight
