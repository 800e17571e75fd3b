// Package preflight provides readiness checks for the directories, database,
// and external capabilities scribe depends on.
//
// "scribe doctor" runs RunAll and renders the results. "scribe transcribe"
// runs only the directory checks before opening a session; provider health
// needs the network and is left to doctor.
package preflight
