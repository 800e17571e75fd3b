// Package api is the external representation layer over the store and the
// insight deriver.
//
// Domain types never leave through here directly: outbound data is mapped
// to DTOs with camelCase JSON and millisecond timings, and inbound edits
// arrive as EditRequest values that are validated before they become
// segments. The CLI and export renderers both consume these DTOs.
package api
