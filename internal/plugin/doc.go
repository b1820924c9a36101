// Package plugin parses the host's exec-plugin payload and writes the
// response envelope.
//
// The host launches the plugin binary with a single JSON document on stdin:
// a server_connection block describing how to reach its GraphQL API, an
// args block carrying the task arguments (and hookContext for hook
// deliveries), and the saved plugin settings in either map or key/value
// list form. The plugin answers with {"output": ...} or {"error": ...} on
// stdout; everything on stderr is treated as log traffic.
package plugin
