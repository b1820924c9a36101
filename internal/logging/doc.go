// Package logging builds slog loggers for the CLI and plugin entry points.
//
// Three handler flavours are provided:
//   - console: human-readable single-line output for interactive use
//   - json: structured output for log files
//   - plugin: the host's plugin log protocol (level-framed lines on stderr)
//
// The plugin handler frames each line as \x01<level>\x02<message> so the
// host can route plugin output into its task log at the right level.
package logging
