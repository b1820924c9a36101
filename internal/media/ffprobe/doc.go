// Package ffprobe shells out to ffprobe and decodes its JSON output.
package ffprobe
