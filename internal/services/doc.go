// Package services holds shared error classification for the external
// collaborators this plugin talks to: the host GraphQL API, the inference
// server, and the local toolchain (ffmpeg, filesystem).
package services
