// Package stash is a minimal GraphQL client for the host media-library API.
//
// Only the operations the plugin needs are implemented: resolving a scene
// to its primary file path, finding the most recently updated scene, and
// reading saved plugin settings out of the host configuration.
package stash
