// Package language normalizes the language codes that flow between the
// config, the container tags, and the inference server.
package language
