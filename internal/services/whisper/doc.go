// Package whisper is a client for a whisper.cpp inference server.
//
// The server is probed for reachability before any work starts so the
// operator gets a clear message distinguishing "server down" from a failed
// transcription. Audio is sent as multipart form data with
// response_format=srt; the response body is the finished subtitle text.
package whisper
