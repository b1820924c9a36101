// Command subgen generates SRT subtitles for a media host's scenes by
// posting extracted audio to a whisper.cpp inference server.
//
// It runs in two shapes: as a host plugin reading its payload from stdin
// (the run command), and as a standalone CLI for manual transcription,
// directory watching, and job history inspection.
package main
