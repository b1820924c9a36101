package audio

import (
	"subgen/internal/language"
	"subgen/internal/media/ffprobe"
)

// Selection describes the audio stream chosen for transcription.
type Selection struct {
	Stream ffprobe.Stream
	// Index is the container stream index, or -1 when no audio exists and
	// ffmpeg should fall back to its default stream mapping.
	Index int
}

// Found reports whether a concrete audio stream was selected.
func (s Selection) Found() bool {
	return s.Index >= 0
}

// Select picks the audio stream to transcribe. Preference order: a stream
// matching the language hint, then the container's default-flagged stream,
// then the first audio stream.
func Select(streams []ffprobe.Stream, languageHint string) Selection {
	audio := make([]ffprobe.Stream, 0, len(streams))
	for _, stream := range streams {
		if stream.CodecType == "audio" {
			audio = append(audio, stream)
		}
	}
	if len(audio) == 0 {
		return Selection{Index: -1}
	}

	if hint := language.ToISO2(languageHint); hint != "" {
		for _, stream := range audio {
			if language.ToISO2(stream.Language()) == hint {
				return Selection{Stream: stream, Index: stream.Index}
			}
		}
	}

	for _, stream := range audio {
		if stream.DefaultFlagged() {
			return Selection{Stream: stream, Index: stream.Index}
		}
	}

	return Selection{Stream: audio[0], Index: audio[0].Index}
}
