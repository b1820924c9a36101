package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SidecarPath returns the subtitle path for a video file: the source path
// with its extension replaced by .srt.
func SidecarPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + ".srt"
}

// HasSidecar reports whether a subtitle file already exists for the video.
func HasSidecar(videoPath string) bool {
	info, err := os.Stat(SidecarPath(videoPath))
	return err == nil && info.Mode().IsRegular()
}

// WriteSidecar writes the transcript next to the video. The write goes
// through a temp file in the same directory so a crash never leaves a
// truncated subtitle behind.
func WriteSidecar(videoPath, content string) (string, error) {
	target := SidecarPath(videoPath)
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".subgen-*.srt")
	if err != nil {
		return "", fmt.Errorf("create temp subtitle: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp subtitle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp subtitle: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename subtitle into place: %w", err)
	}
	return target, nil
}
