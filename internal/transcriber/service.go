// Package transcriber orchestrates a transcription job: probe the inference
// server, extract audio from the source video, post it for transcription,
// and write the returned SRT next to the video.
package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"subgen/internal/config"
	"subgen/internal/history"
	"subgen/internal/language"
	"subgen/internal/logging"
	"subgen/internal/media/audio"
	"subgen/internal/media/ffprobe"
	"subgen/internal/services"
	"subgen/internal/services/stash"
	"subgen/internal/services/whisper"
	"subgen/internal/subtitles"
)

// SceneResolver resolves scenes to file paths via the host API.
type SceneResolver interface {
	FindScene(ctx context.Context, id int64) (*stash.Scene, error)
	LatestScene(ctx context.Context) (*stash.Scene, error)
}

// InferenceClient is the surface of the whisper server client the service
// needs.
type InferenceClient interface {
	Ping(ctx context.Context) error
	Transcribe(ctx context.Context, audioPath string, opts whisper.Options) (string, error)
	ServerURL() string
}

// Request describes one transcription job. Translate and Language arrive
// already resolved through the settings ladder.
type Request struct {
	VideoPath string
	SceneID   int64
	Source    history.Source
	Translate bool
	Language  string
	Overwrite bool
	DryRun    bool
}

// Result reports what a job did.
type Result struct {
	SubtitlePath string
	Skipped      bool
	SkipReason   string
	DryRun       bool
	CueCount     int
}

// Service runs transcription jobs. The history store is optional; a nil
// store disables job recording.
type Service struct {
	cfg       *config.Config
	inference InferenceClient
	store     *history.Store
	runner    whisper.CommandRunner
	logger    *slog.Logger
}

// New constructs a Service using the real command runner.
func New(cfg *config.Config, inference InferenceClient, store *history.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:       cfg,
		inference: inference,
		store:     store,
		runner:    whisper.RunCommand,
		logger:    logging.NewComponentLogger(logger, "transcriber"),
	}
}

// WithCommandRunner overrides how external binaries are invoked.
func (s *Service) WithCommandRunner(runner whisper.CommandRunner) *Service {
	if runner != nil {
		s.runner = runner
	}
	return s
}

// TranscribeScene resolves a scene to its primary file and transcribes it.
func (s *Service) TranscribeScene(ctx context.Context, resolver SceneResolver, sceneID int64, req Request) (*Result, error) {
	scene, err := resolver.FindScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	path := scene.PrimaryPath()
	if path == "" {
		return nil, services.Wrap(services.ErrNotFound, "transcriber", "resolve scene",
			fmt.Sprintf("scene %d has no file path", sceneID), nil)
	}
	req.VideoPath = path
	req.SceneID = sceneID
	return s.Transcribe(ctx, req)
}

// TranscribeLatest transcribes the most recently updated scene.
func (s *Service) TranscribeLatest(ctx context.Context, resolver SceneResolver, req Request) (*Result, error) {
	scene, err := resolver.LatestScene(ctx)
	if err != nil {
		return nil, err
	}
	path := scene.PrimaryPath()
	if path == "" {
		return nil, services.Wrap(services.ErrNotFound, "transcriber", "resolve latest scene",
			fmt.Sprintf("scene %s has no file path", scene.ID), nil)
	}
	req.VideoPath = path
	req.SceneID = scene.NumericID()
	return s.Transcribe(ctx, req)
}

// Transcribe runs one job end to end.
func (s *Service) Transcribe(ctx context.Context, req Request) (*Result, error) {
	logger := s.logger.With(logging.FieldSource, string(req.Source))
	if req.SceneID > 0 {
		logger = logger.With(logging.FieldSceneID, req.SceneID)
	}
	if req.Language != "" {
		logger = logger.With("language", language.DisplayName(req.Language))
	}

	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "transcriber", "stat source",
			fmt.Sprintf("video file %s", req.VideoPath), err)
	}

	sidecar := subtitles.SidecarPath(req.VideoPath)
	if !req.Overwrite && subtitles.HasSidecar(req.VideoPath) {
		logger.Info("subtitle already present, skipping", "subtitle", sidecar)
		return &Result{SubtitlePath: sidecar, Skipped: true, SkipReason: "sidecar exists"}, nil
	}

	if req.DryRun {
		selection, _ := s.probeSource(ctx, req)
		logger.Info("dry run, not transcribing",
			"source", req.VideoPath,
			"subtitle", sidecar,
			"server_url", s.inference.ServerURL(),
			"translate", req.Translate,
			"audio_stream", selection.Index,
		)
		s.record(ctx, req, sidecar, history.StatusDryRun, "")
		return &Result{SubtitlePath: sidecar, DryRun: true}, nil
	}

	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// The previous lock holder may have transcribed this very file while
	// we waited.
	if !req.Overwrite && subtitles.HasSidecar(req.VideoPath) {
		logger.Info("subtitle appeared while waiting for lock, skipping", "subtitle", sidecar)
		return &Result{SubtitlePath: sidecar, Skipped: true, SkipReason: "sidecar exists"}, nil
	}

	if err := s.inference.Ping(ctx); err != nil {
		return nil, err
	}

	selection, videoSeconds := s.probeSource(ctx, req)

	var job *history.Job
	if s.store != nil {
		job, err = s.store.Begin(ctx, &history.Job{
			SceneID:   req.SceneID,
			Source:    req.Source,
			VideoPath: req.VideoPath,
			ServerURL: s.inference.ServerURL(),
			Translate: req.Translate,
		})
		if err != nil {
			logger.Warn("failed to record job start", "error", err)
			job = nil
		}
	}
	started := time.Now()

	content, err := s.run(ctx, logger, req, selection, videoSeconds)
	if err != nil {
		s.finish(ctx, job, history.StatusFailed, err.Error())
		return nil, err
	}

	written, err := subtitles.WriteSidecar(req.VideoPath, content)
	if err != nil {
		wrapped := services.Wrap(services.ErrFileWrite, "transcriber", "write sidecar", sidecar, err)
		s.finish(ctx, job, history.StatusFailed, wrapped.Error())
		return nil, wrapped
	}

	if job != nil {
		job.SubtitlePath = written
	}
	s.finish(ctx, job, history.StatusCompleted, "")

	cues := subtitles.CueCount(content)
	logger.Info("subtitle written",
		"subtitle", written,
		"cues", cues,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return &Result{SubtitlePath: written, CueCount: cues}, nil
}

// run extracts audio and posts it, returning the SRT transcript.
func (s *Service) run(ctx context.Context, logger *slog.Logger, req Request, selection audio.Selection, videoSeconds float64) (string, error) {
	audioPath, cleanup, err := s.extract(ctx, logger, req, selection)
	if err != nil {
		return "", err
	}
	defer cleanup()

	opts := whisper.Options{Translate: req.Translate, Language: req.Language}
	content, err := s.inference.Transcribe(ctx, audioPath, opts)
	if err != nil {
		return "", err
	}

	if issues := subtitles.Validate(content, videoSeconds); len(issues) > 0 {
		return "", services.Wrap(services.ErrInference, "transcriber", "validate transcript",
			strings.Join(issues, ", "), nil)
	}
	return content, nil
}

func (s *Service) extract(ctx context.Context, logger *slog.Logger, req Request, selection audio.Selection) (string, func(), error) {
	tmp, err := os.CreateTemp("", "subgen-*.wav")
	if err != nil {
		return "", nil, services.Wrap(services.ErrFileWrite, "transcriber", "create temp audio", "", err)
	}
	audioPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(audioPath)
		return "", nil, services.Wrap(services.ErrFileWrite, "transcriber", "close temp audio", audioPath, err)
	}

	if err := whisper.ExtractAudio(ctx, s.runner, s.cfg.Whisper.FFmpegBinary, req.VideoPath, selection.Index, audioPath); err != nil {
		os.Remove(audioPath)
		return "", nil, err
	}

	cleanup := func() {
		if s.cfg.Whisper.KeepExtractedAudio {
			logger.Info("keeping extracted audio", "audio", audioPath)
			return
		}
		os.Remove(audioPath)
	}
	return audioPath, cleanup, nil
}

// probeSource inspects the container to pick an audio stream and learn the
// duration. Probe failures are not fatal; ffmpeg falls back to its default
// stream selection.
func (s *Service) probeSource(ctx context.Context, req Request) (audio.Selection, float64) {
	binary := s.cfg.Whisper.FFprobeBinary
	if binary == "" {
		return audio.Selection{Index: -1}, 0
	}
	result, err := ffprobe.Inspect(ctx, binary, req.VideoPath)
	if err != nil {
		s.logger.Warn("ffprobe failed, using default stream selection", "error", err)
		return audio.Selection{Index: -1}, 0
	}
	return audio.Select(result.AudioStreams(), req.Language), result.DurationSeconds()
}

// acquireLock serializes transcriptions across processes so concurrent hook
// deliveries do not hammer the inference server.
func (s *Service) acquireLock(ctx context.Context) (func(), error) {
	lockPath := s.cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrFileWrite, "transcriber", "ensure state directory", lockPath, err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, 500*time.Millisecond)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcriber", "acquire lock", lockPath, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "transcriber", "acquire lock",
			fmt.Sprintf("another transcription holds %s", lockPath), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (s *Service) record(ctx context.Context, req Request, sidecar string, status history.Status, errMessage string) {
	if s.store == nil {
		return
	}
	job := &history.Job{
		SceneID:      req.SceneID,
		Source:       req.Source,
		VideoPath:    req.VideoPath,
		SubtitlePath: sidecar,
		ServerURL:    s.inference.ServerURL(),
		Translate:    req.Translate,
		Status:       status,
	}
	if _, err := s.store.Begin(ctx, job); err != nil {
		s.logger.Warn("failed to record job", "error", err)
		return
	}
	if err := s.store.Finish(ctx, job, status, errMessage); err != nil {
		s.logger.Warn("failed to finish job record", "error", err)
	}
}

func (s *Service) finish(ctx context.Context, job *history.Job, status history.Status, errMessage string) {
	if s.store == nil || job == nil {
		return
	}
	if err := s.store.Finish(ctx, job, status, errMessage); err != nil {
		s.logger.Warn("failed to finish job record", "error", err)
	}
}
