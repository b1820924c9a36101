package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subgen/internal/config"
	"subgen/internal/history"
	"subgen/internal/services"
	"subgen/internal/services/stash"
	"subgen/internal/services/whisper"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,000
Hello.

2
00:00:04,000 --> 00:00:06,000
World.
`

type fakeInference struct {
	pingErr         error
	transcript      string
	transcribeErr   error
	pingCalls       int
	transcribeCalls int
	lastOpts        whisper.Options
}

func (f *fakeInference) Ping(ctx context.Context) error {
	f.pingCalls++
	return f.pingErr
}

func (f *fakeInference) Transcribe(ctx context.Context, audioPath string, opts whisper.Options) (string, error) {
	f.transcribeCalls++
	f.lastOpts = opts
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeInference) ServerURL() string { return "http://127.0.0.1:9191/inference" }

type fakeResolver struct {
	scenes map[int64]*stash.Scene
	latest *stash.Scene
}

func (f *fakeResolver) FindScene(ctx context.Context, id int64) (*stash.Scene, error) {
	scene, ok := f.scenes[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return scene, nil
}

func (f *fakeResolver) LatestScene(ctx context.Context) (*stash.Scene, error) {
	if f.latest == nil {
		return nil, services.ErrNotFound
	}
	return f.latest, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Whisper.FFmpegBinary = "ffmpeg"
	cfg.Whisper.FFprobeBinary = ""
	return &cfg
}

// recordingRunner pretends to be ffmpeg: it notes the invocation and writes
// the output file named by the final argument.
type recordingRunner struct {
	calls [][]string
}

func (r *recordingRunner) run(ctx context.Context, name string, args ...string) error {
	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)
	dest := args[len(args)-1]
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

func newTestService(t *testing.T, cfg *config.Config, inference *fakeInference) (*Service, *recordingRunner, *history.Store) {
	t.Helper()
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	runner := &recordingRunner{}
	svc := New(cfg, inference, store, nil).WithCommandRunner(runner.run)
	return svc, runner, store
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestTranscribeWritesSidecar(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{transcript: sampleSRT}
	svc, runner, store := newTestService(t, cfg, inference)
	video := writeVideo(t)

	result, err := svc.Transcribe(t.Context(), Request{
		VideoPath: video,
		SceneID:   7,
		Source:    history.SourceHook,
		Translate: true,
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Skipped || result.DryRun {
		t.Fatalf("unexpected result flags: %+v", result)
	}
	if result.CueCount != 2 {
		t.Fatalf("cue count = %d, want 2", result.CueCount)
	}

	want := filepath.Join(filepath.Dir(video), "scene.srt")
	if result.SubtitlePath != want {
		t.Fatalf("subtitle path = %q, want %q", result.SubtitlePath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if string(data) != sampleSRT {
		t.Fatal("sidecar content mismatch")
	}

	if inference.pingCalls != 1 || inference.transcribeCalls != 1 {
		t.Fatalf("calls: ping=%d transcribe=%d", inference.pingCalls, inference.transcribeCalls)
	}
	if !inference.lastOpts.Translate {
		t.Fatal("translate option not passed through")
	}
	if len(runner.calls) != 1 || runner.calls[0][0] != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg calls: %v", runner.calls)
	}

	jobs, err := store.Recent(t.Context(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != history.StatusCompleted {
		t.Fatalf("history not recorded: %+v", jobs)
	}
	if jobs[0].SceneID != 7 || jobs[0].SubtitlePath != want {
		t.Fatalf("job fields: %+v", jobs[0])
	}
}

func TestTranscribeSkipsExistingSidecar(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{transcript: sampleSRT}
	svc, runner, _ := newTestService(t, cfg, inference)
	video := writeVideo(t)
	sidecar := filepath.Join(filepath.Dir(video), "scene.srt")
	if err := os.WriteFile(sidecar, []byte("existing"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	result, err := svc.Transcribe(t.Context(), Request{VideoPath: video, Source: history.SourceCLI})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected skip, got %+v", result)
	}
	if inference.pingCalls != 0 || len(runner.calls) != 0 {
		t.Fatal("skip should not touch the server or ffmpeg")
	}
	data, _ := os.ReadFile(sidecar)
	if string(data) != "existing" {
		t.Fatal("existing sidecar was overwritten")
	}
}

func TestTranscribeOverwriteReplacesSidecar(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{transcript: sampleSRT}
	svc, _, _ := newTestService(t, cfg, inference)
	video := writeVideo(t)
	sidecar := filepath.Join(filepath.Dir(video), "scene.srt")
	if err := os.WriteFile(sidecar, []byte("existing"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	result, err := svc.Transcribe(t.Context(), Request{VideoPath: video, Source: history.SourceCLI, Overwrite: true})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Skipped {
		t.Fatal("overwrite request was skipped")
	}
	data, _ := os.ReadFile(sidecar)
	if string(data) != sampleSRT {
		t.Fatal("sidecar not replaced")
	}
}

func TestDryRunSkipsSideEffects(t *testing.T) {
	cfg := testConfig(t)
	// An unreachable server must not matter: dry run stays offline.
	inference := &fakeInference{pingErr: services.ErrUnreachable}
	svc, runner, store := newTestService(t, cfg, inference)
	video := writeVideo(t)

	result, err := svc.Transcribe(t.Context(), Request{
		VideoPath: video,
		Source:    history.SourceTask,
		DryRun:    true,
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !result.DryRun {
		t.Fatalf("expected dry run result, got %+v", result)
	}
	if inference.pingCalls != 0 {
		t.Fatal("dry run must not probe the server")
	}
	if inference.transcribeCalls != 0 || len(runner.calls) != 0 {
		t.Fatal("dry run must not extract or post audio")
	}
	if _, err := os.Stat(result.SubtitlePath); !os.IsNotExist(err) {
		t.Fatal("dry run must not write a sidecar")
	}

	jobs, err := store.Recent(t.Context(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != history.StatusDryRun {
		t.Fatalf("dry run not recorded: %+v", jobs)
	}
}

// slowInference holds each Transcribe call open long enough for a second
// job to pile up on the lock.
type slowInference struct {
	transcript      string
	delay           time.Duration
	transcribeCalls atomic.Int32
}

func (f *slowInference) Ping(ctx context.Context) error { return nil }

func (f *slowInference) Transcribe(ctx context.Context, audioPath string, opts whisper.Options) (string, error) {
	f.transcribeCalls.Add(1)
	time.Sleep(f.delay)
	return f.transcript, nil
}

func (f *slowInference) ServerURL() string { return "http://127.0.0.1:9191/inference" }

func TestConcurrentDeliveriesTranscribeOnce(t *testing.T) {
	cfg := testConfig(t)
	inference := &slowInference{transcript: sampleSRT, delay: 300 * time.Millisecond}
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	runner := &recordingRunner{}
	video := writeVideo(t)
	req := Request{VideoPath: video, SceneID: 7, Source: history.SourceHook}

	results := make(chan *Result, 2)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each delivery arrives in its own process; give each its
			// own service (and runner) sharing the lock path.
			svc := New(cfg, inference, store, nil).WithCommandRunner(runner.run)
			result, err := svc.Transcribe(context.Background(), req)
			results <- result
			errs <- err
		}()
		time.Sleep(100 * time.Millisecond)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("transcribe: %v", err)
		}
	}
	if calls := inference.transcribeCalls.Load(); calls != 1 {
		t.Fatalf("transcribe calls = %d, want 1", calls)
	}
	var skipped int
	for result := range results {
		if result.Skipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Fatalf("skipped = %d, want exactly one delivery skipped", skipped)
	}
}

func TestUnreachableServerAborts(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{pingErr: services.ErrUnreachable}
	svc, runner, _ := newTestService(t, cfg, inference)
	video := writeVideo(t)

	_, err := svc.Transcribe(t.Context(), Request{VideoPath: video, Source: history.SourceHook})
	if !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("err = %v, want unreachable", err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("unreachable server must not trigger extraction")
	}
}

func TestEmptyTranscriptFails(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{transcript: ""}
	svc, _, store := newTestService(t, cfg, inference)
	video := writeVideo(t)

	_, err := svc.Transcribe(t.Context(), Request{VideoPath: video, Source: history.SourceHook})
	if !errors.Is(err, services.ErrInference) {
		t.Fatalf("err = %v, want inference error", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(video), "scene.srt")); !os.IsNotExist(statErr) {
		t.Fatal("empty transcript must not produce a sidecar")
	}

	jobs, err := store.Recent(t.Context(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != history.StatusFailed {
		t.Fatalf("failure not recorded: %+v", jobs)
	}
}

func TestMissingVideoFails(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{transcript: sampleSRT}
	svc, _, _ := newTestService(t, cfg, inference)

	_, err := svc.Transcribe(t.Context(), Request{
		VideoPath: filepath.Join(t.TempDir(), "gone.mp4"),
		Source:    history.SourceCLI,
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestTranscribeSceneResolvesPath(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{transcript: sampleSRT}
	svc, _, _ := newTestService(t, cfg, inference)
	video := writeVideo(t)

	resolver := &fakeResolver{scenes: map[int64]*stash.Scene{
		12: {ID: "12", Files: []stash.SceneFile{{Path: video}}},
	}}
	result, err := svc.TranscribeScene(t.Context(), resolver, 12, Request{Source: history.SourceTask})
	if err != nil {
		t.Fatalf("transcribe scene: %v", err)
	}
	if result.SubtitlePath != filepath.Join(filepath.Dir(video), "scene.srt") {
		t.Fatalf("unexpected sidecar %q", result.SubtitlePath)
	}
}

func TestTranscribeSceneWithoutFiles(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{transcript: sampleSRT}
	svc, _, _ := newTestService(t, cfg, inference)

	resolver := &fakeResolver{scenes: map[int64]*stash.Scene{
		3: {ID: "3"},
	}}
	_, err := svc.TranscribeScene(t.Context(), resolver, 3, Request{Source: history.SourceHook})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestTranscribeLatest(t *testing.T) {
	cfg := testConfig(t)
	inference := &fakeInference{transcript: sampleSRT}
	svc, _, _ := newTestService(t, cfg, inference)
	video := writeVideo(t)

	resolver := &fakeResolver{latest: &stash.Scene{ID: "99", Files: []stash.SceneFile{{Path: video}}}}
	result, err := svc.TranscribeLatest(t.Context(), resolver, Request{Source: history.SourceTask})
	if err != nil {
		t.Fatalf("transcribe latest: %v", err)
	}
	if result.SubtitlePath == "" {
		t.Fatal("expected sidecar path")
	}
}
