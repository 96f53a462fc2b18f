// Package tts serializes text-to-speech jobs onto a single output file. The
// overlay polls the file's attributes to detect new audio, so the contract is
// strict: at most one synthesis at a time, and a new file never replaces the
// current one before the current one's playback window has elapsed.
package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbera/sharkbot/telemetry"
)

const (
	// playbackBuffer pads every playback window so the overlay finishes the
	// clip before the file changes underneath it.
	playbackBuffer = 3 * time.Second

	// Words-per-minute fallback when the audio duration can't be measured.
	estimateWPM = 150
	minEstimate = 2 * time.Second
	maxEstimate = 30 * time.Second

	maxAttempts = 3
	retryDelay  = time.Second
)

// Synthesizer renders text to MP3 bytes. The default is the Google Translate
// endpoint; tests stub it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Job is one queued utterance.
type Job struct {
	Text       string
	EnqueuedAt time.Time
	done       chan error
}

// FileStat is the overlay-facing view of the output file, computed from
// filesystem metadata only.
type FileStat struct {
	Exists  bool
	ModTime time.Time
	Size    int64
}

// Serializer owns the output path. Jobs are strictly FIFO; there is no
// priority and duplicate text is not coalesced.
type Serializer struct {
	synth   Synthesizer
	outPath string
	queue   chan *Job

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// playbackReady is when the current file's window ends; zero until the
	// first write (or recovered from file mtime at startup).
	playbackReady time.Time
}

// NewSerializer builds a serializer writing to outPath. Call Start to launch
// the consumer.
func NewSerializer(synth Synthesizer, outPath string, queueSize int) *Serializer {
	if queueSize <= 0 {
		queueSize = 16
	}
	s := &Serializer{
		synth:   synth,
		outPath: outPath,
		queue:   make(chan *Job, queueSize),
		now:     time.Now,
		sleep:   sleepCtx,
	}
	// A file left over from a previous run still owns its playback window.
	if st, err := os.Stat(outPath); err == nil {
		dur, derr := measureMP3(outPath)
		if derr != nil {
			dur = minEstimate
		}
		s.playbackReady = st.ModTime().Add(dur + playbackBuffer)
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Enqueue adds a job and returns a channel that yields the job's final error
// (nil on success). The channel is buffered so the result is never lost if
// the caller stops listening.
func (s *Serializer) Enqueue(text string) (<-chan error, error) {
	j := &Job{Text: text, EnqueuedAt: s.now(), done: make(chan error, 1)}
	select {
	case s.queue <- j:
		telemetry.TTSJobsEnqueued.Inc()
		telemetry.SetTTSQueueDepth(len(s.queue))
		return j.done, nil
	default:
		return nil, fmt.Errorf("tts queue full")
	}
}

// Start runs the single consumer until ctx is cancelled. Exactly one Start
// per serializer.
func (s *Serializer) Start(ctx context.Context) {
	slog.Info("tts serializer started", slog.String("out", s.outPath), slog.String("component", "tts"))
	for {
		select {
		case <-ctx.Done():
			slog.Info("tts serializer stopped", slog.String("component", "tts"))
			return
		case j := <-s.queue:
			telemetry.SetTTSQueueDepth(len(s.queue))
			err := s.process(ctx, j)
			if err != nil && ctx.Err() == nil {
				telemetry.TTSJobsFailed.Inc()
				slog.Warn("tts job failed", slog.Any("err", err), slog.String("component", "tts"))
			}
			j.done <- err
		}
	}
}

// process waits out the prior playback window, synthesizes with retries, and
// atomically publishes the new file.
func (s *Serializer) process(ctx context.Context, j *Job) error {
	if wait := s.playbackReady.Sub(s.now()); wait > 0 {
		telemetry.TTSQueueWait.Observe(wait.Seconds())
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}

	var audio []byte
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		telemetry.TimeFunc(telemetry.TTSSynthDuration, func() {
			audio, err = s.synth.Synthesize(ctx, j.Text)
		})
		if err == nil {
			break
		}
		if attempt < maxAttempts {
			// linear backoff: 1s, 2s
			if serr := s.sleep(ctx, time.Duration(attempt)*retryDelay); serr != nil {
				return serr
			}
		}
	}
	if err != nil {
		return fmt.Errorf("synthesize after %d attempts: %w", maxAttempts, err)
	}

	if err := s.publish(audio); err != nil {
		return err
	}

	dur, derr := measureMP3(s.outPath)
	if derr != nil {
		dur = estimateDuration(j.Text)
	}
	s.playbackReady = s.now().Add(dur + playbackBuffer)
	telemetry.TTSJobsWritten.Inc()
	slog.Debug("tts file written", slog.Duration("playback", dur), slog.String("component", "tts"))
	return nil
}

// publish writes audio next to the output path and renames it into place so a
// half-written file is never visible. The superseded file is moved aside and
// removed after the safety buffer.
func (s *Serializer) publish(audio []byte) error {
	dir := filepath.Dir(s.outPath)
	tmp, err := os.CreateTemp(dir, ".tts-*.mp3")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(audio); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}

	prev := s.outPath + ".prev"
	if _, err := os.Stat(s.outPath); err == nil {
		if err := os.Rename(s.outPath, prev); err == nil {
			time.AfterFunc(playbackBuffer, func() {
				if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
					slog.Debug("remove superseded tts file", slog.Any("err", err))
				}
			})
		}
	}
	if err := os.Rename(tmpName, s.outPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Stat reports the output file's state from filesystem metadata only, so the
// overlay's view and ours can never disagree.
func (s *Serializer) Stat() FileStat {
	st, err := os.Stat(s.outPath)
	if err != nil {
		return FileStat{}
	}
	return FileStat{Exists: true, ModTime: st.ModTime(), Size: st.Size()}
}

// OutPath returns the well-known output path.
func (s *Serializer) OutPath() string { return s.outPath }

// estimateDuration guesses playback time from word count, clamped to a sane
// range so a one-word reply still gets a window and an essay can't stall the
// queue for minutes.
func estimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	d := time.Duration(float64(words) / estimateWPM * float64(time.Minute))
	if d < minEstimate {
		return minEstimate
	}
	if d > maxEstimate {
		return maxEstimate
	}
	return d
}
