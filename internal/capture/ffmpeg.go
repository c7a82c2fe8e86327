package capture

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// FFmpegDevice captures from local hardware by spawning ffmpeg and reading
// the encoded container from its stdout. VideoInput and AudioInput are the
// platform device names (v4l2/alsa on Linux).
type FFmpegDevice struct {
	Binary     string
	VideoInput string
	AudioInput string
}

// NewFFmpegDevice builds a device with Linux-friendly defaults.
func NewFFmpegDevice(videoInput, audioInput string) *FFmpegDevice {
	if videoInput == "" {
		videoInput = "/dev/video0"
	}
	if audioInput == "" {
		audioInput = "default"
	}
	return &FFmpegDevice{Binary: "ffmpeg", VideoInput: videoInput, AudioInput: audioInput}
}

// Acquire starts an ffmpeg process producing a webm stream on stdout.
func (d *FFmpegDevice) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	binary := d.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	if c.Video {
		args = append(args, "-f", "v4l2", "-i", d.VideoInput)
	}
	if c.Audio {
		args = append(args, "-f", "alsa", "-i", d.AudioInput)
	}
	if !c.Video && !c.Audio {
		return nil, fmt.Errorf("ffmpeg: no tracks requested")
	}
	args = append(args, "-c:v", "libvpx", "-c:a", "libopus", "-f", "webm", "pipe:1")

	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	s := &ffmpegStream{cmd: cmd, out: stdout}
	if c.Video {
		s.tracks = append(s.tracks, &processTrack{kind: "video", stream: s})
	}
	if c.Audio {
		s.tracks = append(s.tracks, &processTrack{kind: "audio", stream: s})
	}
	return s, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	tracks []Track

	mu     sync.Mutex
	closed bool
}

func (s *ffmpegStream) Tracks() []Track { return s.tracks }

func (s *ffmpegStream) Read() ([]byte, error) {
	buf := make([]byte, 32*1024)
	n, err := s.out.Read(buf)
	if n > 0 {
		return buf[:n], err
	}
	return nil, err
}

// Close terminates the ffmpeg process. The pending Read unblocks with an
// error once the pipe drains.
func (s *ffmpegStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	err := s.out.Close()
	_ = s.cmd.Wait()
	return err
}

// processTrack maps a logical track onto the shared ffmpeg process: ffmpeg
// muxes both tracks into one container, so stopping either stops the stream.
type processTrack struct {
	kind   string
	stream *ffmpegStream
}

func (t *processTrack) Kind() string { return t.kind }

func (t *processTrack) Stop() error { return t.stream.Close() }
