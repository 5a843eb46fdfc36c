// Package video writes rendered frames to an output container.
package video

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Encoder consumes frames in order. Close must be called exactly once.
type Encoder interface {
	WriteFrame(img image.Image) error
	Close() error
}

// FFmpeg pipes PNG frames into an ffmpeg process producing an H.264 MP4.
type FFmpeg struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	buf    *bufio.Writer
	stderr bytes.Buffer
	frames int
	closed bool
}

// NewFFmpeg starts ffmpeg writing to output at framerate frames per second.
// binary defaults to "ffmpeg" on PATH.
func NewFFmpeg(binary, output string, framerate int) (*FFmpeg, error) {
	if framerate <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", framerate)
	}
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("failed to find ffmpeg: %w", err)
	}

	//nolint:gosec // G204: binary and output come from operator configuration
	cmd := exec.Command(path,
		"-y",
		"-loglevel", "error",
		"-f", "image2pipe",
		"-framerate", strconv.Itoa(framerate),
		"-vcodec", "png",
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		// yuv420p needs even dimensions.
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		output,
	)
	e := &FFmpeg{cmd: cmd}
	cmd.Stderr = &e.stderr
	if e.stdin, err = cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	e.buf = bufio.NewWriter(e.stdin)
	return e, nil
}

// WriteFrame encodes img as PNG into the pipe.
func (e *FFmpeg) WriteFrame(img image.Image) error {
	if e.closed {
		return fmt.Errorf("encoder is closed")
	}
	if err := png.Encode(e.buf, img); err != nil {
		return fmt.Errorf("failed to write frame %d: %w%s", e.frames, err, e.diagnostics())
	}
	e.frames++
	return nil
}

// Close flushes the pipe and waits for ffmpeg to finish the file.
func (e *FFmpeg) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	flushErr := e.buf.Flush()
	closeErr := e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w%s", err, e.diagnostics())
	}
	if err := errors.Join(flushErr, closeErr); err != nil {
		return fmt.Errorf("failed to close ffmpeg input: %w", err)
	}
	return nil
}

// Frames returns the number of frames written.
func (e *FFmpeg) Frames() int {
	return e.frames
}

func (e *FFmpeg) diagnostics() string {
	if e.stderr.Len() == 0 {
		return ""
	}
	return ": " + string(bytes.TrimSpace(e.stderr.Bytes()))
}

// FramePattern names the files written by Frames.
const FramePattern = "frame_%05d.png"

// Frames writes each frame as a numbered PNG file into a directory.
type Frames struct {
	dir    string
	frames int
	closed bool
}

// NewFrames creates dir if needed and returns an encoder writing into it.
func NewFrames(dir string) (*Frames, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	return &Frames{dir: dir}, nil
}

// WriteFrame writes img to the next numbered file.
func (f *Frames) WriteFrame(img image.Image) error {
	if f.closed {
		return fmt.Errorf("encoder is closed")
	}
	path := filepath.Join(f.dir, fmt.Sprintf(FramePattern, f.frames))
	//nolint:gosec // G304: path is built from the configured output directory
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to encode frame %d: %w", f.frames, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close frame file: %w", err)
	}
	f.frames++
	return nil
}

// Close marks the encoder finished.
func (f *Frames) Close() error {
	f.closed = true
	return nil
}

// Frames returns the number of frames written.
func (f *Frames) Frames() int {
	return f.frames
}
