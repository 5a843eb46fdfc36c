package video

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func testFrame(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFrames_WritesNumberedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	enc, err := NewFrames(dir)
	if err != nil {
		t.Fatalf("NewFrames failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := enc.WriteFrame(testFrame(color.Black)); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if enc.Frames() != 3 {
		t.Errorf("expected 3 frames, got %d", enc.Frames())
	}

	f, err := os.Open(filepath.Join(dir, "frame_00002.png"))
	if err != nil {
		t.Fatalf("expected third frame file: %v", err)
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("expected width 16, got %d", img.Bounds().Dx())
	}

	if err := enc.WriteFrame(testFrame(color.White)); err == nil {
		t.Error("expected error writing after Close")
	}
}

func TestFFmpeg_Encode(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}

	out := filepath.Join(t.TempDir(), "out.mp4")
	enc, err := NewFFmpeg("", out, 5)
	if err != nil {
		t.Fatalf("NewFFmpeg failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := enc.WriteFrame(testFrame(color.Gray{Y: uint8(80 * i)})); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected non-empty output file")
	}
}

func TestNewFFmpeg_Errors(t *testing.T) {
	if _, err := NewFFmpeg("", "out.mp4", 0); err == nil {
		t.Error("expected error for zero frame rate")
	}
	if _, err := NewFFmpeg("definitely-not-ffmpeg-binary", "out.mp4", 5); err == nil {
		t.Error("expected error for missing binary")
	}
}
