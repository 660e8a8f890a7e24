// Package video assembles numbered frame images into a video file.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/icza/mjpeg"
)

// ErrUnsupportedFormat is returned for container formats other than avi.
var ErrUnsupportedFormat = errors.New("unsupported video format")

// Options configures encoding.
type Options struct {
	FPS     int
	Quality int    // JPEG quality 1-100
	Format  string // Only "avi" (Motion JPEG) is supported
}

// FrameNumber extracts the digits of a file's base name as its ordering key.
// Names without digits sort first.
func FrameNumber(path string) int {
	base := filepath.Base(path)
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, strings.TrimSuffix(base, filepath.Ext(base)))
	n, err := strconv.Atoi(digits)
	if err != nil {
		return -1
	}
	return n
}

// FrameFiles lists the files in dir with the given extension, ordered by
// frame number.
func FrameFiles(dir, ext string) ([]string, error) {
	ext = "." + strings.TrimPrefix(strings.ToLower(ext), ".")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	var frames []string
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ext {
			continue
		}
		frames = append(frames, filepath.Join(dir, e.Name()))
	}
	slices.SortStableFunc(frames, func(a, b string) int {
		return FrameNumber(a) - FrameNumber(b)
	})
	return frames, nil
}

// Encode writes frames, in order, to out. All frames must share the size of
// the first. It returns the number of frames written; zero frames produce no
// file.
func Encode(ctx context.Context, frames []string, out string, opts Options) (int, error) {
	if !strings.EqualFold(opts.Format, "avi") {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	if len(frames) == 0 {
		return 0, nil
	}
	if opts.FPS <= 0 {
		return 0, fmt.Errorf("fps %d must be positive", opts.FPS)
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	first, err := decodeFrame(frames[0])
	if err != nil {
		return 0, err
	}
	size := first.Bounds().Size()

	aw, err := mjpeg.New(out, int32(size.X), int32(size.Y), int32(opts.FPS))
	if err != nil {
		return 0, fmt.Errorf("create video: %w", err)
	}

	var buf bytes.Buffer
	written := 0
	for i, path := range frames {
		if err := ctx.Err(); err != nil {
			aw.Close()
			return written, err
		}
		img := first
		if i > 0 {
			if img, err = decodeFrame(path); err != nil {
				aw.Close()
				return written, err
			}
			if img.Bounds().Size() != size {
				aw.Close()
				return written, fmt.Errorf("frame %s is %v, want %v", path, img.Bounds().Size(), size)
			}
		}
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			aw.Close()
			return written, fmt.Errorf("encode frame %s: %w", path, err)
		}
		if err := aw.AddFrame(buf.Bytes()); err != nil {
			aw.Close()
			return written, fmt.Errorf("add frame %s: %w", path, err)
		}
		written++
	}

	if err := aw.Close(); err != nil {
		return written, fmt.Errorf("finalize video: %w", err)
	}
	return written, nil
}

// EncodeDir encodes every frame with extension ext found in dir.
func EncodeDir(ctx context.Context, dir, ext, out string, opts Options) (int, error) {
	frames, err := FrameFiles(dir, ext)
	if err != nil {
		return 0, err
	}
	return Encode(ctx, frames, out, opts)
}

func decodeFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return img, nil
}
