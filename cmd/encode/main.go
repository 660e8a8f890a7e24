// Encode assembles a directory of numbered frames into a video.
//
// Usage: go run ./cmd/encode -dir output/frames -out epidemic.avi
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/runner"
	"github.com/pthm-cable/contagion/video"
)

func main() {
	configPath := flag.String("config", "", "Config file supplying output defaults (empty = embedded defaults)")
	dir := flag.String("dir", "", "Directory containing the frames (default <output.dir>/frames)")
	ext := flag.String("ext", "", "Frame file extension (default output.image_format)")
	out := flag.String("out", "", "Video path (default <output.dir>/<output.video_name>)")
	fps := flag.Int("fps", 0, "Frames per second (0 = output.video_fps)")
	quality := flag.Int("quality", 0, "JPEG quality 1-100 (0 = output.video_quality)")
	format := flag.String("format", "", "Container format (default output.video_format)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	o := cfg.Output

	frameDir := *dir
	if frameDir == "" {
		frameDir = filepath.Join(o.Dir, runner.FrameDir)
	}
	opts := video.Options{
		FPS:     firstPositive(*fps, o.VideoFPS),
		Quality: firstPositive(*quality, o.VideoQuality),
		Format:  firstNonEmpty(*format, o.VideoFormat),
	}
	videoPath := firstNonEmpty(*out, filepath.Join(o.Dir, o.VideoName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n, err := video.EncodeDir(ctx, frameDir, firstNonEmpty(*ext, o.ImageFormat), videoPath, opts)
	if err != nil {
		slog.Error("encoding failed", "dir", frameDir, "error", err)
		os.Exit(1)
	}
	slog.Info("video written", "path", videoPath, "frames", n, "fps", opts.FPS, "format", opts.Format)
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
