package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/renunganku/api/internal/model"
)

// ProbeResult is the metadata ffprobe reports for a media file
type ProbeResult struct {
	Duration float64
	Width    int
	Height   int
}

// MediaProber reads media metadata
type MediaProber interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// Transcoder renders thumbnails and renditions
type Transcoder interface {
	MediaProber
	Thumbnail(ctx context.Context, input, output string, at float64) error
	Transcode(ctx context.Context, input, output string, rung model.QualityRung, duration float64, progress func(pct int)) error
}

// FFmpeg runs the ffmpeg and ffprobe binaries
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a wrapper around the given binaries, defaulting to the
// ones on PATH
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Available reports whether both binaries can be found
func (f *FFmpeg) Available() bool {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(f.ffprobePath)
	return err == nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe returns duration and video dimensions of path
func (f *FFmpeg) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProbeFailed, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (*ProbeResult, error) {
	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	res := &ProbeResult{}
	res.Duration, _ = strconv.ParseFloat(parsed.Format.Duration, 64)
	for _, s := range parsed.Streams {
		if s.CodecType != "video" {
			continue
		}
		res.Width, res.Height = s.Width, s.Height
		if res.Duration == 0 {
			res.Duration, _ = strconv.ParseFloat(s.Duration, 64)
		}
		break
	}
	return res, nil
}

// Thumbnail grabs one JPEG frame at the given second
func (f *FFmpeg) Thumbnail(ctx context.Context, input, output string, at float64) error {
	return f.run(ctx, nil,
		"-y",
		"-ss", strconv.FormatFloat(at, 'f', 2, 64),
		"-i", input,
		"-frames:v", "1",
		"-vf", "scale=640:-2",
		"-q:v", "3",
		output)
}

// Transcode renders one rung as H.264/AAC MP4, reporting percent done
func (f *FFmpeg) Transcode(ctx context.Context, input, output string, rung model.QualityRung, duration float64, progress func(pct int)) error {
	var report func(line string)
	if progress != nil && duration > 0 {
		report = func(line string) {
			v, ok := strings.CutPrefix(line, "out_time_ms=")
			if !ok {
				return
			}
			// out_time_ms is in microseconds despite the name
			us, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return
			}
			pct := int(us / 1e6 / duration * 100)
			if pct > 100 {
				pct = 100
			}
			if pct >= 0 {
				progress(pct)
			}
		}
	}
	return f.run(ctx, report,
		"-y",
		"-i", input,
		"-vf", fmt.Sprintf("scale=-2:%d", rung.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", rung.Bitrate,
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		output)
}

// run executes ffmpeg, feeding each stdout line to onLine
func (f *FFmpeg) run(ctx context.Context, onLine func(string), args ...string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if i := strings.LastIndex(msg, "\n"); i >= 0 {
			msg = msg[i+1:]
		}
		return fmt.Errorf("%w: %s", ErrTranscodeFailed, msg)
	}
	return nil
}
