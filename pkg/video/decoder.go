package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"os/exec"
)

// H.264 NAL unit types the assembler cares about.
const (
	nalIDR = 5
	nalSPS = 7
	nalPPS = 8
)

// maxChunk bounds the buffered stream between keyframes.
const maxChunk = 8 << 20

// nalTypes returns the type of every NAL unit in an Annex-B buffer.
func nalTypes(annexB []byte) []uint8 {
	var types []uint8
	for i := 0; i+3 < len(annexB); i++ {
		if annexB[i] != 0 || annexB[i+1] != 0 {
			continue
		}
		switch {
		case annexB[i+2] == 1:
			types = append(types, annexB[i+3]&0x1f)
			i += 3
		case annexB[i+2] == 0 && i+4 < len(annexB) && annexB[i+3] == 1:
			types = append(types, annexB[i+4]&0x1f)
			i += 4
		}
	}
	return types
}

// assembler accumulates Annex-B NAL units into a decodable chunk. A chunk
// always starts with the latest parameter sets followed by an IDR slice, so
// ffmpeg can decode its first picture without earlier context.
type assembler struct {
	sps, pps []byte
	buf      bytes.Buffer
	synced   bool
}

// push adds one depacketized NAL (with start code).
func (a *assembler) push(nal []byte) {
	types := nalTypes(nal)
	if len(types) == 0 {
		return
	}
	switch types[0] {
	case nalSPS:
		a.sps = append(a.sps[:0], nal...)
		return
	case nalPPS:
		a.pps = append(a.pps[:0], nal...)
		return
	case nalIDR:
		if a.sps == nil || a.pps == nil {
			return
		}
		a.buf.Reset()
		a.buf.Write(a.sps)
		a.buf.Write(a.pps)
		a.synced = true
	}
	if !a.synced {
		return
	}
	if a.buf.Len()+len(nal) > maxChunk {
		// Wait for the next keyframe rather than grow without bound.
		a.buf.Reset()
		a.synced = false
		return
	}
	a.buf.Write(nal)
}

// chunk returns the buffered stream, or nil before the first keyframe.
func (a *assembler) chunk() []byte {
	if !a.synced {
		return nil
	}
	return bytes.Clone(a.buf.Bytes())
}

// ErrNoPicture is returned when a chunk did not yield a usable frame.
var ErrNoPicture = errors.New("video: no picture decoded")

// Decoder turns an H.264 chunk into a JPEG using an ffmpeg subprocess with
// pipe I/O.
type Decoder struct {
	path string
}

// NewDecoder returns a decoder that runs the given ffmpeg binary.
func NewDecoder(ffmpegPath string) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Decoder{path: ffmpegPath}
}

// Decode returns the last picture in chunk as JPEG. The ctx deadline bounds
// the subprocess.
func (d *Decoder) Decode(ctx context.Context, chunk []byte) ([]byte, error) {
	if len(chunk) < 100 {
		return nil, ErrNoPicture
	}

	cmd := exec.CommandContext(ctx, d.path,
		"-loglevel", "error",
		"-f", "h264",
		"-i", "pipe:0",
		"-update", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(chunk)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("video: ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	data := lastJPEG(stdout.Bytes())
	if blankFrame(data) {
		return nil, ErrNoPicture
	}
	return data, nil
}

// lastJPEG returns the final image from an MJPEG stream.
func lastJPEG(stream []byte) []byte {
	idx := bytes.LastIndex(stream, []byte{0xff, 0xd8, 0xff})
	if idx < 0 {
		return nil
	}
	return stream[idx:]
}

// blankFrame reports whether a decoded JPEG is missing, tiny, or the flat
// grey/black picture decoders emit before the first keyframe settles.
func blankFrame(data []byte) bool {
	if len(data) < 1000 {
		return true
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return true
	}

	b := img.Bounds()
	if b.Dx() < 100 || b.Dy() < 100 {
		return true
	}

	var rSum, gSum, bSum, n int
	for y := b.Min.Y; y < b.Max.Y; y += b.Dy() / 10 {
		for x := b.Min.X; x < b.Max.X; x += b.Dx() / 10 {
			r, g, bl, _ := img.At(x, y).RGBA()
			rSum += int(r >> 8)
			gSum += int(g >> 8)
			bSum += int(bl >> 8)
			n++
		}
	}

	avgR, avgG, avgB := rSum/n, gSum/n, bSum/n
	if avgR < 30 && avgG < 30 && avgB < 30 {
		return true
	}
	diff := abs(avgR-avgG) + abs(avgG-avgB) + abs(avgR-avgB)
	return diff < 15 && avgR > 100 && avgR < 150
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
