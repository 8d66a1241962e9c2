package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/compositor/pkg/domain"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ImageFormat selects the encoder used by FrameWriter.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatBMP  ImageFormat = "bmp"
	FormatTIFF ImageFormat = "tiff"
)

// ErrUnsupportedFrame is returned for frames that do not carry a texture.
var ErrUnsupportedFrame = errors.New("frame does not carry a texture")

// ParseImageFormat maps a name or file extension to an ImageFormat.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case FormatPNG, "":
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}

// FrameWriter is a domain.FrameConsumer that writes texture frames as image files,
// one per node and time: <dir>/<node>_<num>-<den>.<format>.
type FrameWriter struct {
	Dir    string
	Format ImageFormat
}

// NewFrameWriter creates a writer that stores frames under dir.
func NewFrameWriter(dir string, format ImageFormat) *FrameWriter {
	if format == "" {
		format = FormatPNG
	}
	return &FrameWriter{Dir: dir, Format: format}
}

// Path returns where a frame for node at t is written.
func (w *FrameWriter) Path(nodeID string, t domain.Time) string {
	t = t.Normalize()
	name := fmt.Sprintf("%s_%d-%d.%s", nodeID, t.Num, t.Den, w.Format)
	return filepath.Join(w.Dir, name)
}

// ConsumeFrame encodes the frame's texture and writes it atomically.
func (w *FrameWriter) ConsumeFrame(ctx context.Context, frame domain.Frame) error {
	img, ok := frame.Value.AsTexture()
	if !ok || img == nil {
		return fmt.Errorf("node %q at %s: %w", frame.NodeID, frame.Time, ErrUnsupportedFrame)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, w.Format); err != nil {
		return fmt.Errorf("encode frame %q: %w", frame.NodeID, err)
	}
	return writeAtomic(w.Dir, w.Path(frame.NodeID, frame.Time), buf.Bytes())
}

// LoadImage decodes a PNG, BMP or TIFF file into a texture.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
