// File: internal/artifacts/gif.go
package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"

	"github.com/xkilldash9x/cadence/api/schemas"
)

// DefaultGIFPath is used when GIF generation is enabled without an explicit
// output path.
const DefaultGIFPath = "agent_history.gif"

// ErrNoFrames indicates the history contained no screenshots to render.
// Callers typically downgrade it to a warning.
var ErrNoFrames = errors.New("history contains no screenshots")

// frameDelay is the per-frame display time in hundredths of a second.
const frameDelay = 300

// RenderGIF encodes the per-step screenshots of a run history into an
// animated GIF at path. Records without screenshots are skipped; a corrupt
// screenshot loses one frame, not the whole GIF. With no usable frames at
// all, no file is written and ErrNoFrames is returned. The task string is
// accepted for parity with the other artifact writers; frames are rendered
// without an overlay.
func RenderGIF(task string, history *schemas.History, path string) error {
	_ = task

	anim := &gif.GIF{}
	for _, record := range history.Records {
		shot := record.State.Screenshot
		if len(shot) == 0 {
			continue
		}
		img, err := png.Decode(bytes.NewReader(shot))
		if err != nil {
			continue
		}
		anim.Image = append(anim.Image, palettedFrame(img))
		anim.Delay = append(anim.Delay, frameDelay)
	}

	if len(anim.Image) == 0 {
		return ErrNoFrames
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating gif directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating gif file: %w", err)
	}
	if err := gif.EncodeAll(f, anim); err != nil {
		f.Close()
		return fmt.Errorf("encoding gif: %w", err)
	}
	return f.Close()
}

// palettedFrame quantizes a frame for GIF encoding using the standard
// Plan 9 palette with error diffusion.
func palettedFrame(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	frame := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(frame, bounds, img, bounds.Min)
	return frame
}
