// Package terminal draws images with the terminal's graphics protocol
package terminal

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/BourgeoisBear/rasterm"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// TermImageMode represents the terminal's image display capability
type TermImageMode int

const (
	// TermModeNone indicates no image support
	TermModeNone TermImageMode = iota
	// TermModeKitty indicates Kitty graphics protocol support
	TermModeKitty
	// TermModeIterm indicates iTerm2 graphics protocol support
	TermModeIterm
	// TermModeSixel indicates Sixel graphics protocol support
	TermModeSixel
)

// CoverImageID is a stable Kitty image id for the novel cover
const CoverImageID uint32 = 1989

// Cover images are scaled to this width in pixels before drawing
const coverWidth = 320

// String returns a human-readable name for the terminal mode
func (m TermImageMode) String() string {
	switch m {
	case TermModeKitty:
		return "Kitty"
	case TermModeIterm:
		return "iTerm2"
	case TermModeSixel:
		return "Sixel"
	default:
		return "None"
	}
}

// DetectTerminalMode checks which image protocol the terminal supports.
// Call it before the UI takes over the terminal.
func DetectTerminalMode() TermImageMode {
	if rasterm.IsKittyCapable() {
		return TermModeKitty
	}
	if rasterm.IsItermCapable() {
		return TermModeIterm
	}
	if capable, _ := rasterm.IsSixelCapable(); capable {
		return TermModeSixel
	}
	return TermModeNone
}

// ImageToPaletted converts an image to a paletted image required for Sixel
func ImageToPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette.Plan9)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	return paletted
}

// RenderImageToString renders an image to a string based on the terminal mode.
// For Kitty protocol, an optional image ID can be passed for targeted clearing.
func RenderImageToString(img image.Image, mode TermImageMode, kittyID ...uint32) (string, error) {
	var buf bytes.Buffer
	var renderErr error

	switch mode {
	case TermModeKitty:
		opts := rasterm.KittyImgOpts{}
		if len(kittyID) > 0 {
			opts.ImageId = kittyID[0]
		}
		renderErr = rasterm.KittyWriteImage(&buf, img, opts)
	case TermModeIterm:
		renderErr = rasterm.ItermWriteImage(&buf, img)
	case TermModeSixel:
		// Written to a buffer so bubbletea controls the output
		renderErr = rasterm.SixelWriteImage(&buf, ImageToPaletted(img))
	default:
		return "", nil
	}

	if renderErr != nil {
		return "", renderErr
	}
	return buf.String(), nil
}

// RenderCover decodes a cover image, scales it down and renders it for mode
func RenderCover(data []byte, mode TermImageMode) (string, error) {
	if mode == TermModeNone {
		return "", nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode cover: %w", err)
	}
	if img.Bounds().Dx() > coverWidth {
		img = resize.Resize(coverWidth, 0, img, resize.Lanczos3)
	}
	return RenderImageToString(img, mode, CoverImageID)
}

// ClearImages returns the escape sequence to clear all terminal images.
// Print it before leaving a screen that showed an image.
func ClearImages(mode TermImageMode) string {
	switch mode {
	case TermModeKitty:
		// a=d (action=delete), d=A (delete all images)
		return "\x1b_Ga=d,d=A\x1b\\"
	case TermModeIterm, TermModeSixel:
		// Inline images live in the text grid, a screen clear drops them
		return "\x1b[2J\x1b[H"
	default:
		return ""
	}
}

// ClearImagesCmd returns a func that writes the clear sequence to stdout
func ClearImagesCmd(mode TermImageMode) func() {
	return func() {
		if seq := ClearImages(mode); seq != "" {
			os.Stdout.WriteString(seq)
		}
	}
}
