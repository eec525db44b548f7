package terminal

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestRenderCoverWithoutSupport(t *testing.T) {
	out, err := RenderCover([]byte("not an image"), TermModeNone)
	if err != nil || out != "" {
		t.Fatalf("RenderCover = %q, %v", out, err)
	}
}

func TestRenderCoverRejectsGarbage(t *testing.T) {
	if _, err := RenderCover([]byte("not an image"), TermModeIterm); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestRenderCoverIterm(t *testing.T) {
	out, err := RenderCover(testPNG(t, 600, 900), TermModeIterm)
	if err != nil {
		t.Fatalf("RenderCover: %v", err)
	}
	if !strings.Contains(out, "1337;File=") {
		t.Fatalf("expected an iTerm2 inline image, got %.40q", out)
	}
}

func TestImageToPaletted(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	p := ImageToPaletted(img)
	if p.Bounds() != img.Bounds() {
		t.Fatalf("bounds = %v", p.Bounds())
	}
}

func TestClearImages(t *testing.T) {
	if ClearImages(TermModeNone) != "" {
		t.Fatal("no clear sequence without image support")
	}
	if !strings.Contains(ClearImages(TermModeKitty), "a=d") {
		t.Fatal("kitty clear should delete images")
	}
}
