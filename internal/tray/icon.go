package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"runtime"

	"golang.org/x/image/vector"
)

const iconSize = 32

// GetIcon returns the tray icon: a yoke wheel glyph, ICO-wrapped on Windows.
func GetIcon() []byte {
	data, err := drawIcon()
	if err != nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return wrapICO(data, iconSize)
	}
	return data
}

func drawIcon() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	fg := image.NewUniform(color.NRGBA{R: 0xd0, G: 0x30, B: 0x30, A: 0xff})
	const c = iconSize / 2

	// rim
	fill(img, fg, func(z *vector.Rasterizer) {
		circle(z, c, c, 14, false)
		circle(z, c, c, 10, true)
	})
	// grips and column
	fill(img, fg, func(z *vector.Rasterizer) { rect(z, 3, c-1.5, iconSize-3, c+1.5) })
	fill(img, fg, func(z *vector.Rasterizer) { rect(z, c-1.5, c, c+1.5, iconSize-3) })

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fill rasterizes one path over dst. Separate shapes use separate calls so
// overlapping windings never cancel.
func fill(dst draw.Image, src image.Image, path func(z *vector.Rasterizer)) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	path(z)
	z.Draw(dst, b, src, image.Point{})
}

func circle(z *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	const segments = 48
	for i := 0; i <= segments; i++ {
		t := 2 * math.Pi * float64(i) / segments
		if reverse {
			t = -t
		}
		x := cx + r*float32(math.Cos(t))
		y := cy + r*float32(math.Sin(t))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

func rect(z *vector.Rasterizer, x0, y0, x1, y1 float32) {
	z.MoveTo(x0, y0)
	z.LineTo(x1, y0)
	z.LineTo(x1, y1)
	z.LineTo(x0, y1)
	z.ClosePath()
}

// wrapICO embeds a PNG image in a single-entry ICO container.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.WriteByte(byte(size))
	buf.WriteByte(byte(size))
	buf.WriteByte(0) // palette
	buf.WriteByte(0) // reserved
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32)) // bpp
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}
