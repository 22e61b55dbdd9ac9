package canvas

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	regularOnce sync.Once
	regular     *opentype.Font
	regularErr  error
)

// regularFont parses the embedded Go Regular font once. The parsed font is
// shared; faces built from it are per context.
func regularFont() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

func (c *Context2D) face() font.Face {
	if c.faces == nil {
		c.faces = make(map[float64]font.Face)
	}
	size := c.state.fontSize
	if f, ok := c.faces[size]; ok {
		return f
	}
	f := newFace(size)
	c.faces[size] = f
	return f
}

// newFace falls back to the fixed 7x13 face when the vector font is unusable.
func newFace(size float64) font.Face {
	fnt, err := regularFont()
	if err != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
