package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/paths"
)

func resolve(t *testing.T, env config.Env) paths.PathSet {
	t.Helper()
	ps, err := paths.Resolve(paths.Options{
		Root:               t.TempDir(),
		StructureType:      config.StructureStandard,
		Env:                env,
		TemplateExtensions: []string{".tmpl"},
		ImageExtensions:    []string{".jpg", ".png", ".gif", ".svg"},
	})
	require.NoError(t, err)
	return ps
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: quality}))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return buf.Bytes()
}

func writePNG(t *testing.T, path string) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, testImage()))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return buf.Bytes()
}

func TestOptimizeAllDevCopies(t *testing.T) {
	ps := resolve(t, config.EnvDev)
	original := writeJPEG(t, filepath.Join(ps.Templates, "welcome", "images", "hero.jpg"), 100)
	require.NoError(t, os.WriteFile(filepath.Join(ps.Templates, "welcome", "images", "anim.gif"), []byte("GIF89a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ps.Templates, "welcome", "index.tmpl"), []byte("x"), 0o644))

	o := NewOptimizer(Options{Env: config.EnvDev, Concurrency: 2}, nil)
	res, err := o.OptimizeAll(context.Background(), ps)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)

	copied, err := os.ReadFile(filepath.Join(ps.BuildOutput, "welcome", "images", "hero.jpg"))
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	_, err = os.Stat(filepath.Join(ps.BuildOutput, "welcome", "index.tmpl"))
	assert.True(t, os.IsNotExist(err))
}

func TestOptimizeAllProdReencodes(t *testing.T) {
	ps := resolve(t, config.EnvProd)
	jpgOriginal := writeJPEG(t, filepath.Join(ps.Templates, "welcome", "hero.jpg"), 100)
	pngOriginal := writePNG(t, filepath.Join(ps.Templates, "welcome", "logo.png"))

	o := NewOptimizer(Options{
		Env:            config.EnvProd,
		JPEGQuality:    60,
		PNGCompression: png.BestCompression,
	}, nil)
	res, err := o.OptimizeAll(context.Background(), ps)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)
	assert.Less(t, res.BytesAfter, res.BytesBefore)

	jpgOut, err := os.ReadFile(filepath.Join(ps.BuildOutput, "welcome", "hero.jpg"))
	require.NoError(t, err)
	assert.Less(t, len(jpgOut), len(jpgOriginal))
	_, err = jpeg.Decode(bytes.NewReader(jpgOut))
	assert.NoError(t, err)

	pngOut, err := os.ReadFile(filepath.Join(ps.BuildOutput, "welcome", "logo.png"))
	require.NoError(t, err)
	assert.Less(t, len(pngOut), len(pngOriginal))
	cfg, err := png.DecodeConfig(bytes.NewReader(pngOut))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
}

func TestOptimizeAllProdKeepsSmallerOriginal(t *testing.T) {
	ps := resolve(t, config.EnvProd)
	original := writeJPEG(t, filepath.Join(ps.Templates, "tiny", "a.jpg"), 10)

	o := NewOptimizer(Options{Env: config.EnvProd, JPEGQuality: 100}, nil)
	_, err := o.OptimizeAll(context.Background(), ps)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(ps.BuildOutput, "tiny", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestOptimizeAllProdCopiesSVG(t *testing.T) {
	ps := resolve(t, config.EnvProd)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"/>`)
	src := filepath.Join(ps.Templates, "welcome", "icon.svg")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, svg, 0o644))

	res, err := NewOptimizer(Options{Env: config.EnvProd}, nil).OptimizeAll(context.Background(), ps)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)

	out, err := os.ReadFile(filepath.Join(ps.BuildOutput, "welcome", "icon.svg"))
	require.NoError(t, err)
	assert.Equal(t, svg, out)
}

func TestOptimizeAllCorruptImage(t *testing.T) {
	ps := resolve(t, config.EnvProd)
	src := filepath.Join(ps.Templates, "broken", "a.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("not a png"), 0o644))

	_, err := NewOptimizer(Options{Env: config.EnvProd}, nil).OptimizeAll(context.Background(), ps)
	require.Error(t, err)

	var perr *errors.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, errors.ErrCodeImageFailed, perr.Code)
	assert.Equal(t, src, perr.Path)
}

func TestParseCompression(t *testing.T) {
	tests := map[string]png.CompressionLevel{
		"none":    png.NoCompression,
		"speed":   png.BestSpeed,
		"best":    png.BestCompression,
		"BEST":    png.BestCompression,
		"default": png.DefaultCompression,
		"":        png.DefaultCompression,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseCompression(in), in)
	}
}
