// Package images moves template images into the build output, re-encoding
// them for size in production.
package images

import (
	"bytes"
	"context"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/otiai10/copy"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/paths"
)

// Options configures an Optimizer.
type Options struct {
	Env            config.Env
	JPEGQuality    int
	PNGCompression png.CompressionLevel
	Concurrency    int
}

// OptionsFrom builds Options from the configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Env:            cfg.Build.Env,
		JPEGQuality:    cfg.Images.JPEGQuality,
		PNGCompression: ParseCompression(cfg.Images.PNGCompression),
		Concurrency:    cfg.Build.Concurrency,
	}
}

// ParseCompression maps a configuration level name to a png level.
func ParseCompression(level string) png.CompressionLevel {
	switch strings.ToLower(level) {
	case "none":
		return png.NoCompression
	case "speed":
		return png.BestSpeed
	case "best":
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

// Optimizer copies or re-encodes every image matched by a PathSet.
type Optimizer struct {
	opts   Options
	logger logging.Logger
}

// NewOptimizer creates an Optimizer.
func NewOptimizer(opts Options, logger logging.Logger) *Optimizer {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 80
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Optimizer{opts: opts, logger: logger.WithComponent("images")}
}

// Result summarises one optimization run.
type Result struct {
	Files       int
	BytesBefore int64
	BytesAfter  int64
}

// OptimizeAll writes every image under the template root to the build output
// directory, keeping its relative path. In dev images are copied unchanged.
// In prod JPEG and PNG files are re-encoded; the original bytes are kept when
// re-encoding does not make the file smaller.
func (o *Optimizer) OptimizeAll(ctx context.Context, ps paths.PathSet) (Result, error) {
	sources, err := paths.MatchAll(ps.Images, doublestar.WithFilesOnly(), doublestar.WithCaseInsensitive())
	if err != nil {
		return Result{}, errors.NewIOError(errors.ErrCodeGlobFailed, "glob images", err).WithPath(ps.Templates)
	}

	var before, after atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)

	for _, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(ps.Templates, src)
			if err != nil {
				return errors.NewInternalError(errors.ErrCodeInternalError, "relativise image path", err).WithPath(src)
			}
			dest := filepath.Join(ps.BuildOutput, rel)

			in, out, err := o.process(src, dest)
			if err != nil {
				return err
			}
			before.Add(in)
			after.Add(out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Files: len(sources), BytesBefore: before.Load(), BytesAfter: after.Load()}
	o.logger.Debug(ctx, "Images processed",
		"files", res.Files, "env", string(o.opts.Env),
		"bytes_before", res.BytesBefore, "bytes_after", res.BytesAfter)
	return res, nil
}

func (o *Optimizer) process(src, dest string) (int64, int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, 0, errors.NewIOError(errors.ErrCodeReadFailed, "stat image", err).WithPath(src)
	}

	if o.opts.Env != config.EnvProd {
		if err := copy.Copy(src, dest, copy.Options{PreserveTimes: true}); err != nil {
			return 0, 0, errors.NewIOError(errors.ErrCodeWriteFailed, "copy image", err).WithPath(dest)
		}
		return info.Size(), info.Size(), nil
	}

	raw, err := os.ReadFile(src)
	if err != nil {
		return 0, 0, errors.NewIOError(errors.ErrCodeReadFailed, "read image", err).WithPath(src)
	}

	encoded, err := o.encode(src, raw)
	if err != nil {
		return 0, 0, err
	}
	if encoded == nil || len(encoded) >= len(raw) {
		encoded = raw
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, 0, errors.NewIOError(errors.ErrCodeWriteFailed, "create image directory", err).WithPath(dest)
	}
	if err := os.WriteFile(dest, encoded, 0o644); err != nil {
		return 0, 0, errors.NewIOError(errors.ErrCodeWriteFailed, "write image", err).WithPath(dest)
	}
	return int64(len(raw)), int64(len(encoded)), nil
}

// encode re-encodes JPEG and PNG data. Other formats return nil so the
// caller keeps the original bytes.
func (o *Optimizer) encode(src string, raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(src)) {
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.NewParseError(errors.ErrCodeImageFailed, "decode jpeg", err).WithPath(src)
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.opts.JPEGQuality}); err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeImageFailed, "encode jpeg", err).WithPath(src)
		}
	case ".png":
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.NewParseError(errors.ErrCodeImageFailed, "decode png", err).WithPath(src)
		}
		enc := png.Encoder{CompressionLevel: o.opts.PNGCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeImageFailed, "encode png", err).WithPath(src)
		}
	default:
		return nil, nil
	}
	return buf.Bytes(), nil
}
