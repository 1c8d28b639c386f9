/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imageio decodes uploaded image files into bitmaps.
package imageio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	// registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode marks input that is not a supported, valid image.
var ErrDecode = errors.New("decode image")

// MaxSidePx rejects absurd dimensions before the full decode allocates memory.
const MaxSidePx = 20000

// Image is a decoded upload.
type Image struct {
	Name   string
	Format string
	Bitmap image.Image
}

// Width returns the pixel width.
func (i Image) Width() int { return i.Bitmap.Bounds().Dx() }

// Height returns the pixel height.
func (i Image) Height() int { return i.Bitmap.Bounds().Dy() }

// Decode reads a single image from r. Any failure wraps ErrDecode.
// The header is checked against MaxSidePx before pixels are allocated; the whole
// input is buffered so metadata segments of any size precede the size check.
func Decode(r io.Reader, name string) (Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	if cfg.Width > MaxSidePx || cfg.Height > MaxSidePx {
		return Image{}, fmt.Errorf("%w: %s is %dx%d, limit %d", ErrDecode, name, cfg.Width, cfg.Height, MaxSidePx)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Image{}, fmt.Errorf("%w: %s has no pixels", ErrDecode, name)
	}
	return Image{Name: name, Format: format, Bitmap: img}, nil
}

// Load decodes the file at path.
func Load(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f, filepath.Base(path))
}

// Result is delivered by LoadAsync.
type Result struct {
	Image Image
	Err   error
}

// LoadAsync decodes path on a separate goroutine. The channel receives exactly one
// Result and is then closed; a cancelled ctx yields ctx.Err().
func LoadAsync(ctx context.Context, path string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		done := make(chan Result, 1)
		go func() {
			img, err := Load(path)
			done <- Result{Image: img, Err: err}
		}()
		select {
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
		case r := <-done:
			out <- r
		}
	}()
	return out
}
