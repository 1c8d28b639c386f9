/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imageio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, name string, enc func(*os.File, image.Image) error) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 7))
	img.Set(3, 3, color.RGBA{R: 200, A: 255})
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := enc(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = f.Close()
	return p
}

func TestLoadPNGAndBMP(t *testing.T) {
	p := writeImage(t, "a.png", func(f *os.File, img image.Image) error { return png.Encode(f, img) })
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load png: %v", err)
	}
	if got.Width() != 12 || got.Height() != 7 || got.Format != "png" || got.Name != "a.png" {
		t.Fatalf("unexpected result: %+v", got)
	}

	p = writeImage(t, "b.bmp", func(f *os.File, img image.Image) error { return bmp.Encode(f, img) })
	got, err = Load(p)
	if err != nil {
		t.Fatalf("Load bmp: %v", err)
	}
	if got.Format != "bmp" {
		t.Fatalf("format = %q", got.Format)
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(strings.NewReader("definitely not an image"), "x.jpg")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	_, err = Decode(bytes.NewReader(nil), "empty.png")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for empty input, got %v", err)
	}
}

// jpegWithAPP1 encodes a w×h JPEG and inserts an APP1 segment of n payload bytes after SOI,
// the way cameras embed EXIF blocks.
func jpegWithAPP1(t *testing.T, w, h, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw := buf.Bytes()
	seg := []byte{0xFF, 0xE1, byte((n + 2) >> 8), byte(n + 2)}
	payload := make([]byte, n)
	copy(payload, "Exif\x00\x00")
	out := append([]byte{}, raw[:2]...)
	out = append(out, seg...)
	out = append(out, payload...)
	return append(out, raw[2:]...)
}

func TestDecodeOversizedBehindLargeMetadata(t *testing.T) {
	data := jpegWithAPP1(t, MaxSidePx+1, 8, 8192)
	_, err := Decode(bytes.NewReader(data), "camera.jpg")
	if !errors.Is(err, ErrDecode) || !strings.Contains(err.Error(), "limit") {
		t.Fatalf("expected size limit error, got %v", err)
	}

	ok := jpegWithAPP1(t, 40, 30, 8192)
	got, err := Decode(bytes.NewReader(ok), "small.jpg")
	if err != nil {
		t.Fatalf("Decode with metadata: %v", err)
	}
	if got.Width() != 40 || got.Height() != 30 || got.Format != "jpeg" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	if err == nil || errors.Is(err, ErrDecode) {
		t.Fatalf("missing file must be an open error, got %v", err)
	}
}

func TestLoadAsync(t *testing.T) {
	p := writeImage(t, "a.png", func(f *os.File, img image.Image) error { return png.Encode(f, img) })
	res := <-LoadAsync(context.Background(), p)
	if res.Err != nil || res.Image.Width() != 12 {
		t.Fatalf("async load: %+v", res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := LoadAsync(ctx, p)
	res = <-ch
	if res.Err == nil && res.Image.Bitmap == nil {
		t.Fatalf("cancelled load returned neither error nor image")
	}
	if _, open := <-ch; open {
		t.Fatalf("channel must be closed after one result")
	}
}
