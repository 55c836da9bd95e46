/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package imageinfo reads raster dimensions from image file headers without decoding pixels.
package imageinfo

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"picviewer/internal/geom"
)

var (
	// ErrInvalidSize is returned for headers that declare a zero or negative dimension.
	ErrInvalidSize = errors.New("imageinfo: invalid image size")
	// ErrUnknownFormat is returned when no registered decoder recognises the header.
	ErrUnknownFormat = errors.New("imageinfo: unknown image format")
)

// Info describes an image file.
type Info struct {
	Size   geom.Size
	Format string // "png", "jpeg", "gif", "bmp", "tiff" or "webp"
}

// Probe reads the header of the image file at path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("probe %s: %w", path, err)
	}
	defer f.Close()
	info, err := ProbeReader(f)
	if err != nil {
		return Info{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return info, nil
}

// ProbeReader reads an image header from r.
func ProbeReader(r io.Reader) (Info, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnknownFormat
		}
		return Info{}, fmt.Errorf("decode header: %w", err)
	}
	size := geom.Sz(cfg.Width, cfg.Height)
	if size.Empty() {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	return Info{Size: size, Format: format}, nil
}
