// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package sink writes captures to files or the clipboard.
package sink

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"

	"github.com/Kalofin/DS1054Z-screen-capture/lib/samples"
)

// Format is an image file format.
type Format string

// Supported image formats.
const (
	PNG Format = "png"
	BMP Format = "bmp"
)

// Decode decodes a PNG or BMP screen dump.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding screen image: %w", err)
	}
	return img, nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case BMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("unsupported image format %q", f)
}

// Image decodes a screen dump and saves it at path in format f.
func Image(path string, data []byte, f Format) error {
	img, err := Decode(data)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return Encode(w, img, f) })
}

// CSV saves the sample table at path.
func CSV(path string, t *samples.Table) error {
	return writeFile(path, t.WriteCSV)
}

// writeFile creates path's directory and writes through a temporary file that
// is renamed into place, so a failed write leaves nothing at path.
func writeFile(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
