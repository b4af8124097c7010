// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sink

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnsupported is returned when no clipboard tool is available.
var ErrClipboardUnsupported = errors.New("copying images to the clipboard is not supported here")

// clipTool is an external program that puts a PNG on the clipboard, either
// from stdin or from a file named in its arguments.
type clipTool struct {
	name   string
	args   []string
	viaArg bool // PNG is passed as a file, ${file} in args is replaced
}

func clipTools(goos string, env func(string) string) []clipTool {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		var tools []clipTool
		if env("WAYLAND_DISPLAY") != "" {
			tools = append(tools, clipTool{name: "wl-copy", args: []string{"--type", "image/png"}})
		}
		return append(tools, clipTool{name: "xclip", args: []string{"-selection", "clipboard", "-t", "image/png", "-i"}})
	case "darwin":
		return []clipTool{{
			name:   "osascript",
			args:   []string{"-e", `set the clipboard to (read (POSIX file "${file}") as «class PNGf»)`},
			viaArg: true,
		}}
	case "windows":
		return []clipTool{{
			name: "powershell",
			args: []string{"-NoProfile", "-STA", "-Command",
				"Add-Type -AssemblyName System.Windows.Forms; Add-Type -AssemblyName System.Drawing; " +
					"[System.Windows.Forms.Clipboard]::SetImage([System.Drawing.Image]::FromFile('${file}'))"},
			viaArg: true,
		}}
	}
	return nil
}

// pickClipTool returns the first tool found on PATH.
func pickClipTool(goos string, env func(string) string, lookPath func(string) (string, error)) (clipTool, error) {
	for _, t := range clipTools(goos, env) {
		if _, err := lookPath(t.name); err == nil {
			return t, nil
		}
	}
	return clipTool{}, fmt.Errorf("%w (%s)", ErrClipboardUnsupported, goos)
}

// Clipboard decodes a screen dump and copies it to the desktop clipboard as
// a PNG.
func Clipboard(data []byte) error {
	img, err := Decode(data)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, PNG); err != nil {
		return err
	}
	tool, err := pickClipTool(runtime.GOOS, os.Getenv, exec.LookPath)
	if err != nil {
		return err
	}

	args := tool.args
	if tool.viaArg {
		f, err := os.CreateTemp("", "ds1000z-*.png")
		if err != nil {
			return err
		}
		defer os.Remove(f.Name())
		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		args = make([]string, len(tool.args))
		for i, a := range tool.args {
			args[i] = strings.ReplaceAll(a, "${file}", f.Name())
		}
	}

	cli := exec.Command(tool.name, args...)
	if !tool.viaArg {
		cli.Stdin = &buf
	}
	var stderr bytes.Buffer
	cli.Stderr = &stderr
	if err := cli.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", tool.name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
