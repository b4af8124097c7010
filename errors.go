// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rigol

import (
	"errors"

	"github.com/Kalofin/DS1054Z-screen-capture/lib/tmc"
)

var (
	// ErrDeviceNotRecognized means *IDN? did not name a Rigol DS model.
	ErrDeviceNotRecognized = errors.New("device not recognized")
	// ErrCommandRejected means the instrument answered with its generic
	// "command error" reply.
	ErrCommandRejected = errors.New("command rejected by instrument")
	// ErrIncompleteTransfer means the session ran dry before a response was
	// complete.
	ErrIncompleteTransfer = errors.New("incomplete transfer")
	// ErrMalformedHeader is returned for TMC block headers that cannot be parsed.
	ErrMalformedHeader = tmc.ErrMalformedHeader
	// ErrNotReady is returned when *OPC? polling exceeds the ready timeout.
	ErrNotReady = errors.New("instrument not ready")
)

// commandError is what DS1000Z scopes send back instead of a result when
// a command is refused, for example with LAN remote control disabled.
const commandError = "command error"
