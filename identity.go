// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rigol

import (
	"fmt"
	"strings"
	"time"
)

// Vendor is the company field of every supported instrument.
const Vendor = "RIGOL TECHNOLOGIES"

// Identity is the instrument's *IDN? reply.
type Identity struct {
	Company  string
	Model    string
	Serial   string
	Firmware string
}

// ParseIdentity splits an *IDN? response into its four fields.
func ParseIdentity(resp string) (Identity, error) {
	resp = strings.TrimSpace(resp)
	if resp == commandError {
		return Identity{}, fmt.Errorf("*IDN?: %w: %q", ErrCommandRejected, resp)
	}
	fields := strings.Split(resp, ",")
	if len(fields) != 4 {
		return Identity{}, fmt.Errorf("%w: identity %q does not have 4 fields", ErrDeviceNotRecognized, resp)
	}
	return Identity{
		Company:  fields[0],
		Model:    fields[1],
		Serial:   fields[2],
		Firmware: fields[3],
	}, nil
}

// Validate checks that the identity is a Rigol DS-series scope.
func (id Identity) Validate() error {
	if id.Company != Vendor || !strings.HasPrefix(id.Model, "DS") {
		return fmt.Errorf("%w: found model %q from %q", ErrDeviceNotRecognized, id.Model, id.Company)
	}
	return nil
}

// FileStem names a capture taken at t: MODEL_SERIAL_YYYY-MM-DD_HH.MM.SS.
func (id Identity) FileStem(t time.Time) string {
	return fmt.Sprintf("%s_%s_%s",
		strings.ReplaceAll(id.Model, " ", "_"),
		id.Serial,
		t.Format("2006-01-02_15.04.05"),
	)
}

func (id Identity) String() string {
	return strings.Join([]string{id.Company, id.Model, id.Serial, id.Firmware}, ",")
}
