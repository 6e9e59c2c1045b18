// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// errors.go

package rollup

import "fmt"

// MissingFieldError is surfaced when a Sample lacks a field the rollup
// requires: "ts" when the timestamp is absent, or "duration" when neither
// timers.dur nor timers.duration is present.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("rollup: missing field %q", e.Field)
}
