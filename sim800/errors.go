// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

package sim800

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/warthog618/sim800/at"
)

var (
	// ErrInvalidPowerMode indicates the requested power mode cannot be set.
	ErrInvalidPowerMode = errors.New("invalid power mode")

	// ErrPowerModeUnavailable indicates the current power mode of the modem
	// could not be determined.
	ErrPowerModeUnavailable = errors.New("power mode unavailable")

	// ErrPowerTransition indicates the modem cannot switch directly from its
	// current power mode to the requested mode.
	ErrPowerTransition = errors.New("power mode transition not allowed")

	// ErrPowerModeNotReached indicates the modem did not report the requested
	// power mode after the switch.
	ErrPowerModeNotReached = errors.New("power mode not reached")

	// ErrMalformedResponse indicates the modem returned a response that could
	// not be parsed.
	ErrMalformedResponse = errors.New("modem returned malformed response")
)

// Step identifies a step of an HTTP session.
type Step int

const (
	StepInit Step = iota
	StepBearer
	StepURL
	StepSSL
	StepContentType
	StepData
	StepAction
	StepServer
	StepRead
	StepTerminate
)

var stepNames = map[Step]string{
	StepInit:        "init",
	StepBearer:      "bearer",
	StepURL:         "url",
	StepSSL:         "ssl",
	StepContentType: "content type",
	StepData:        "data",
	StepAction:      "action",
	StepServer:      "server",
	StepRead:        "read",
	StepTerminate:   "terminate",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Status codes returned in place of an HTTP status when an HTTP session
// fails.
//
// Apart from CodeServerTimeout the codes lie outside the HTTP status range.
const (
	CodeServerTimeout = 408
	CodeInitFailed    = 701
	CodeParamFailed   = 702
	CodeActionFailed  = 703
	CodeReadFailed    = 705
	CodeTermFailed    = 706
	CodeDataFailed    = 707
)

// Code returns the status code reported when the step fails.
func (s Step) Code() int {
	switch s {
	case StepInit:
		return CodeInitFailed
	case StepBearer, StepURL, StepSSL, StepContentType:
		return CodeParamFailed
	case StepData:
		return CodeDataFailed
	case StepServer:
		return CodeServerTimeout
	case StepRead:
		return CodeReadFailed
	case StepTerminate:
		return CodeTermFailed
	default:
		return CodeActionFailed
	}
}

// SessionError indicates an HTTP session failed at a particular step.
type SessionError struct {
	Step Step
	Err  error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("http %s failed (%d): %v", e.Step, e.Code(), e.Err)
}

// Code returns the status code corresponding to the failed step.
func (e *SessionError) Code() int {
	return e.Step.Code()
}

// Cause returns the underlying error.
func (e *SessionError) Cause() error {
	return e.Err
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// StatusCode folds the results of Get or Post into a single status code.
//
// If err is nil the HTTP status is returned, else the code of the failed
// step. An error that did not arise from an HTTP session step maps to
// CodeActionFailed.
func StatusCode(status int, err error) int {
	if err == nil {
		return status
	}
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code()
	}
	return CodeActionFailed
}

// IsServerTimeout returns true if the error indicates the server did not
// respond within the server timeout.
func IsServerTimeout(err error) bool {
	var se *SessionError
	return errors.As(err, &se) && se.Step == StepServer && errors.Cause(se.Err) == at.ErrTimeout
}
