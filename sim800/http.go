// SPDX-License-Identifier: MIT
//
// Copyright © 2020 Kent Gibson <warthog618@gmail.com>.

package sim800

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warthog618/sim800/at"
	"github.com/warthog618/sim800/info"
)

const (
	actionGet  = 0
	actionPost = 1
)

// Get performs an HTTP or HTTPS GET on the URL.
//
// The serverTimeout bounds the time waiting for the server to respond once
// the request has been issued.
//
// On success the HTTP status is returned, and for status 200 the payload is
// available via ReceivedData. On failure a *SessionError identifies the
// failed step. The session is not terminated after a failure, so the caller
// may call TerminateHTTP before retrying.
func (m *Modem) Get(url string, serverTimeout time.Duration) (int, error) {
	m.resetReceived()
	if err := m.initiateHTTP(url); err != nil {
		return 0, err
	}
	if err := m.run("+HTTPACTION=0", m.cmdTimeout); err != nil {
		return 0, m.fail(StepAction, err)
	}
	return m.completeHTTP(actionGet, serverTimeout)
}

// Post performs an HTTP or HTTPS POST of the payload to the URL.
//
// The clientWriteTimeout is the time the modem allows for the payload to be
// written to it. The serverTimeout bounds the time waiting for the server to
// respond once the request has been issued.
//
// Results are as per Get.
func (m *Modem) Post(url, contentType string, payload []byte, clientWriteTimeout, serverTimeout time.Duration) (int, error) {
	m.resetReceived()
	if err := m.initiateHTTP(url); err != nil {
		return 0, err
	}
	if err := m.runQuoted("+HTTPPARA=\"CONTENT\",", contentType, m.cmdTimeout); err != nil {
		return 0, m.fail(StepContentType, err)
	}
	cmd := fmt.Sprintf("+HTTPDATA=%d,%d", len(payload), clientWriteTimeout.Milliseconds())
	if err := m.Command(cmd); err != nil {
		return 0, m.fail(StepData, err)
	}
	if err := m.Expect(m.cmdTimeout, "DOWNLOAD", 1); err != nil {
		return 0, m.fail(StepData, err)
	}
	m.log.Debug("http payload", zap.ByteString("payload", payload))
	if err := m.Write(payload); err != nil {
		return 0, m.fail(StepData, err)
	}
	if err := m.run("+HTTPACTION=1", m.cmdTimeout); err != nil {
		return 0, m.fail(StepAction, err)
	}
	return m.completeHTTP(actionPost, serverTimeout)
}

// ReceivedLength returns the length of the payload received by the most
// recent Get or Post.
//
// The length is 0 unless the request completed with status 200, and never
// exceeds the capacity of the receive buffer.
func (m *Modem) ReceivedLength() int {
	return m.recvLen
}

// ReceivedData returns the payload received by the most recent Get or Post.
//
// The slice aliases the receive buffer and is only valid until the next Get
// or Post.
func (m *Modem) ReceivedData() []byte {
	return m.recv.Bytes()[:m.recvLen]
}

// TerminateHTTP terminates the HTTP session on the modem.
func (m *Modem) TerminateHTTP() error {
	if err := m.run("+HTTPTERM", m.cmdTimeout); err != nil {
		return m.fail(StepTerminate, err)
	}
	return nil
}

func (m *Modem) resetReceived() {
	m.recv.Reset()
	m.recvLen = 0
}

// initiateHTTP starts an HTTP session on the GPRS bearer and sets the URL.
func (m *Modem) initiateHTTP(url string) error {
	if err := m.run("+HTTPINIT", m.cmdTimeout); err != nil {
		return m.fail(StepInit, err)
	}
	if err := m.run("+HTTPPARA=\"CID\",1", m.cmdTimeout); err != nil {
		return m.fail(StepBearer, err)
	}
	if err := m.runQuoted("+HTTPPARA=\"URL\",", url, m.cmdTimeout); err != nil {
		return m.fail(StepURL, err)
	}
	ssl := "+HTTPSSL=0"
	if strings.HasPrefix(url, "https://") {
		ssl = "+HTTPSSL=1"
	}
	if err := m.run(ssl, m.cmdTimeout); err != nil {
		return m.fail(StepSSL, err)
	}
	return nil
}

// completeHTTP waits for the result of the action, reads any payload and
// terminates the session.
func (m *Modem) completeHTTP(action int, serverTimeout time.Duration) (int, error) {
	// +HTTPACTION: <method>,<status>,<length>
	prefix := fmt.Sprintf("+HTTPACTION: %d,", action)
	if err := m.Expect(serverTimeout, prefix, 1); err != nil {
		if err == at.ErrTimeout {
			return 0, m.fail(StepServer, err)
		}
		return 0, m.fail(StepAction, err)
	}
	rsp := m.Response()
	base := info.Index(rsp, prefix, 0) + len(prefix)
	status, n := info.ParseUint(rsp, base)
	if n != 3 {
		return 0, m.fail(StepAction, ErrMalformedResponse)
	}
	m.log.Debug("http status", zap.Int("status", status))
	if status == 200 {
		if len(rsp) <= base+3 || rsp[base+3] != ',' {
			return 0, m.fail(StepAction, ErrMalformedResponse)
		}
		length, n := info.ParseUint(rsp, base+4)
		if n == 0 {
			return 0, m.fail(StepAction, ErrMalformedResponse)
		}
		m.log.Debug("http data size", zap.Int("length", length))
		if length > 0 {
			if err := m.readHTTP(length); err != nil {
				return 0, err
			}
		}
	}
	if err := m.TerminateHTTP(); err != nil {
		return 0, err
	}
	return status, nil
}

// readHTTP reads the payload of the response into the receive buffer.
func (m *Modem) readHTTP(length int) error {
	if err := m.Command("+HTTPREAD"); err != nil {
		return m.fail(StepRead, err)
	}
	if err := m.Expect(m.cmdTimeout, "+HTTPREAD: ", 1); err != nil {
		return m.fail(StepRead, err)
	}
	n := length
	if n > m.recv.Cap() {
		n = m.recv.Cap()
		m.log.Debug("http payload truncated",
			zap.Int("length", length),
			zap.Int("capacity", n))
	}
	if _, err := m.ReadPayload(m.recv, n, m.cmdTimeout); err != nil {
		m.recv.Reset()
		return m.fail(StepRead, err)
	}
	if err := m.Expect(m.cmdTimeout, "OK", 1); err != nil {
		m.recv.Reset()
		return m.fail(StepRead, err)
	}
	m.recvLen = n
	return nil
}

func (m *Modem) fail(step Step, err error) error {
	m.log.Warn("http step failed",
		zap.Stringer("step", step),
		zap.Int("code", step.Code()),
		zap.Error(err))
	return &SessionError{Step: step, Err: err}
}
