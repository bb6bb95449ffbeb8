package huffman

import (
	"bytes"
	"sync"
)

// Estimator computes bits saved estimates for independent inputs.
// It is safe for concurrent use; every call runs on its own pooled Session.
type Estimator struct {
	// pool of sessions
	poolLock sync.Mutex
	sessions []*Session

	format Format
}

func NewEstimator(format Format) *Estimator {
	return &Estimator{format: format}
}

// EstimateSavings returns the number of bits saved by compressing data.
func (e *Estimator) EstimateSavings(data []byte) (int, error) {
	s := e.getSession()
	defer e.freeSession(s)

	return s.Preprocess(bytes.NewReader(data), e.format)
}

func (e *Estimator) getSession() *Session {
	e.poolLock.Lock()
	defer e.poolLock.Unlock()
	if len(e.sessions) == 0 {
		return NewSession()
	}
	s := e.sessions[len(e.sessions)-1]
	e.sessions = e.sessions[:len(e.sessions)-1]
	return s
}

func (e *Estimator) freeSession(s *Session) {
	s.Reset()
	e.poolLock.Lock()
	defer e.poolLock.Unlock()
	e.sessions = append(e.sessions, s)
}
