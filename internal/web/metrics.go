package web

import "sync"

var kindRecorderMu sync.RWMutex

var kindRecorder func(kind string)

// SetKindRecorder registers fn to receive the taxonomy kind of every failure
// that reaches the rendering boundary. A nil fn disables recording.
func SetKindRecorder(fn func(kind string)) {
	kindRecorderMu.Lock()
	defer kindRecorderMu.Unlock()
	kindRecorder = fn
}

func recordKind(kind string) {
	kindRecorderMu.RLock()
	fn := kindRecorder
	kindRecorderMu.RUnlock()
	if fn != nil {
		fn(kind)
	}
}
