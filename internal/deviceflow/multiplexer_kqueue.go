//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package deviceflow

import "golang.org/x/sys/unix"

// kqueueMultiplexer backs the Multiplexer on BSD-derived kernels
// (including Darwin) with kqueue, registering both socket readiness
// and an EVFILT_TIMER for the retry interval on the same queue.
type kqueueMultiplexer struct {
	kq int
}

const timerIdent = 1

func newPlatformMultiplexer() (Multiplexer, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, &FlowError{Kind: KindSetup, Detail: "kqueue: " + err.Error()}
	}
	return &kqueueMultiplexer{kq: kq}, nil
}

func (m *kqueueMultiplexer) apply(changes []unix.Kevent_t) error {
	_, err := unix.Kevent(m.kq, changes, nil, nil)
	if err != nil && err != unix.ENOENT {
		return &FlowError{Kind: KindSetup, Detail: "kevent: " + err.Error()}
	}
	return nil
}

func (m *kqueueMultiplexer) Register(fd int, mode Mode) error {
	if mode == Remove {
		changes := []unix.Kevent_t{
			{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
			{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
		}
		return m.apply(changes)
	}

	var changes []unix.Kevent_t
	if mode == Read || mode == ReadWrite {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD})
	}
	if mode == Write || mode == ReadWrite {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD})
	}
	return m.apply(changes)
}

func (m *kqueueMultiplexer) SetTimer(millis int64) error {
	if millis < 0 {
		changes := []unix.Kevent_t{{Ident: timerIdent, Filter: unix.EVFILT_TIMER, Flags: unix.EV_DELETE}}
		return m.apply(changes)
	}
	if millis == 0 {
		millis = 1
	}
	changes := []unix.Kevent_t{{
		Ident:  timerIdent,
		Filter: unix.EVFILT_TIMER,
		Flags:  unix.EV_ADD | unix.EV_ONESHOT,
		Data:   millis,
	}}
	return m.apply(changes)
}

func (m *kqueueMultiplexer) Descriptor() int { return m.kq }

func (m *kqueueMultiplexer) Close() error { return unix.Close(m.kq) }
