//go:build linux

package deviceflow

import "golang.org/x/sys/unix"

// epollMultiplexer backs the Multiplexer on Linux with epoll for
// socket readiness and timerfd for the retry interval, mirroring the
// epoll/timerfd branch of a libcurl multi-socket event loop.
type epollMultiplexer struct {
	epfd       int
	timerfd    int
	registered map[int]Mode
}

func newPlatformMultiplexer() (Multiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, &FlowError{Kind: KindSetup, Detail: "epoll_create1: " + err.Error()}
	}
	timerfd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, &FlowError{Kind: KindSetup, Detail: "timerfd_create: " + err.Error()}
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(timerfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, timerfd, &ev); err != nil {
		unix.Close(timerfd)
		unix.Close(epfd)
		return nil, &FlowError{Kind: KindSetup, Detail: "epoll_ctl: " + err.Error()}
	}
	return &epollMultiplexer{epfd: epfd, timerfd: timerfd, registered: make(map[int]Mode)}, nil
}

func (m *epollMultiplexer) Register(fd int, mode Mode) error {
	if mode == Remove {
		if _, ok := m.registered[fd]; !ok {
			return nil
		}
		delete(m.registered, fd)
		if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT {
			return &FlowError{Kind: KindSetup, Detail: "epoll_ctl(DEL): " + err.Error()}
		}
		return nil
	}

	var events uint32
	switch mode {
	case Read:
		events = unix.EPOLLIN
	case Write:
		events = unix.EPOLLOUT
	case ReadWrite:
		events = unix.EPOLLIN | unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if _, ok := m.registered[fd]; ok {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(m.epfd, op, fd, &ev); err != nil {
		return &FlowError{Kind: KindSetup, Detail: "epoll_ctl: " + err.Error()}
	}
	m.registered[fd] = mode
	return nil
}

func (m *epollMultiplexer) SetTimer(millis int64) error {
	var spec unix.ItimerSpec
	switch {
	case millis < 0:
		// zero Value disarms the timer
	case millis == 0:
		spec.Value.Nsec = 1
	default:
		spec.Value.Sec = millis / 1000
		spec.Value.Nsec = (millis % 1000) * 1_000_000
	}
	if err := unix.TimerfdSettime(m.timerfd, 0, &spec, nil); err != nil {
		return &FlowError{Kind: KindSetup, Detail: "timerfd_settime: " + err.Error()}
	}
	return nil
}

func (m *epollMultiplexer) Descriptor() int { return m.epfd }

func (m *epollMultiplexer) Close() error {
	unix.Close(m.timerfd)
	return unix.Close(m.epfd)
}
