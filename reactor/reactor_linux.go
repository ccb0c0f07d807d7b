//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux eventfd(2) wake backend, waited on through epoll(7).

package reactor

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

const eventfdSupported = true

type eventfdBackend struct {
	efd    int
	epfd   int
	events [1]unix.EpollEvent
}

func newEventfdBackend() (wakeBackend, error) {
	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("eventfd create: %w", err)
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = unix.Close(efd)
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(efd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, efd, &ev); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(efd)
		return nil, fmt.Errorf("epoll ctl add: %w", err)
	}
	return &eventfdBackend{efd: efd, epfd: epfd}, nil
}

func (b *eventfdBackend) signal() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(b.efd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			// EAGAIN: counter saturated, a wakeup is already pending
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("eventfd write: %w", err)
		}
	}
}

func (b *eventfdBackend) wait() error {
	for {
		n, err := unix.EpollWait(b.epfd, b.events[:], -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("epoll wait: %w", err)
		}
		if n > 0 {
			break
		}
	}
	var buf [8]byte
	for {
		_, err := unix.Read(b.efd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("eventfd read: %w", err)
		}
	}
}

func (b *eventfdBackend) close() error {
	return multierr.Append(unix.Close(b.epfd), unix.Close(b.efd))
}
