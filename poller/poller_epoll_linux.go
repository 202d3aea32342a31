/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

//go:build linux

package poller

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epoll requires no re-arm between events (the README's "native" column):
// the interest mask persists until the next Modify or Remove.
type epollPoller struct {
	base

	capacity int
	epfd     int

	mu       sync.Mutex
	userPtrs map[int]interface{}
}

// New constructs the epoll-backed Poller. capacity bounds the number of
// simultaneously registered descriptors.
func New(capacity int, onEvent EventFunc, onStop StopFunc) (Interface, error) {
	if capacity <= 0 {
		return nil, ErrorCapacityInvalid.Error(nil)
	}

	return &epollPoller{
		base:     newBase(onEvent, onStop),
		capacity: capacity,
		epfd:     -1,
		userPtrs: make(map[int]interface{}, capacity),
	}, nil
}

func (p *epollPoller) Setup() error {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return ErrorBackendSetup.Error(err)
	}

	p.epfd = fd
	return nil
}

func (p *epollPoller) Run() error {
	go p.loop()
	return nil
}

func (p *epollPoller) Wait() {
	p.base.wait()
}

func (p *epollPoller) Stop() {
	p.requestStop()
}

func (p *epollPoller) loop() {
	defer p.finish()

	events := make([]unix.EpollEvent, p.capacity)

	for {
		if p.stopped() {
			return
		}

		n, err := unix.EpollWait(p.epfd, events, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)

			p.mu.Lock()
			userPtr, ok := p.userPtrs[fd]
			p.mu.Unlock()
			if !ok {
				continue
			}

			var code Code
			if ev.Events&unix.EPOLLIN != 0 {
				code |= Read
			}
			if ev.Events&unix.EPOLLOUT != 0 {
				code |= Write
			}
			if ev.Events&unix.EPOLLERR != 0 {
				code |= Error
			}
			if ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
				code |= Close
			}

			if code != 0 {
				p.onEvent(p, code, userPtr)
			}
		}
	}
}

func toEpollEvents(mask Code) uint32 {
	var e uint32

	if mask.Has(Read) {
		e |= unix.EPOLLIN
	}
	if mask.Has(Write) {
		e |= unix.EPOLLOUT
	}
	e |= unix.EPOLLRDHUP
	if mask.Has(EdgeTriggered) {
		e |= unix.EPOLLET
	}

	return e
}

func (p *epollPoller) Add(fd int, mask Code, userPtr interface{}) error {
	p.mu.Lock()
	if len(p.userPtrs) >= p.capacity {
		p.mu.Unlock()
		return ErrorCapacityExceeded.Error(nil)
	}
	p.userPtrs[fd] = userPtr
	p.mu.Unlock()

	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		p.mu.Lock()
		delete(p.userPtrs, fd)
		p.mu.Unlock()
		return ErrorBackendAdd.Error(err)
	}

	return nil
}

func (p *epollPoller) Modify(fd int, mask Code, userPtr interface{}) error {
	p.mu.Lock()
	p.userPtrs[fd] = userPtr
	p.mu.Unlock()

	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return ErrorBackendModify.Error(err)
	}

	return nil
}

func (p *epollPoller) Remove(fd int, _ Code) error {
	p.mu.Lock()
	delete(p.userPtrs, fd)
	p.mu.Unlock()

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return ErrorBackendRemove.Error(err)
	}

	return nil
}

func (p *epollPoller) Cleanup() error {
	return unix.Close(p.epfd)
}
