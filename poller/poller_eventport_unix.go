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

//go:build solaris || illumos

package poller

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Event ports deliver an association exactly once: every fired event
// consumes its port_associate, so the event loop re-associates fd with its
// registered mask on the caller's behalf after each delivery, unless the
// callback removed fd. There is no persistent edge/level interest
// the way epoll or kqueue keep one.
type eventPortPoller struct {
	base

	capacity int
	portfd   int

	mu       sync.Mutex
	userPtrs map[int]interface{}
	masks    map[int]Code
}

func New(capacity int, onEvent EventFunc, onStop StopFunc) (Interface, error) {
	if capacity <= 0 {
		return nil, ErrorCapacityInvalid.Error(nil)
	}

	return &eventPortPoller{
		base:     newBase(onEvent, onStop),
		capacity: capacity,
		portfd:   -1,
		userPtrs: make(map[int]interface{}, capacity),
		masks:    make(map[int]Code, capacity),
	}, nil
}

func (p *eventPortPoller) Setup() error {
	fd, err := unix.PortCreate()
	if err != nil {
		return ErrorBackendSetup.Error(err)
	}

	p.portfd = fd
	return nil
}

func (p *eventPortPoller) Run() error {
	go p.loop()
	return nil
}

func (p *eventPortPoller) Wait() {
	p.base.wait()
}

func (p *eventPortPoller) Stop() {
	p.requestStop()
}

func toPollEvents(mask Code) int {
	var e int

	if mask.Has(Read) {
		e |= unix.POLLIN
	}
	if mask.Has(Write) {
		e |= unix.POLLOUT
	}

	return e
}

func (p *eventPortPoller) associate(fd int, mask Code) error {
	return unix.PortAssociate(p.portfd, unix.PORT_SOURCE_FD, uintptr(fd), toPollEvents(mask), nil)
}

func (p *eventPortPoller) loop() {
	defer p.finish()

	events := make([]unix.PortEvent, p.capacity)

	for {
		if p.stopped() {
			return
		}

		n, err := unix.PortGetn(p.portfd, events, uint32(p.capacity), nil)
		if err != nil {
			if err == unix.EINTR || err == unix.ETIME {
				continue
			}
			return
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Object)

			p.mu.Lock()
			userPtr, ok := p.userPtrs[fd]
			mask := p.masks[fd]
			p.mu.Unlock()
			if !ok {
				continue
			}

			var code Code
			if ev.Events&unix.POLLIN != 0 {
				code |= Read
			}
			if ev.Events&unix.POLLOUT != 0 {
				code |= Write
			}
			if ev.Events&unix.POLLERR != 0 {
				code |= Error
			}
			if ev.Events&(unix.POLLHUP|unix.POLLRDHUP) != 0 {
				code |= Close
			}

			if code != 0 {
				p.onEvent(p, code, userPtr)
			}

			// Re-arm unless the fd was removed by the callback.
			p.mu.Lock()
			_, stillWanted := p.userPtrs[fd]
			p.mu.Unlock()
			if stillWanted {
				_ = p.associate(fd, mask)
			}
		}
	}
}

func (p *eventPortPoller) Add(fd int, mask Code, userPtr interface{}) error {
	p.mu.Lock()
	if len(p.userPtrs) >= p.capacity {
		p.mu.Unlock()
		return ErrorCapacityExceeded.Error(nil)
	}
	p.userPtrs[fd] = userPtr
	p.masks[fd] = mask
	p.mu.Unlock()

	if err := p.associate(fd, mask); err != nil {
		p.mu.Lock()
		delete(p.userPtrs, fd)
		delete(p.masks, fd)
		p.mu.Unlock()
		return ErrorBackendAdd.Error(err)
	}

	return nil
}

func (p *eventPortPoller) Modify(fd int, mask Code, userPtr interface{}) error {
	p.mu.Lock()
	p.userPtrs[fd] = userPtr
	p.masks[fd] = mask
	p.mu.Unlock()

	if err := p.associate(fd, mask); err != nil {
		return ErrorBackendModify.Error(err)
	}

	return nil
}

func (p *eventPortPoller) Remove(fd int, _ Code) error {
	p.mu.Lock()
	delete(p.userPtrs, fd)
	delete(p.masks, fd)
	p.mu.Unlock()

	_ = unix.PortDissociate(p.portfd, unix.PORT_SOURCE_FD, uintptr(fd))
	return nil
}

func (p *eventPortPoller) Cleanup() error {
	return unix.Close(p.portfd)
}
