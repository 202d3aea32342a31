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

//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package poller

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueue has no in-place "modify an existing registration's mask" operation:
// READ and WRITE are independent filters. EV_CLEAR gives edge-triggered
// semantics per filter. The capacity ceiling is doubled internally because a
// READ+WRITE registration consumes two kqueue entries.
type kqueuePoller struct {
	base

	capacity int
	kqfd     int

	mu       sync.Mutex
	userPtrs map[int]interface{}
	hasWrite map[int]bool
}

func New(capacity int, onEvent EventFunc, onStop StopFunc) (Interface, error) {
	if capacity <= 0 {
		return nil, ErrorCapacityInvalid.Error(nil)
	}

	return &kqueuePoller{
		base:     newBase(onEvent, onStop),
		capacity: capacity * 2,
		kqfd:     -1,
		userPtrs: make(map[int]interface{}, capacity),
		hasWrite: make(map[int]bool, capacity),
	}, nil
}

func (p *kqueuePoller) Setup() error {
	fd, err := unix.Kqueue()
	if err != nil {
		return ErrorBackendSetup.Error(err)
	}

	p.kqfd = fd
	return nil
}

func (p *kqueuePoller) Run() error {
	go p.loop()
	return nil
}

func (p *kqueuePoller) Wait() {
	p.base.wait()
}

func (p *kqueuePoller) Stop() {
	p.requestStop()
}

func (p *kqueuePoller) loop() {
	defer p.finish()

	events := make([]unix.Kevent_t, p.capacity)
	timeout := &unix.Timespec{Sec: 1}

	for {
		if p.stopped() {
			return
		}

		n, err := unix.Kevent(p.kqfd, nil, events, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Ident)

			p.mu.Lock()
			userPtr, ok := p.userPtrs[fd]
			p.mu.Unlock()
			if !ok {
				continue
			}

			var code Code
			switch ev.Filter {
			case unix.EVFILT_READ:
				code |= Read
			case unix.EVFILT_WRITE:
				code |= Write
			}
			if ev.Flags&unix.EV_EOF != 0 {
				code |= Close
			}
			if ev.Flags&unix.EV_ERROR != 0 {
				code |= Error
			}

			if code != 0 {
				p.onEvent(p, code, userPtr)
			}
		}
	}
}

func (p *kqueuePoller) changeFilter(fd int, filter int16, flags uint16) error {
	changes := []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}}

	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	return err
}

func (p *kqueuePoller) Add(fd int, mask Code, userPtr interface{}) error {
	p.mu.Lock()
	if len(p.userPtrs) >= p.capacity/2 {
		p.mu.Unlock()
		return ErrorCapacityExceeded.Error(nil)
	}
	_, already := p.userPtrs[fd]
	p.userPtrs[fd] = userPtr
	p.mu.Unlock()

	clearFlag := uint16(0)
	if mask.Has(EdgeTriggered) {
		clearFlag = unix.EV_CLEAR
	}

	if !already {
		if err := p.changeFilter(fd, unix.EVFILT_READ, unix.EV_ADD|clearFlag); err != nil {
			p.mu.Lock()
			delete(p.userPtrs, fd)
			p.mu.Unlock()
			return ErrorBackendAdd.Error(err)
		}
	}

	if mask.Has(Write) {
		if err := p.changeFilter(fd, unix.EVFILT_WRITE, unix.EV_ADD|clearFlag); err != nil {
			return ErrorBackendAdd.Error(err)
		}
		p.mu.Lock()
		p.hasWrite[fd] = true
		p.mu.Unlock()
	}

	return nil
}

// Modify realizes the kqueue interest-adjustment policy: add the WRITE
// filter (idempotent) when it should be present, remove it when it should
// not, leaving the always-registered READ filter untouched.
func (p *kqueuePoller) Modify(fd int, mask Code, userPtr interface{}) error {
	p.mu.Lock()
	p.userPtrs[fd] = userPtr
	wantWrite := mask.Has(Write)
	hadWrite := p.hasWrite[fd]
	p.mu.Unlock()

	clearFlag := uint16(0)
	if mask.Has(EdgeTriggered) {
		clearFlag = unix.EV_CLEAR
	}

	if wantWrite && !hadWrite {
		if err := p.changeFilter(fd, unix.EVFILT_WRITE, unix.EV_ADD|clearFlag); err != nil {
			return ErrorBackendModify.Error(err)
		}
		p.mu.Lock()
		p.hasWrite[fd] = true
		p.mu.Unlock()
	} else if !wantWrite && hadWrite {
		_ = p.changeFilter(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
		p.mu.Lock()
		p.hasWrite[fd] = false
		p.mu.Unlock()
	}

	return nil
}

func (p *kqueuePoller) Remove(fd int, _ Code) error {
	p.mu.Lock()
	hadWrite := p.hasWrite[fd]
	delete(p.userPtrs, fd)
	delete(p.hasWrite, fd)
	p.mu.Unlock()

	_ = p.changeFilter(fd, unix.EVFILT_READ, unix.EV_DELETE)
	if hadWrite {
		_ = p.changeFilter(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	}

	return nil
}

func (p *kqueuePoller) Cleanup() error {
	return unix.Close(p.kqfd)
}
