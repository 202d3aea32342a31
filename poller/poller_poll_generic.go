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

//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !solaris && !illumos

package poller

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/nabbar/staticd/fdmap"
)

// pollPoller is the portable fallback backend: a plain poll(2) scan of a
// flat descriptor list. It has no native edge-triggered mode, so
// EdgeTriggered is simulated by masking out READ/WRITE interest immediately
// after each delivery, the same way the descriptor-to-userPtr association is
// kept in fdmap rather than a language map, mirroring the other backends'
// use of a dedicated lookup structure instead of closures.
type pollPoller struct {
	base

	capacity int

	mu    sync.Mutex
	fds   *fdmap.Map
	masks map[int]Code
	order []int
}

type entry struct {
	userPtr interface{}
}

func New(capacity int, onEvent EventFunc, onStop StopFunc) (Interface, error) {
	if capacity <= 0 {
		return nil, ErrorCapacityInvalid.Error(nil)
	}

	m, err := fdmap.New(capacity)
	if err != nil {
		return nil, ErrorBackendSetup.Error(err)
	}

	return &pollPoller{
		base:     newBase(onEvent, onStop),
		capacity: capacity,
		fds:      m,
		masks:    make(map[int]Code, capacity),
	}, nil
}

func (p *pollPoller) Setup() error {
	return nil
}

func (p *pollPoller) Run() error {
	go p.loop()
	return nil
}

func (p *pollPoller) Wait() {
	p.base.wait()
}

func (p *pollPoller) Stop() {
	p.requestStop()
}

func toPollFdEvents(mask Code) int16 {
	var e int16

	if mask.Has(Read) {
		e |= unix.POLLIN
	}
	if mask.Has(Write) {
		e |= unix.POLLOUT
	}

	return e
}

func (p *pollPoller) loop() {
	defer p.finish()

	for {
		if p.stopped() {
			return
		}

		p.mu.Lock()
		fds := make([]unix.PollFd, 0, len(p.order))
		for _, fd := range p.order {
			mask, ok := p.masks[fd]
			if !ok {
				continue
			}
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: toPollFdEvents(mask)})
		}
		p.mu.Unlock()

		if len(fds) == 0 {
			continue
		}

		n, err := unix.Poll(fds, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}

		for _, pf := range fds {
			if pf.Revents == 0 {
				continue
			}

			fd := int(pf.Fd)

			p.mu.Lock()
			v, ok := p.fds.Get(fd)
			mask := p.masks[fd]
			p.mu.Unlock()
			if !ok {
				continue
			}
			e := v.(*entry)

			var code Code
			if pf.Revents&unix.POLLIN != 0 {
				code |= Read
			}
			if pf.Revents&unix.POLLOUT != 0 {
				code |= Write
			}
			if pf.Revents&unix.POLLERR != 0 {
				code |= Error
			}
			if pf.Revents&(unix.POLLHUP|unix.POLLRDHUP|unix.POLLNVAL) != 0 {
				code |= Close
			}

			if code == 0 {
				continue
			}

			p.onEvent(p, code, e.userPtr)

			// Edge-triggered simulation: drop the fired directions from
			// interest until the owner calls Modify to re-arm them.
			if mask.Has(EdgeTriggered) {
				p.mu.Lock()
				cur := p.masks[fd]
				if code.Has(Read) {
					cur &^= Read
				}
				if code.Has(Write) {
					cur &^= Write
				}
				p.masks[fd] = cur
				p.mu.Unlock()
			}
		}
	}
}

func (p *pollPoller) Add(fd int, mask Code, userPtr interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fds.Add(fd, &entry{userPtr: userPtr}); err != nil {
		return ErrorCapacityExceeded.Error(err)
	}

	p.masks[fd] = mask
	p.order = append(p.order, fd)
	return nil
}

func (p *pollPoller) Modify(fd int, mask Code, userPtr interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.fds.Get(fd); !ok {
		return ErrorNotFound.Error(nil)
	}

	_ = p.fds.Remove(fd)
	if err := p.fds.Add(fd, &entry{userPtr: userPtr}); err != nil {
		return ErrorBackendModify.Error(err)
	}
	p.masks[fd] = mask
	return nil
}

func (p *pollPoller) Remove(fd int, _ Code) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fds.Remove(fd)
	delete(p.masks, fd)

	for i, v := range p.order {
		if v == fd {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}

	return nil
}

func (p *pollPoller) Cleanup() error {
	return nil
}
