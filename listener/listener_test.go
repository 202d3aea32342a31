//go:build linux

package listener_test

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/nabbar/staticd/listener"
	"github.com/nabbar/staticd/manager"
	"github.com/nabbar/staticd/metrics"
	"github.com/nabbar/staticd/transport"
	"github.com/nabbar/staticd/worker"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	return m.GetCounter().GetValue()
}

func TestListener_AcceptsAndAssignsRoundRobin(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	canon, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}

	mgr, err := manager.New(8, 4096)
	if err != nil {
		t.Fatalf("manager.New() error = %v", err)
	}

	var workers []*worker.Worker
	for i := 0; i < 2; i++ {
		w, werr := worker.New(4, 4096, mgr, nil)
		if werr != nil {
			t.Fatalf("worker.New() error = %v", werr)
		}
		if err := w.Setup(); err != nil {
			t.Fatalf("worker Setup() error = %v", err)
		}
		if err := w.Run(); err != nil {
			t.Fatalf("worker Run() error = %v", err)
		}
		defer func(w *worker.Worker) {
			w.Stop()
			w.Wait()
			_ = w.Cleanup()
		}(w)
		workers = append(workers, w)
	}

	ep := &transport.ServerEndpoint{Family: transport.FamilyV4, Address: "127.0.0.1", Port: 0, Backlog: 16}

	reg := metrics.New(prometheus.NewRegistry())

	l, err := listener.New(ep, root, canon, mgr, workers, reg)
	if err != nil {
		t.Fatalf("listener.New() error = %v", err)
	}
	if err := l.Setup(); err != nil {
		t.Fatalf("listener Setup() error = %v", err)
	}
	if err := l.Run(); err != nil {
		t.Fatalf("listener Run() error = %v", err)
	}
	defer func() {
		l.Stop()
		l.Wait()
		_ = l.Cleanup()
	}()

	sa, err := unix.Getsockname(ep.Fd())
	if err != nil {
		t.Fatalf("Getsockname() error = %v", err)
	}
	port := sa.(*unix.SockaddrInet4).Port
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	for i := 0; i < 3; i++ {
		client, derr := net.Dial("tcp", addr)
		if derr != nil {
			t.Fatalf("Dial() error = %v", derr)
		}

		if _, err := client.Write([]byte("GET / HTTP/1.1\r\n\r\n")); err != nil {
			t.Fatalf("client Write() error = %v", err)
		}

		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 4096)
		n, rerr := client.Read(buf)
		if rerr != nil {
			t.Fatalf("client Read() error = %v", rerr)
		}
		if n == 0 {
			t.Fatal("expected response bytes on the wire")
		}
		_ = client.Close()
	}

	if got := counterValue(t, reg.Accepted); got != 3 {
		t.Fatalf("Accepted = %v, want 3", got)
	}
}
