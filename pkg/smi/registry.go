package smi

import (
	"fmt"
	"log/slog"

	"github.com/gosmi-project/gosmi/pkg/native"
)

// registry is the index-to-handle mapping built once per session. Device
// indices are dense, start at zero, and stay stable until Shutdown; they
// follow socket enumeration order, then processor order within a socket.
type registry struct {
	handles  []native.ProcessorHandle
	sockets  []native.SocketHandle
	socketOf []int // device index -> position in sockets
}

// discover walks sockets and their processors to build the registry. A
// socket whose processors cannot be enumerated is logged and skipped; the
// session still comes up with the devices that did enumerate.
func discover(lib native.Library, logger *slog.Logger) (*registry, error) {
	sockets, st := lib.SocketHandles()
	if err := statusError("socket discovery", st); err != nil {
		return nil, err
	}

	reg := &registry{sockets: sockets}
	for si, sock := range sockets {
		procs, st := lib.ProcessorHandles(sock)
		if !st.OK() {
			logger.Warn("skipping socket with unreadable processors",
				"socket", si, "status", st.String())
			continue
		}
		for _, h := range procs {
			reg.handles = append(reg.handles, h)
			reg.socketOf = append(reg.socketOf, si)
		}
	}
	return reg, nil
}

func (r *registry) count() int { return len(r.handles) }

func (r *registry) handleFor(index int) (native.ProcessorHandle, error) {
	if index < 0 || index >= len(r.handles) {
		return 0, fmt.Errorf("device %d of %d: %w", index, len(r.handles), ErrIndexOutOfRange)
	}
	return r.handles[index], nil
}

func (r *registry) socketFor(index int) (native.SocketHandle, error) {
	if index < 0 || index >= len(r.socketOf) {
		return 0, fmt.Errorf("device %d of %d: %w", index, len(r.socketOf), ErrIndexOutOfRange)
	}
	return r.sockets[r.socketOf[index]], nil
}
