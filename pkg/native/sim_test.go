package native

import "testing"

func TestSimRequiresInit(t *testing.T) {
	s := NewSim(DefaultSimDevices(1)...)

	if _, st := s.SocketHandles(); st != StatusNotInit {
		t.Errorf("SocketHandles before Init: status = %v, want StatusNotInit", st)
	}
	if st := s.Init(); !st.OK() {
		t.Fatalf("Init: %v", st)
	}
	if _, st := s.SocketHandles(); !st.OK() {
		t.Errorf("SocketHandles after Init: %v", st)
	}
}

func TestSimDiscovery(t *testing.T) {
	s := NewSim(DefaultSimDevices(3)...)
	s.Init()

	sockets, st := s.SocketHandles()
	if !st.OK() {
		t.Fatalf("SocketHandles: %v", st)
	}
	if len(sockets) != 3 {
		t.Fatalf("sockets = %d, want 3 (one per fixture)", len(sockets))
	}

	var total int
	for _, sock := range sockets {
		procs, st := s.ProcessorHandles(sock)
		if !st.OK() {
			t.Fatalf("ProcessorHandles: %v", st)
		}
		total += len(procs)
	}
	if total != 3 {
		t.Errorf("processors = %d, want 3", total)
	}
}

func TestSimForceStatusPerDevice(t *testing.T) {
	s := NewSim(DefaultSimDevices(2)...)
	s.Init()
	s.ForceStatus("EngineUsage/1", StatusBusy)

	h0 := ProcessorHandle(simProcessorBase)
	h1 := ProcessorHandle(simProcessorBase + 1)

	if _, st := s.EngineUsage(h0); !st.OK() {
		t.Errorf("device 0: %v", st)
	}
	if _, st := s.EngineUsage(h1); st != StatusBusy {
		t.Errorf("device 1: status = %v, want StatusBusy", st)
	}
}

func TestSimTopologyDefaults(t *testing.T) {
	devices := DefaultSimDevices(3)
	devices[2].HiveID = 0x2002
	s := NewSim(devices...)
	s.Init()

	h0 := ProcessorHandle(simProcessorBase)
	h1 := ProcessorHandle(simProcessorBase + 1)
	h2 := ProcessorHandle(simProcessorBase + 2)

	hops, link, st := s.LinkType(h0, h1)
	if !st.OK() || link != LinkXGMI || hops != 1 {
		t.Errorf("same hive: (%d, %v, %v), want (1, XGMI, success)", hops, link, st)
	}

	_, link, st = s.LinkType(h0, h2)
	if !st.OK() || link != LinkPCIe {
		t.Errorf("cross hive: (%v, %v), want (PCIe, success)", link, st)
	}

	if _, _, st := s.MinMaxBandwidth(h0, h2); st != StatusNotSupported {
		t.Errorf("cross-hive bandwidth: status = %v, want StatusNotSupported", st)
	}
}

func TestStatusStrings(t *testing.T) {
	if got := StatusNoPermission.String(); got != "permission denied" {
		t.Errorf("String = %q", got)
	}
	if got := Status(999).String(); got != "unrecognized status code 999" {
		t.Errorf("String = %q", got)
	}
	if !StatusSuccess.OK() || StatusBusy.OK() {
		t.Error("OK() verdicts wrong")
	}
}
