package smi

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BDF is a PCI Bus/Device/Function identifier packed into 64 bits:
// function in bits 0-2, device in bits 3-7, bus in bits 8-15 and domain in
// bits 16-63.
type BDF uint64

func (b BDF) Function() uint8 { return uint8(b & 0x7) }
func (b BDF) Device() uint8   { return uint8((b >> 3) & 0x1f) }
func (b BDF) Bus() uint8      { return uint8((b >> 8) & 0xff) }
func (b BDF) Domain() uint64  { return uint64(b >> 16) }

func (b BDF) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", b.Domain(), b.Bus(), b.Device(), b.Function())
}

// UUIDFormat selects the rendering of a device UUID.
type UUIDFormat int

const (
	// FormatCanonical renders "GPU-<uuid>", the native tooling convention.
	FormatCanonical UUIDFormat = iota
	// FormatRaw renders the bare UUID without prefix.
	FormatRaw
	// FormatVendorLegacy renders "GPU-" followed by the 8-4-4-4-12 dashed
	// form, matching older cross-vendor tooling.
	FormatVendorLegacy
)

func (f UUIDFormat) String() string {
	switch f {
	case FormatCanonical:
		return "canonical"
	case FormatRaw:
		return "raw"
	case FormatVendorLegacy:
		return "vendor-legacy"
	default:
		return "unknown"
	}
}

// DeviceName returns the marketing name of the device.
func (m *Manager) DeviceName(index int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return "", err
	}
	info, st := m.lib.ASICInfo(h)
	if err := statusError("device name", st); err != nil {
		return "", err
	}
	return info.MarketName, nil
}

// DeviceID returns the PCI device id.
func (m *Manager) DeviceID(index int) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	info, st := m.lib.ASICInfo(h)
	if err := statusError("device id", st); err != nil {
		return 0, err
	}
	return info.DeviceID, nil
}

// DeviceRevision returns the PCI revision id.
func (m *Manager) DeviceRevision(index int) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	info, st := m.lib.ASICInfo(h)
	if err := statusError("device revision", st); err != nil {
		return 0, err
	}
	return uint64(info.RevisionID), nil
}

// UniqueID returns the packed BDF of the device, stable across sessions.
func (m *Manager) UniqueID(index int) (BDF, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return 0, err
	}
	raw, st := m.lib.DeviceBDF(h)
	if err := statusError("device bdf", st); err != nil {
		return 0, err
	}
	return BDF(raw), nil
}

// DriverVersion returns the version string of the loaded kernel driver.
func (m *Manager) DriverVersion() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != stateInitialized {
		return "", ErrNotInitialized
	}
	if m.reg.count() == 0 {
		return "", fmt.Errorf("driver version: no devices: %w", ErrDeviceUnavailable)
	}
	v, st := m.lib.DriverVersion(m.reg.handles[0])
	if err := statusError("driver version", st); err != nil {
		return "", err
	}
	return v, nil
}

// UUID returns the device UUID rendered in the requested format. When the
// native UUID query is unsupported the identity degrades to a pseudo-UUID
// derived from the device BDF, which is unique within the machine but not
// portable across hosts. The UUID family capability verdict distinguishes
// the two.
func (m *Manager) UUID(index int, format UUIDFormat) (string, error) {
	switch format {
	case FormatCanonical, FormatRaw, FormatVendorLegacy:
	default:
		return "", fmt.Errorf("uuid format %d: %w", int(format), ErrInvalidArgument)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	h, err := m.handle(index)
	if err != nil {
		return "", err
	}

	raw, st := m.lib.DeviceUUID(h)
	switch kindFor(st) {
	case nil:
		m.caps.observe(capKey{index: index, family: FamilyUUID}, true)
		return renderUUID(strings.TrimPrefix(raw, "GPU-"), format)
	case ErrNotSupported:
		m.caps.observe(capKey{index: index, family: FamilyUUID}, false)
	default:
		return "", statusError("device uuid", st)
	}

	// Fallback: synthesize a pseudo-UUID from the BDF.
	bdf, st := m.lib.DeviceBDF(h)
	if err := statusError("device uuid fallback", st); err != nil {
		return "", err
	}
	m.logger.Debug("uuid unsupported, using bdf-derived identity", "device", index)
	return renderUUID(fmt.Sprintf("%032x", bdf), format)
}

// renderUUID applies the requested format to a bare identity string, either
// a dashed UUID or 32 hex characters.
func renderUUID(raw string, format UUIDFormat) (string, error) {
	switch format {
	case FormatCanonical:
		return "GPU-" + raw, nil
	case FormatRaw:
		return raw, nil
	case FormatVendorLegacy:
		u, err := uuid.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("device uuid %q: %w", raw, ErrInternal)
		}
		return "GPU-" + u.String(), nil
	default:
		return "", ErrInvalidArgument
	}
}

// DeviceInfo collects the static identity of a device in one call.
func (m *Manager) DeviceInfo(index int) (DeviceInfo, error) {
	name, err := m.DeviceName(index)
	if err != nil {
		return DeviceInfo{}, err
	}
	id, err := m.DeviceID(index)
	if err != nil {
		return DeviceInfo{}, err
	}
	rev, err := m.DeviceRevision(index)
	if err != nil {
		return DeviceInfo{}, err
	}
	bdf, err := m.UniqueID(index)
	if err != nil {
		return DeviceInfo{}, err
	}
	uid, err := m.UUID(index, FormatCanonical)
	if err != nil {
		return DeviceInfo{}, err
	}
	return DeviceInfo{
		Index:    index,
		Name:     name,
		DeviceID: id,
		Revision: rev,
		UUID:     uid,
		BDF:      bdf,
	}, nil
}
