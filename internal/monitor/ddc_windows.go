//go:build windows

// Windows DDC/CI implementation. Physical monitor handles are obtained via
// dxva2.dll and written with SetVCPFeature, the same VCP codes the MCCS spec
// defines for luminance (0x10) and contrast (0x12).
package monitor

import (
	"context"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	vcpLuminance = 0x10
	vcpContrast  = 0x12
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	dxva2                  = windows.NewLazySystemDLL("dxva2.dll")
	procEnumDisplayMons    = user32.NewProc("EnumDisplayMonitors")
	procGetNumberPhysical  = dxva2.NewProc("GetNumberOfPhysicalMonitorsFromHMONITOR")
	procGetPhysicalMons    = dxva2.NewProc("GetPhysicalMonitorsFromHMONITOR")
	procSetVCPFeature      = dxva2.NewProc("SetVCPFeature")
	procDestroyPhysicalMon = dxva2.NewProc("DestroyPhysicalMonitor")
)

// physicalMonitor mirrors the PHYSICAL_MONITOR structure.
type physicalMonitor struct {
	Handle      windows.Handle
	Description [128]uint16
}

// windowsDisplay wraps one physical monitor handle.
type windowsDisplay struct {
	pm physicalMonitor
}

func (d *windowsDisplay) ID() string {
	return windows.UTF16ToString(d.pm.Description[:])
}

func (d *windowsDisplay) SetBrightness(raw int) error {
	return d.setVCP(vcpLuminance, raw)
}

func (d *windowsDisplay) SetContrast(raw int) error {
	return d.setVCP(vcpContrast, raw)
}

func (d *windowsDisplay) setVCP(code byte, value int) error {
	ret, _, err := procSetVCPFeature.Call(
		uintptr(d.pm.Handle),
		uintptr(code),
		uintptr(uint32(value)),
	)
	if ret == 0 {
		return fmt.Errorf("SetVCPFeature(0x%02x, %d): %w", code, value, err)
	}
	return nil
}

func (d *windowsDisplay) Close() error {
	ret, _, err := procDestroyPhysicalMon.Call(uintptr(d.pm.Handle))
	if ret == 0 {
		return fmt.Errorf("DestroyPhysicalMonitor: %w", err)
	}
	return nil
}

// displays enumerates the physical monitors behind every attached display
// device.
func displays(ctx context.Context) ([]Display, error) {
	var hmons []windows.Handle

	// EnumDisplayMonitors runs the callback synchronously before returning.
	cb := syscall.NewCallback(func(hmon, hdc, rect, lparam uintptr) uintptr {
		hmons = append(hmons, windows.Handle(hmon))
		return 1 // continue enumeration
	})
	ret, _, err := procEnumDisplayMons.Call(0, 0, cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}

	var out []Display
	for _, hmon := range hmons {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		pms, err := physicalMonitors(hmon)
		if err != nil {
			// A display without DDC/CI support is skipped, not fatal.
			continue
		}
		for _, pm := range pms {
			out = append(out, &windowsDisplay{pm: pm})
		}
	}
	return out, nil
}

// physicalMonitors resolves the physical monitors behind one HMONITOR.
func physicalMonitors(hmon windows.Handle) ([]physicalMonitor, error) {
	var count uint32
	ret, _, err := procGetNumberPhysical.Call(
		uintptr(hmon),
		uintptr(unsafe.Pointer(&count)),
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetNumberOfPhysicalMonitorsFromHMONITOR: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	pms := make([]physicalMonitor, count)
	ret, _, err = procGetPhysicalMons.Call(
		uintptr(hmon),
		uintptr(count),
		uintptr(unsafe.Pointer(&pms[0])),
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetPhysicalMonitorsFromHMONITOR: %w", err)
	}
	return pms, nil
}
