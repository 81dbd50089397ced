//go:build windows

package console

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

var (
	kernel32      = syscall.NewLazyDLL("kernel32.dll")
	attachConsole = kernel32.NewProc("AttachConsole")
	getStdHandle  = kernel32.NewProc("GetStdHandle")
	setTitle      = kernel32.NewProc("SetConsoleTitleW")
)

const (
	attachParentProcess = ^uint32(0) // -1 as uint32
	stdOutputHandle     = ^uint32(0) - 11 + 1
	stdErrorHandle      = ^uint32(0) - 12 + 1
)

// Attach reuses the parent console when started from a GUI shortcut, so
// output is visible.
func Attach() bool {
	h, _, _ := getStdHandle.Call(uintptr(stdOutputHandle))
	if h != 0 && h != uintptr(syscall.InvalidHandle) {
		return true
	}

	if ok, _, _ := attachConsole.Call(uintptr(attachParentProcess)); ok == 0 {
		return false
	}

	if h, _, _ := getStdHandle.Call(uintptr(stdOutputHandle)); h != 0 && h != uintptr(syscall.InvalidHandle) {
		os.Stdout = os.NewFile(h, "/dev/stdout")
	}
	if h, _, _ := getStdHandle.Call(uintptr(stdErrorHandle)); h != 0 && h != uintptr(syscall.InvalidHandle) {
		os.Stderr = os.NewFile(h, "/dev/stderr")
	}
	return true
}

// SetTitle sets the console window title
func SetTitle(title string) error {
	titlePtr, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return err
	}
	r1, _, err := setTitle.Call(uintptr(unsafe.Pointer(titlePtr)))
	if r1 == 0 {
		return fmt.Errorf("SetConsoleTitle failed: %v", err)
	}
	return nil
}
