package system

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// KD console modes from linux/kd.h
const (
	kdText     = 0x00
	kdGraphics = 0x01
	kdSetMode  = 0x4B3A // KDSETMODE ioctl
)

// Prefer /dev/tty (active VT), fallback to /dev/tty0
var ttyPaths = []string{"/dev/tty", "/dev/tty0"}

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Console switches the active VT between text and graphics so the kernel
// console and its cursor do not draw over the face. Failures are logged and
// returned but never fatal to the caller.
type Console struct {
	Logger logger
}

// EnterGraphics sets KD_GRAPHICS and hides the cursor.
func (c Console) EnterGraphics() error {
	err := setMode(kdGraphics)
	c.log(err, "KD_GRAPHICS")
	if cerr := writeVT("\x1b[?25l"); cerr != nil {
		c.log(cerr, "hide cursor")
		err = errors.Join(err, cerr)
	}
	return err
}

// Restore shows the cursor and returns the console to text mode.
func (c Console) Restore() error {
	err := writeVT("\x1b[?25h")
	c.log(err, "show cursor")
	if merr := setMode(kdText); merr != nil {
		c.log(merr, "KD_TEXT")
		err = errors.Join(err, merr)
	}
	return err
}

func (c Console) log(err error, what string) {
	if c.Logger == nil {
		return
	}
	if err != nil {
		c.Logger.Errorf("tty", "%s failed: %v", what, err)
		return
	}
	c.Logger.Infof("tty", "%s done", what)
}

func setMode(mode int) error {
	var lastErr error
	for _, p := range ttyPaths {
		fd, err := unix.Open(p, unix.O_RDONLY, 0)
		if err != nil {
			lastErr = fmt.Errorf("open %s: %w", p, err)
			continue
		}
		err = unix.IoctlSetInt(fd, kdSetMode, mode)
		_ = unix.Close(fd)
		if err != nil {
			lastErr = fmt.Errorf("KDSETMODE %d on %s: %w", mode, p, err)
			continue
		}
		return nil
	}
	return lastErr
}

func writeVT(s string) error {
	var lastErr error
	for _, p := range ttyPaths {
		f, err := os.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = f.WriteString(s)
		_ = f.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("write VT failed: %w", lastErr)
}
