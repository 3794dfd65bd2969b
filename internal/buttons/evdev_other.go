//go:build !linux

package buttons

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// NewEvdev has no input devices to read off Linux.
func NewEvdev(l logger) *ChannelButtons {
	if l != nil {
		l.Infof("input", "evdev input is only available on linux")
	}
	return NewChannelButtons()
}
