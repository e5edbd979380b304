package bot

import (
	"slices"
	"sync/atomic"
)

// Mode is the runtime switchboard shared by the dispatcher and the builtin
// commands. All methods are safe for concurrent use.
type Mode struct {
	debug      atomic.Bool
	channels   atomic.Pointer[[]string]
	logChannel atomic.Pointer[string]
}

func NewMode(debug bool, debugChannels []string, logChannel string) *Mode {
	m := &Mode{}
	m.debug.Store(debug)
	m.SetDebugChannels(debugChannels)
	m.SetLogChannel(logChannel)
	return m
}

func (m *Mode) Debug() bool { return m.debug.Load() }

func (m *Mode) SetDebug(on bool) { m.debug.Store(on) }

// ToggleDebug flips debug mode and returns the new state.
func (m *Mode) ToggleDebug() bool {
	for {
		cur := m.debug.Load()
		if m.debug.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

func (m *Mode) DebugChannels() []string {
	if p := m.channels.Load(); p != nil {
		return *p
	}
	return nil
}

func (m *Mode) SetDebugChannels(ids []string) {
	cp := slices.Clone(ids)
	m.channels.Store(&cp)
}

// IsDebugChannel reports whether id is one of the debug channels.
func (m *Mode) IsDebugChannel(id string) bool { return slices.Contains(m.DebugChannels(), id) }

// DebugTarget is where debug-mode output goes: the first debug channel.
func (m *Mode) DebugTarget() string {
	if chans := m.DebugChannels(); len(chans) > 0 {
		return chans[0]
	}
	return ""
}

func (m *Mode) LogChannel() string {
	if p := m.logChannel.Load(); p != nil {
		return *p
	}
	return ""
}

func (m *Mode) SetLogChannel(id string) { m.logChannel.Store(&id) }
