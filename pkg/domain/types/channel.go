package types

// ChannelKind classifies the webhook channel of an action
type ChannelKind int

const (
	ChannelKindRemote ChannelKind = iota
	ChannelKindTerminal
	ChannelKindFile
)

// Reserved channel names executed in-process instead of over HTTP
const (
	ChannelTerminal = "TERMINAL"
	ChannelFile     = "FILES"
)

// ClassifyChannel maps a channel name to its kind. Any name that is not one of
// the reserved local channels is remote.
func ClassifyChannel(name string) ChannelKind {
	switch name {
	case ChannelTerminal:
		return ChannelKindTerminal
	case ChannelFile:
		return ChannelKindFile
	default:
		return ChannelKindRemote
	}
}

// IsLocal reports whether the kind is executed in-process
func (k ChannelKind) IsLocal() bool {
	return k == ChannelKindTerminal || k == ChannelKindFile
}

func (k ChannelKind) String() string {
	switch k {
	case ChannelKindTerminal:
		return "terminal"
	case ChannelKindFile:
		return "file"
	default:
		return "remote"
	}
}
