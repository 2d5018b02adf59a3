package relay

// FrameRelay fans screen frames out to a device's observers. Nothing is
// stored or retried: a subscriber that misses a frame waits for the next.
type FrameRelay struct {
	broadcaster Broadcaster
}

func NewFrameRelay(b Broadcaster) *FrameRelay {
	return &FrameRelay{broadcaster: b}
}

func (f *FrameRelay) Relay(deviceID, imageBase64 string) {
	f.broadcaster.Broadcast(SessionRoom(deviceID), EventFrameOut, imageBase64)
}
