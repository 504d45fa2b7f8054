package group

import "github.com/distcache/distcache/peer"

// PeerRing adapts a *peer.Picker to the PeerPicker interface this package
// depends on. peer.Picker.Pick returns a concrete *peer.Client, which
// satisfies PeerClient's method set but not its exact interface type, so
// the adaptation happens once here instead of inside peer (which must not
// depend on group).
type PeerRing struct {
	Picker *peer.Picker
}

func (r PeerRing) Pick(key string) (PeerClient, bool) {
	c, ok := r.Picker.Pick(key)
	if !ok {
		return nil, false
	}
	return c, true
}
