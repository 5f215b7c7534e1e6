// Package events parses Nostr events into domain entities.
// Every parser validates the event shape and returns an error instead of trusting it.
package events

// Kinds holds the event kinds the client understands.
type Kinds struct {
	Profile    int `yaml:"profile" default:"0"`
	Note       int `yaml:"note" default:"1"`
	Reaction   int `yaml:"reaction" default:"7"`
	Comment    int `yaml:"comment" default:"1111"`
	ZapReceipt int `yaml:"zap_receipt" default:"9735"`
	Track      int `yaml:"track" default:"36787" validate:"gte=30000,lt=40000"`
	Release    int `yaml:"release" default:"34139" validate:"gte=30000,lt=40000"`
}

// DefaultKinds returns the standard kinds.
func DefaultKinds() Kinds {
	return Kinds{
		Profile:    0,
		Note:       1,
		Reaction:   7,
		Comment:    1111,
		ZapReceipt: 9735,
		Track:      36787,
		Release:    34139,
	}
}

// IsAddressable reports whether kind is in the addressable range.
func IsAddressable(kind int) bool {
	return kind >= 30000 && kind < 40000
}

// IsReplaceable reports whether only the newest event per author and kind is kept.
func IsReplaceable(kind int) bool {
	return kind == 0 || kind == 3 || (kind >= 10000 && kind < 20000)
}
