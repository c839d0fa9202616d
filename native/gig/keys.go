package gig

import "fmt"

// KeyKind tags a logical storage key. The numeric values are part of the
// persisted layout and must not be renumbered.
type KeyKind uint8

const (
	KeyDeadline  KeyKind = 0x00
	KeyStarted   KeyKind = 0x01
	KeyToken     KeyKind = 0x02
	KeyUser      KeyKind = 0x03
	KeyIsClaimed KeyKind = 0x04

	KeyWallet KeyKind = 0x10
	KeyRating KeyKind = 0x11
	KeySkills KeyKind = 0x12
)

var keyPrefix = []byte("gig/v1/")

func (k KeyKind) String() string {
	switch k {
	case KeyDeadline:
		return "deadline"
	case KeyStarted:
		return "started"
	case KeyToken:
		return "token"
	case KeyUser:
		return "user"
	case KeyIsClaimed:
		return "is_claimed"
	case KeyWallet:
		return "wallet"
	case KeyRating:
		return "rating"
	case KeySkills:
		return "skills"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Key names one logical storage slot. User is only meaningful for KeyUser.
type Key struct {
	Kind KeyKind
	User [20]byte
}

func fixedKey(kind KeyKind) Key { return Key{Kind: kind} }

// UserKey addresses the ledger entry of a depositor.
func UserKey(user [20]byte) Key { return Key{Kind: KeyUser, User: user} }

// Bytes serialises the key as "gig/v1/" followed by the kind byte and, for
// ledger entries, the 20-byte identity.
func (k Key) Bytes() []byte {
	size := len(keyPrefix) + 1
	if k.Kind == KeyUser {
		size += len(k.User)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, keyPrefix...)
	buf = append(buf, byte(k.Kind))
	if k.Kind == KeyUser {
		buf = append(buf, k.User[:]...)
	}
	return buf
}
