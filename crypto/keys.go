package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable part of a bech32 account identity.
type AddressPrefix string

const (
	// GigPrefix is used for every account identity handled by the escrow.
	GigPrefix AddressPrefix = "gig"
)

// AddressLength is the size in bytes of an account identity.
const AddressLength = 20

// Address represents a 20-byte account identity with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [AddressLength]byte
}

// NewAddress wraps raw bytes. It returns an error when b is not 20 bytes long.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	addr := Address{prefix: prefix}
	copy(addr.bytes[:], b)
	return addr, nil
}

// MustNewAddress is NewAddress for callers holding a fixed-size array.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// FromArray wraps a raw identity with the gig prefix.
func FromArray(raw [AddressLength]byte) Address {
	return Address{prefix: GigPrefix, bytes: raw}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes[:]...)
}

// Array returns the raw 20-byte identity.
func (a Address) Array() [AddressLength]byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// ParseAccount decodes a bech32 identity and insists on the gig prefix.
func ParseAccount(addrStr string) ([AddressLength]byte, error) {
	trimmed := strings.TrimSpace(addrStr)
	if trimmed == "" {
		return [AddressLength]byte{}, fmt.Errorf("address required")
	}
	addr, err := DecodeAddress(trimmed)
	if err != nil {
		return [AddressLength]byte{}, err
	}
	if addr.Prefix() != GigPrefix {
		return [AddressLength]byte{}, fmt.Errorf("address prefix must be %q, got %q", GigPrefix, addr.Prefix())
	}
	return addr.Array(), nil
}

// DeriveAddress returns a deterministic identity for a named module account,
// such as the escrow vault: the last 20 bytes of keccak256(label).
func DeriveAddress(label string) [AddressLength]byte {
	var out [AddressLength]byte
	hash := crypto.Keccak256([]byte(label))
	copy(out[:], hash[len(hash)-AddressLength:])
	return out
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

func (k *PublicKey) Address() Address {
	var raw [AddressLength]byte
	copy(raw[:], crypto.PubkeyToAddress(*k.PublicKey).Bytes())
	return FromArray(raw)
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}
