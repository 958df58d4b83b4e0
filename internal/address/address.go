// Package address derives the deterministic exam addresses handed to
// external callers.
//
// An exam address is the last 20 bytes of
//
//	keccak256(0xff ‖ registry ‖ uint256(courseID) ‖ uint256(index))
//
// rendered as a 0x-prefixed EIP-55 checksummed hex string. The registry
// identity makes addresses from different registries disjoint; courseID and
// index make them unique within one registry.
package address

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/SAP-F-2025/lms-registry/internal/models"
)

const Length = 20

var ErrInvalidRegistry = errors.New("invalid registry address")

// Registry is the 20-byte identity of a registry instance.
type Registry [Length]byte

// ParseRegistry parses a 0x-prefixed (or bare) 40 digit hex address.
func ParseRegistry(s string) (Registry, error) {
	var r Registry
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != 2*Length {
		return r, fmt.Errorf("%w: want %d hex digits, got %d", ErrInvalidRegistry, 2*Length, len(s))
	}
	if _, err := hex.Decode(r[:], []byte(s)); err != nil {
		return r, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	return r, nil
}

// RegistryFromName derives a registry identity from a human readable name.
func RegistryFromName(name string) Registry {
	var r Registry
	copy(r[:], keccak([]byte(name))[32-Length:])
	return r
}

// ResolveRegistry parses hexAddr when set and falls back to the name.
func ResolveRegistry(hexAddr, name string) (Registry, error) {
	if strings.TrimSpace(hexAddr) != "" {
		return ParseRegistry(hexAddr)
	}
	if name == "" {
		return Registry{}, fmt.Errorf("%w: neither address nor name given", ErrInvalidRegistry)
	}
	return RegistryFromName(name), nil
}

func (r Registry) String() string {
	return checksumHex(r[:])
}

// Deriver computes exam addresses for one registry.
type Deriver struct {
	registry Registry
}

func NewDeriver(registry Registry) *Deriver {
	return &Deriver{registry: registry}
}

func (d *Deriver) Registry() Registry {
	return d.registry
}

// ExamAddress is a pure function of (registry, courseID, index).
func (d *Deriver) ExamAddress(courseID uint, index int) models.ExamAddress {
	buf := make([]byte, 0, 1+Length+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, d.registry[:]...)
	buf = append(buf, uint256(uint64(courseID))...)
	buf = append(buf, uint256(uint64(index))...)

	sum := keccak(buf)
	return models.ExamAddress(checksumHex(sum[32-Length:]))
}

func uint256(v uint64) []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint64(b[24:], v)
	return b
}

func keccak(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// checksumHex renders addr with EIP-55 mixed-case checksum.
func checksumHex(addr []byte) string {
	lower := hex.EncodeToString(addr)
	hash := keccak([]byte(lower))

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}
