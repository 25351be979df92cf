package secfs

import (
	"fmt"
	"strconv"
	"syscall"

	"gopkg.in/yaml.v3"
)

// CredType is a credential type, it doubles as folder index.
type CredType int

// Credential types as numbered by AT%CMNG.
const (
	RootCA CredType = iota
	ClientCert
	ClientKey
	PSK
	PSKIdentity
	PublicKey
)

// Root is the folder level above all credential types.
const Root CredType = -1

var credTypeNames = []string{"ca", "pub-cert", "priv-cert", "psk", "identity", "pub-key"}

// CredTypes lists all credential types in folder order.
func CredTypes() []CredType {
	types := make([]CredType, len(credTypeNames))
	for n := range types {
		types[n] = CredType(n)
	}
	return types
}

// IsValid tells whether t is one of the known types.
func (t CredType) IsValid() bool {
	return t >= 0 && int(t) < len(credTypeNames)
}

// String returns the folder name.
func (t CredType) String() string {
	if t.IsValid() {
		return credTypeNames[t]
	}
	if t == Root {
		return ""
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// ParseCredType looks up a credential type by folder name.
func ParseCredType(name string) (CredType, bool) {
	for n, s := range credTypeNames {
		if s == name {
			return CredType(n), true
		}
	}
	return Root, false
}

// UnmarshalYAML accepts folder names as well as numbers.
func (t *CredType) UnmarshalYAML(value *yaml.Node) error {
	if typ, ok := ParseCredType(value.Value); ok {
		*t = typ
		return nil
	}
	n, err := strconv.Atoi(value.Value)
	if err != nil || !CredType(n).IsValid() {
		return fmt.Errorf("line %d: unknown credential type %q", value.Line, value.Value)
	}
	*t = CredType(n)
	return nil
}

// MarshalYAML writes the folder name.
func (t CredType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// SecTag identifies a credential slot.
type SecTag uint32

// MaxSecTag is the largest security tag accepted.
const MaxSecTag SecTag = 2147483647

// String implements fmt.Stringer.
func (t SecTag) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// ParseSecTag parses a file name into a security tag.
func ParseSecTag(name string) (SecTag, error) {
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil || SecTag(n) > MaxSecTag {
		return 0, syscall.EINVAL
	}
	return SecTag(n), nil
}
