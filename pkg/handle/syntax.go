package handle

import (
	"strconv"
	"strings"
)

// StripScheme removes a leading "hdl:" or "doi:" from a handle name.
func StripScheme(name string) string {
	for _, scheme := range []string{"hdl:", "doi:"} {
		if strings.HasPrefix(name, scheme) {
			return name[len(scheme):]
		}
	}
	return name
}

// CheckSyntax validates a handle name of the form prefix/suffix.
//
// A "hdl:" or "doi:" scheme is tolerated. An index ("300:") is not; use
// ParseOwner for handles that carry one.
func CheckSyntax(name string) error {
	bare := StripScheme(name)
	if bare == "" {
		return NewSyntaxError(name, "handle is empty")
	}
	if strings.Contains(bare, ":") {
		return NewSyntaxError(name, "handle must not contain ':'")
	}
	prefix, suffix, ok := strings.Cut(bare, "/")
	if !ok {
		return NewSyntaxError(name, "handle must have the form prefix/suffix")
	}
	if prefix == "" {
		return NewSyntaxError(name, "handle prefix is empty")
	}
	if suffix == "" {
		return NewSyntaxError(name, "handle suffix is empty")
	}
	return nil
}

// Prefix returns the part of a handle before the first '/'.
func Prefix(name string) string {
	p, _, _ := strings.Cut(StripScheme(name), "/")
	return p
}

// Suffix returns the part of a handle after the first '/'.
func Suffix(name string) string {
	_, s, _ := strings.Cut(StripScheme(name), "/")
	return s
}

// ParseOwner splits an owner name "index:prefix/suffix" on the first ':'.
func ParseOwner(owner string) (int, string, error) {
	idx, name, ok := strings.Cut(owner, ":")
	if !ok {
		return 0, "", NewSyntaxError(owner, "owner must have the form index:prefix/suffix")
	}
	index, err := strconv.Atoi(idx)
	if err != nil || index < 0 {
		return 0, "", NewSyntaxError(owner, "owner index %q is not a non-negative integer", idx)
	}
	if err := CheckSyntax(name); err != nil {
		return 0, "", err
	}
	return index, name, nil
}

// IsBitString reports whether s is non-empty and made only of '0' and '1'.
func IsBitString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '0' && r != '1' {
			return false
		}
	}
	return true
}

// PadPermissions right-pads a permission string with zeros to twelve bits.
// Longer strings are returned unchanged.
func PadPermissions(perms string) string {
	if len(perms) >= 12 {
		return perms
	}
	return perms + strings.Repeat("0", 12-len(perms))
}
