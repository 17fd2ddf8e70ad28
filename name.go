package namedsem

import "strings"

// nameSeparator is the single leading character every semaphore name carries.
const nameSeparator = '/'

// Name is a validated semaphore name. It always starts with a single "/",
// contains no further separators, and fits within MaxNameLength bytes. The
// zero Name is not valid; obtain one from NormalizeName.
type Name struct {
	value string
}

// NormalizeName validates raw and returns its canonical form. A single
// leading "/" is optional in raw and always present in the result, so
// NormalizeName(n.String()) returns n for any valid n.
//
// Only ASCII letters, digits, '-' and '_' are accepted after the separator,
// which is the subset every supported platform handles the same way.
func NormalizeName(raw string) (Name, error) {
	body := strings.TrimPrefix(raw, string(nameSeparator))
	if body == "" {
		return Name{}, newError("normalize", raw, KindInvalidName, "name is empty")
	}
	if len(body)+1 > MaxNameLength {
		return Name{}, newError("normalize", raw, KindInvalidName,
			"name is %d bytes, limit is %d", len(body)+1, MaxNameLength)
	}
	for i := 0; i < len(body); i++ {
		if !isNameByte(body[i]) {
			return Name{}, newError("normalize", raw, KindInvalidName,
				"character %q at offset %d is not allowed", body[i], i+len(raw)-len(body))
		}
	}
	return Name{value: string(nameSeparator) + body}, nil
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

// String returns the canonical name, including the leading "/".
func (n Name) String() string {
	return n.value
}

// IsZero reports whether n was never produced by NormalizeName.
func (n Name) IsZero() bool {
	return n.value == ""
}
