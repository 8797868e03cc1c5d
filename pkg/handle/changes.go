package handle

// Change is a requested value for one record type.
type Change struct {
	Type  string
	Value Data
}

// Changes is an ordered list of requested type/value pairs.
//
// Order matters: new entries are allocated indices in the order the changes
// were added. Each type appears at most once.
type Changes []Change

// Set records a string value for typ. A repeated type keeps its original
// position and takes the new value.
func (c Changes) Set(typ, value string) Changes {
	return c.SetData(typ, StringData(value))
}

// SetAdmin records an HS_ADMIN owner change. Permissions are filled in by
// the reconciler from its policy.
func (c Changes) SetAdmin(owner AdminValue) Changes {
	return c.SetData(TypeAdmin, AdminData(owner))
}

// SetData records an arbitrary payload for typ.
func (c Changes) SetData(typ string, value Data) Changes {
	for i := range c {
		if c[i].Type == typ {
			c[i].Value = value
			return c
		}
	}
	return append(c, Change{Type: typ, Value: value})
}

// Has reports whether a change for typ exists.
func (c Changes) Has(typ string) bool {
	for _, ch := range c {
		if ch.Type == typ {
			return true
		}
	}
	return false
}

// Types returns the requested types in order.
func (c Changes) Types() []string {
	out := make([]string, len(c))
	for i, ch := range c {
		out[i] = ch.Type
	}
	return out
}

// ChangesFromPairs builds Changes from alternating type/value strings.
// A trailing unpaired element is ignored.
func ChangesFromPairs(pairs ...string) Changes {
	var c Changes
	for i := 0; i+1 < len(pairs); i += 2 {
		c = c.Set(pairs[i], pairs[i+1])
	}
	return c
}
