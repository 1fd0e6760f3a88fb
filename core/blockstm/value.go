package blockstm

// ValueLayout is an opaque hint describing how to interpret the raw bytes
// of a Value (e.g. a Move/EVM type layout). The MVS never inspects it; it
// is only forwarded to callers that know how to use it (the VM, or the
// base-view resolver when eagerly deserializing a storage hit).
type ValueLayout interface{}

// Value is either a serialized byte string or a structured value, carried
// in a single wrapper so that callers can ask for whichever view they need
// without the MVS caring which one was provided.
type Value struct {
	bytes      []byte
	structured interface{}
	layout     ValueLayout
}

// NewBytesValue wraps a plain byte string.
func NewBytesValue(b []byte) Value {
	return Value{bytes: b}
}

// NewStructuredValue wraps an already-decoded structured value, tagged with
// the layout that was used to decode it.
func NewStructuredValue(v interface{}, layout ValueLayout) Value {
	return Value{structured: v, layout: layout}
}

// Bytes returns the raw byte view, if this Value was constructed from one.
func (v Value) Bytes() ([]byte, bool) {
	return v.bytes, v.bytes != nil
}

// Structured returns the structured view, if one is present.
func (v Value) Structured() (interface{}, bool) {
	return v.structured, v.structured != nil
}

// Layout returns the layout hint carried alongside a structured value.
func (v Value) Layout() (ValueLayout, bool) {
	return v.layout, v.layout != nil
}

// asU128 attempts to view the value as a 128-bit unsigned integer. Only a
// plain byte-string value with no structured/layout tagging and a width
// within 128 bits qualifies; anything else is considered "not an integer"
// and causes delta application against it to fail speculatively.
func (v Value) asU128() (U128, bool) {
	if v.structured != nil || v.layout != nil {
		return U128{}, false
	}

	if len(v.bytes) > 16 {
		return U128{}, false
	}

	return NewU128FromBytes(v.bytes), true
}
