package session

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// Data is the persistable core record of a session: everything that survives a
// passivation round-trip. It carries no lock of its own; Session owns the concurrency
// story around a Data value.
type Data struct {
	ID          string
	ContextPath string
	VHost       string
	LastNode    string

	Created      int64
	Accessed     int64
	LastAccessed int64
	CookieSet    int64
	LastSaved    int64

	Expiry        int64
	MaxInactiveMs int64

	Attributes map[string]any

	Dirty         bool
	MetaDataDirty bool
}

// NewData builds a fresh record for id, stamping created/accessed/lastAccessed to now
// and computing expiry from maxInactiveMs per the accessed-immortal-or-timed invariant.
func NewData(id, contextPath, vhost string, now int64, maxInactiveMs int64) *Data {
	d := &Data{
		ID:            id,
		ContextPath:   contextPath,
		VHost:         vhost,
		Created:       now,
		Accessed:      now,
		LastAccessed:  now,
		MaxInactiveMs: maxInactiveMs,
		Attributes:    make(map[string]any),
		MetaDataDirty: true,
	}
	d.recomputeExpiry()
	return d
}

func (d *Data) recomputeExpiry() {
	if d.MaxInactiveMs <= 0 {
		d.Expiry = 0
		return
	}
	d.Expiry = d.Accessed + d.MaxInactiveMs
}

// Access records a request touching the session at time now: lastAccessed takes the
// prior accessed value, accessed and expiry advance, metaDataDirty is set.
func (d *Data) Access(now int64) {
	d.LastAccessed = d.Accessed
	d.Accessed = now
	d.recomputeExpiry()
	d.MetaDataDirty = true
}

// IsExpiredAt reports whether the session is timed (MaxInactiveMs > 0) and its expiry
// has passed t. An immortal session (MaxInactiveMs <= 0) is never expired.
func (d *Data) IsExpiredAt(t int64) bool {
	return d.MaxInactiveMs > 0 && d.Expiry <= t
}

// GetAttribute returns the named attribute and whether it was present.
func (d *Data) GetAttribute(name string) (any, bool) {
	v, ok := d.Attributes[name]
	return v, ok
}

// SetAttribute stores value under name, returning the previous value and whether one
// existed. Marks the record dirty.
func (d *Data) SetAttribute(name string, value any) (any, bool) {
	old, existed := d.Attributes[name]
	if d.Attributes == nil {
		d.Attributes = make(map[string]any)
	}
	d.Attributes[name] = value
	d.Dirty = true
	return old, existed
}

// RemoveAttribute deletes name, returning its previous value and whether it existed.
// Marks the record dirty only if something was actually removed.
func (d *Data) RemoveAttribute(name string) (any, bool) {
	old, existed := d.Attributes[name]
	if existed {
		delete(d.Attributes, name)
		d.Dirty = true
	}
	return old, existed
}

// AttributeNames returns the current attribute key set. Order is unspecified.
func (d *Data) AttributeNames() []string {
	names := make([]string, 0, len(d.Attributes))
	for k := range d.Attributes {
		names = append(names, k)
	}
	return names
}

// Clone returns a deep copy: the attribute map is re-allocated and copied entry by
// entry. Used by the in-process store's passivating-copy semantics and the cache's
// stale-reload path, both of which must not let a caller's in-memory mutation reach
// back into the store's or another Session's copy.
func (d *Data) Clone() *Data {
	cp := *d
	cp.Attributes = make(map[string]any, len(d.Attributes))
	for k, v := range d.Attributes {
		cp.Attributes[k] = v
	}
	return &cp
}

func init() {
	gob.Register("")
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register([]byte(nil))
	gob.Register([]string(nil))
	gob.Register([]any(nil))
	gob.Register(map[string]string(nil))
	gob.Register(map[string]any(nil))
}

// RegisterAttributeType makes a concrete attribute value type known to the gob codec
// used for attribute serialization. Application code storing custom attribute types
// must call this once (typically in an init func) before those values are persisted.
func RegisterAttributeType(v any) {
	gob.Register(v)
}

// Encode writes the full portable record format: scalar header fields followed by the
// attribute map, matching the on-disk layout used by the file store.
func (d *Data) Encode(w io.Writer) error {
	if err := writeString(w, d.ID); err != nil {
		return err
	}
	if err := writeString(w, d.ContextPath); err != nil {
		return err
	}
	if err := writeString(w, d.VHost); err != nil {
		return err
	}
	for _, v := range []int64{d.Accessed, d.LastAccessed, d.Created, d.CookieSet} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if err := writeString(w, d.LastNode); err != nil {
		return err
	}
	for _, v := range []int64{d.Expiry, d.MaxInactiveMs} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	return EncodeAttributes(w, d.Attributes)
}

// Decode reads a record written by Encode. If the attribute section was written in the
// legacy single-blob format (a gob-encoded map with no entry count prefix), DecodeAttributes
// falls back to that format transparently.
func Decode(r io.Reader) (*Data, error) {
	d := &Data{}
	var err error
	if d.ID, err = readString(r); err != nil {
		return nil, fmt.Errorf("session: decode id: %w", err)
	}
	if d.ContextPath, err = readString(r); err != nil {
		return nil, fmt.Errorf("session: decode contextPath: %w", err)
	}
	if d.VHost, err = readString(r); err != nil {
		return nil, fmt.Errorf("session: decode vhost: %w", err)
	}
	vals := make([]int64, 4)
	for i := range vals {
		if err := binary.Read(r, binary.BigEndian, &vals[i]); err != nil {
			return nil, fmt.Errorf("session: decode timestamps: %w", err)
		}
	}
	d.Accessed, d.LastAccessed, d.Created, d.CookieSet = vals[0], vals[1], vals[2], vals[3]
	if d.LastNode, err = readString(r); err != nil {
		return nil, fmt.Errorf("session: decode lastNode: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &d.Expiry); err != nil {
		return nil, fmt.Errorf("session: decode expiry: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &d.MaxInactiveMs); err != nil {
		return nil, fmt.Errorf("session: decode maxInactiveMs: %w", err)
	}
	attrs, err := DecodeAttributes(r)
	if err != nil {
		return nil, fmt.Errorf("session: decode attributes: %w", err)
	}
	d.Attributes = attrs
	return d, nil
}

// EncodeAttributes writes the attribute-map-only format used for the relational store's
// map column: a 4-byte entry count, then per entry a length-prefixed name, a single
// classloader-hint boolean (always false: this implementation has no multi-classpath
// distinction), and a length-prefixed gob-encoded value.
func EncodeAttributes(w io.Writer, attrs map[string]any) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(attrs))); err != nil {
		return err
	}
	for name, value := range attrs {
		if err := writeString(w, name); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
			return fmt.Errorf("session: encode attribute %q: %w", name, err)
		}
		if err := binary.Write(w, binary.BigEndian, uint32(buf.Len())); err != nil {
			return err
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAttributes reads the format EncodeAttributes writes. r must support reading its
// full remaining content; DecodeAttributes buffers it to allow a legacy-format fallback
// when the leading bytes do not look like a sane entry count.
func DecodeAttributes(r io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	if attrs, ok := tryDecodeStructuredAttributes(raw); ok {
		return attrs, nil
	}
	var legacy map[string]any
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&legacy); err != nil {
		return nil, fmt.Errorf("session: attribute stream matches neither current nor legacy format: %w", err)
	}
	return legacy, nil
}

func tryDecodeStructuredAttributes(raw []byte) (map[string]any, bool) {
	br := bytes.NewReader(raw)
	var count uint32
	if err := binary.Read(br, binary.BigEndian, &count); err != nil {
		return nil, false
	}
	// A legacy blob's first four bytes are gob stream framing, not a plausible entry
	// count; gate on a generous upper bound rather than trust it blindly.
	if count > 1<<20 {
		return nil, false
	}
	attrs := make(map[string]any, count)
	for i := uint32(0); i < count; i++ {
		name, err := readString(br)
		if err != nil {
			return nil, false
		}
		if _, err := br.ReadByte(); err != nil {
			return nil, false
		}
		var vlen uint32
		if err := binary.Read(br, binary.BigEndian, &vlen); err != nil {
			return nil, false
		}
		vbuf := make([]byte, vlen)
		if _, err := io.ReadFull(br, vbuf); err != nil {
			return nil, false
		}
		var value any
		if err := gob.NewDecoder(bytes.NewReader(vbuf)).Decode(&value); err != nil {
			return nil, false
		}
		attrs[name] = value
	}
	if br.Len() != 0 {
		return nil, false
	}
	return attrs, true
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
