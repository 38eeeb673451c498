package command

import (
	"errors"
	"fmt"
)

// Tag names one command parameter.
type Tag uint8

const (
	TagNone Tag = iota
	TagPosition
	TagNormal
	TagOrientation
	TagChunk
	TagKind
	TagTarget
	TagQueued
	tagCount
)

var tagNames = [...]string{
	TagNone:        "none",
	TagPosition:    "position",
	TagNormal:      "normal",
	TagOrientation: "orientation",
	TagChunk:       "chunk",
	TagKind:        "kind",
	TagTarget:      "target",
	TagQueued:      "queued",
}

func (t Tag) String() string {
	if t.Valid() {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Valid reports whether t is a known parameter tag. TagNone is not a
// parameter and is only used as padding.
func (t Tag) Valid() bool {
	return t > TagNone && t < tagCount
}

const (
	// MaxParams is the largest number of tags a list can hold.
	MaxParams = 15
	// EncodedSize is the width of an encoded list.
	EncodedSize = MaxParams + 1
)

var (
	ErrTooManyParams = errors.New("command: too many parameters")
	ErrUnknownTag    = errors.New("command: unknown parameter tag")
	ErrBadPadding    = errors.New("command: non-zero padding")
	ErrBadLength     = errors.New("command: encoded length mismatch")
)

// ParamList is a small fixed-capacity vector of tags. The zero value is an
// empty list.
type ParamList struct {
	n    uint8
	tags [MaxParams]Tag
}

// NewParamList builds a list, validating every tag.
func NewParamList(tags ...Tag) (ParamList, error) {
	var p ParamList
	for _, t := range tags {
		if err := p.Append(t); err != nil {
			return ParamList{}, err
		}
	}
	return p, nil
}

// MustParamList is NewParamList for static lists; it panics on error.
func MustParamList(tags ...Tag) ParamList {
	p, err := NewParamList(tags...)
	if err != nil {
		panic(err)
	}
	return p
}

// Append adds t to the end of the list.
func (p *ParamList) Append(t Tag) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTag, uint8(t))
	}
	if int(p.n) >= MaxParams {
		return fmt.Errorf("%w: limit %d", ErrTooManyParams, MaxParams)
	}
	p.tags[p.n] = t
	p.n++
	return nil
}

// Len returns the number of tags.
func (p ParamList) Len() int { return int(p.n) }

// Tags returns the tags in order.
func (p ParamList) Tags() []Tag {
	return append([]Tag(nil), p.tags[:p.n]...)
}

// Has reports whether t appears in the list.
func (p ParamList) Has(t Tag) bool {
	for _, v := range p.tags[:p.n] {
		if v == t {
			return true
		}
	}
	return false
}

// Encode writes p into its fixed-width form:
//
//	byte 0      number of tags (0..15)
//	bytes 1..n  one Tag per byte, in order
//	bytes n+1.. zero padding
func Encode(p ParamList) ([EncodedSize]byte, error) {
	var out [EncodedSize]byte
	if int(p.n) > MaxParams {
		return out, fmt.Errorf("%w: %d > %d", ErrTooManyParams, p.n, MaxParams)
	}
	out[0] = p.n
	for i, t := range p.tags[:p.n] {
		if !t.Valid() {
			return [EncodedSize]byte{}, fmt.Errorf("%w: %d at %d", ErrUnknownTag, uint8(t), i)
		}
		out[1+i] = byte(t)
	}
	return out, nil
}

// Decode parses a fixed-width record.
func Decode(b [EncodedSize]byte) (ParamList, error) {
	n := int(b[0])
	if n > MaxParams {
		return ParamList{}, fmt.Errorf("%w: %d > %d", ErrTooManyParams, n, MaxParams)
	}
	var p ParamList
	for i := 0; i < n; i++ {
		t := Tag(b[1+i])
		if !t.Valid() {
			return ParamList{}, fmt.Errorf("%w: %d at %d", ErrUnknownTag, uint8(t), i)
		}
		p.tags[i] = t
	}
	for i := 1 + n; i < EncodedSize; i++ {
		if b[i] != 0 {
			return ParamList{}, fmt.Errorf("%w: byte %d", ErrBadPadding, i)
		}
	}
	p.n = uint8(n)
	return p, nil
}

// DecodeBytes is Decode for a slice, which must be exactly EncodedSize long.
func DecodeBytes(b []byte) (ParamList, error) {
	if len(b) != EncodedSize {
		return ParamList{}, fmt.Errorf("%w: got %d want %d", ErrBadLength, len(b), EncodedSize)
	}
	return Decode([EncodedSize]byte(b))
}
