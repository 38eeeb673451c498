package command

import (
	"errors"
	"testing"
)

func TestEncodeLayout(t *testing.T) {
	p := MustParamList(TagKind, TagChunk, TagPosition)
	b, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	want := [EncodedSize]byte{3, byte(TagKind), byte(TagChunk), byte(TagPosition)}
	if b != want {
		t.Errorf("Encode = %v, want %v", b, want)
	}

	back, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if back != p {
		t.Errorf("Decode(Encode(p)) = %v, want %v", back.Tags(), p.Tags())
	}
}

func TestEncodeEmptyAndFull(t *testing.T) {
	empty, err := Encode(ParamList{})
	if err != nil || empty != ([EncodedSize]byte{}) {
		t.Errorf("empty list encodes to %v, %v", empty, err)
	}

	var full ParamList
	for i := 0; i < MaxParams; i++ {
		if err := full.Append(Tag(1 + i%int(tagCount-1))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := full.Append(TagQueued); !errors.Is(err, ErrTooManyParams) {
		t.Errorf("16th Append error = %v, want ErrTooManyParams", err)
	}
	b, err := Encode(full)
	if err != nil {
		t.Fatal(err)
	}
	if b[0] != MaxParams {
		t.Errorf("count byte = %d, want %d", b[0], MaxParams)
	}
	if got, err := Decode(b); err != nil || got.Len() != MaxParams {
		t.Errorf("Decode full list = %d tags, %v", got.Len(), err)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := []struct {
		name string
		in   [EncodedSize]byte
		want error
	}{
		{"count too large", [EncodedSize]byte{16}, ErrTooManyParams},
		{"count 255", [EncodedSize]byte{255}, ErrTooManyParams},
		{"none tag", [EncodedSize]byte{1, 0}, ErrUnknownTag},
		{"unknown tag", [EncodedSize]byte{2, 1, 200}, ErrUnknownTag},
		{"dirty padding", [EncodedSize]byte{1, 1, 0, 0, 7}, ErrBadPadding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.in); !errors.Is(err, tc.want) {
				t.Errorf("Decode error = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := DecodeBytes(make([]byte, 4)); !errors.Is(err, ErrBadLength) {
		t.Errorf("DecodeBytes short error = %v, want ErrBadLength", err)
	}
}

func TestNewParamListRejectsUnknownTags(t *testing.T) {
	if _, err := NewParamList(TagKind, Tag(99)); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("error = %v, want ErrUnknownTag", err)
	}
	if _, err := NewParamList(TagNone); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("TagNone should be rejected, got %v", err)
	}
}

func TestParamListAccessors(t *testing.T) {
	p := MustParamList(TagTarget, TagQueued)
	if !p.Has(TagQueued) || p.Has(TagNormal) {
		t.Errorf("Has reports wrong membership for %v", p.Tags())
	}
	tags := p.Tags()
	tags[0] = TagNormal
	if p.Tags()[0] != TagTarget {
		t.Errorf("Tags must return a copy")
	}
	if TagOrientation.String() != "orientation" || Tag(42).String() != "tag(42)" {
		t.Errorf("unexpected tag names %q %q", TagOrientation, Tag(42))
	}
}
