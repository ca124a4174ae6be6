package record

import (
	"github.com/tuannm99/bongodb/internal/alias/bx"
	"github.com/tuannm99/bongodb/internal/bongoerr"
)

// Slot layout (fixed per schema, little-endian):
//
//	[1B live flag] then per column: [1B null tag] [value bytes]
//
// Value bytes: INT 8B two's-complement; BOOLEAN 1B 0x00/0x01;
// VARCHAR(n) 4B byte-length L then n bytes of storage (L <= n, the
// remaining n-L bytes are undefined). A null value still occupies its
// full width so every slot is addressable in constant time.
const (
	slotLive  = 0x01
	slotGhost = 0x00

	nullTag    = 0x01
	notNullTag = 0x00
)

// fieldWidth is the fixed encoded width of one value of type t,
// excluding the null tag byte.
func fieldWidth(t ColumnType) int {
	switch t.Kind {
	case TypeInt:
		return 8
	case TypeBool:
		return 1
	case TypeVarchar:
		return 4 + int(t.Size)
	default:
		return 0
	}
}

// SlotSize is the on-disk size of one slot under s.
func (s Schema) SlotSize() int {
	size := 1 // live/ghost flag
	for _, c := range s.Cols {
		size += 1 + fieldWidth(c.Type)
	}
	return size
}

// EncodeSlot encodes a live row into a fresh slot buffer.
// The row must already satisfy s (see Schema.CheckRow).
func EncodeSlot(s Schema, row Row) ([]byte, error) {
	if len(row) != len(s.Cols) {
		return nil, bongoerr.Internalf("encode: row has %d values, schema has %d columns",
			len(row), len(s.Cols))
	}

	buf := make([]byte, s.SlotSize())
	buf[0] = slotLive
	off := 1

	for i, col := range s.Cols {
		v := row[i]
		if v.IsNull() {
			buf[off] = nullTag
			off += 1 + fieldWidth(col.Type)
			continue
		}
		buf[off] = notNullTag
		off++

		switch col.Type.Kind {
		case TypeInt:
			if v.Kind != KindInt {
				return nil, bongoerr.Internalf("encode: column %q holds %s, want INT",
					col.Name, v.Kind)
			}
			bx.PutU64At(buf, off, uint64(v.Int))
		case TypeBool:
			if v.Kind != KindBool {
				return nil, bongoerr.Internalf("encode: column %q holds %s, want BOOLEAN",
					col.Name, v.Kind)
			}
			if v.Bool {
				buf[off] = 0x01
			}
		case TypeVarchar:
			if v.Kind != KindVarchar {
				return nil, bongoerr.Internalf("encode: column %q holds %s, want VARCHAR",
					col.Name, v.Kind)
			}
			if uint32(len(v.Str)) > col.Type.Size {
				return nil, bongoerr.Internalf("encode: column %q value exceeds %s",
					col.Name, col.Type)
			}
			bx.PutU32At(buf, off, uint32(len(v.Str)))
			copy(buf[off+4:], v.Str)
		}
		off += fieldWidth(col.Type)
	}
	return buf, nil
}

// EncodeGhostSlot encodes a ghost slot: flag byte clear, payload zeroed.
func EncodeGhostSlot(s Schema) []byte {
	buf := make([]byte, s.SlotSize())
	buf[0] = slotGhost
	return buf
}

// DecodeSlot decodes one slot buffer. For a ghost slot the returned row is
// nil and live is false.
func DecodeSlot(s Schema, buf []byte) (row Row, live bool, err error) {
	if len(buf) != s.SlotSize() {
		return nil, false, bongoerr.Internalf("decode: slot is %d bytes, want %d",
			len(buf), s.SlotSize())
	}
	if buf[0] == slotGhost {
		return nil, false, nil
	}
	if buf[0] != slotLive {
		return nil, false, bongoerr.Internalf("decode: bad slot flag 0x%02x", buf[0])
	}

	row = make(Row, len(s.Cols))
	off := 1
	for i, col := range s.Cols {
		tag := buf[off]
		off++
		if tag == nullTag {
			row[i] = Null()
			off += fieldWidth(col.Type)
			continue
		}
		if tag != notNullTag {
			return nil, false, bongoerr.Internalf("decode: bad null tag 0x%02x at column %q",
				tag, col.Name)
		}

		switch col.Type.Kind {
		case TypeInt:
			row[i] = NewInt(bx.I64At(buf, off))
		case TypeBool:
			row[i] = NewBool(buf[off] != 0)
		case TypeVarchar:
			l := bx.U32At(buf, off)
			if l > col.Type.Size {
				return nil, false, bongoerr.Internalf(
					"decode: varchar length %d exceeds %s at column %q", l, col.Type, col.Name)
			}
			row[i] = NewVarchar(string(buf[off+4 : off+4+int(l)]))
		}
		off += fieldWidth(col.Type)
	}
	return row, true, nil
}
