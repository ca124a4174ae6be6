package storage

import (
	"bufio"
	"bytes"
	"io"

	"github.com/tuannm99/bongodb/internal/alias/bx"
	"github.com/tuannm99/bongodb/internal/bongoerr"
	"github.com/tuannm99/bongodb/internal/record"
)

// Table file layout:
//
//	magic "BNGO" (4B) | version (1B) | slot count (4B LE) | slot size (4B LE)
//	| slot_count fixed-size slots
//
// The hash index and freelist are not persisted; both are rebuilt from the
// live/ghost flags on load.
var fileMagic = [4]byte{'B', 'N', 'G', 'O'}

const (
	fileVersion = 1
	headerSize  = 4 + 1 + 4 + 4
)

// Flush writes the header and every slot to w and clears the dirty flag on
// success. The caller owns durability (sync, rename).
func (t *Table) Flush(w io.Writer) error {
	bw := bufio.NewWriter(w)

	var hdr [headerSize]byte
	copy(hdr[:4], fileMagic[:])
	hdr[4] = fileVersion
	bx.PutU32At(hdr[:], 5, uint32(len(t.slots)))
	bx.PutU32At(hdr[:], 9, uint32(t.Schema.SlotSize()))
	if _, err := bw.Write(hdr[:]); err != nil {
		return bongoerr.IoWrap("write table header", err)
	}

	ghost := record.EncodeGhostSlot(t.Schema)
	for id, row := range t.slots {
		var buf []byte
		if row == nil {
			buf = ghost
		} else {
			var err error
			buf, err = record.EncodeSlot(t.Schema, row)
			if err != nil {
				return bongoerr.Internalf("flush: slot %d of table %q: %v", id, t.Name, err)
			}
		}
		if _, err := bw.Write(buf); err != nil {
			return bongoerr.IoWrap("write table slot", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return bongoerr.IoWrap("flush table file", err)
	}
	t.dirty = false
	return nil
}

// Load reads a table file written by Flush, rebuilding the hash index from
// live slots and the freelist from ghost slots. The schema comes from the
// catalog meta, not from the table file.
func Load(name string, schema record.Schema, r io.Reader) (*Table, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, bongoerr.IoWrap("read table header", err)
	}
	if !bytes.Equal(hdr[:4], fileMagic[:]) {
		return nil, bongoerr.Internalf("table %q: bad magic %q", name, hdr[:4])
	}
	if hdr[4] != fileVersion {
		return nil, bongoerr.Internalf("table %q: unsupported format version %d", name, hdr[4])
	}

	slotCount := bx.U32At(hdr[:], 5)
	slotSize := bx.U32At(hdr[:], 9)
	if int(slotSize) != schema.SlotSize() {
		return nil, bongoerr.Internalf("table %q: slot size %d does not match schema (%d)",
			name, slotSize, schema.SlotSize())
	}

	t := NewTable(name, schema)
	t.slots = make([]record.Row, 0, slotCount)

	buf := make([]byte, slotSize)
	for id := uint32(0); id < slotCount; id++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, bongoerr.IoWrap("read table slot", err)
		}
		row, live, err := record.DecodeSlot(schema, buf)
		if err != nil {
			return nil, err
		}
		t.slots = append(t.slots, row)
		if live {
			t.index.add(row[0], id)
		} else {
			t.freelist.Add(id)
		}
	}

	t.dirty = false
	return t, nil
}
