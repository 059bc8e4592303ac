package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/kellerstore/kellerstore/internal/pager"
	"github.com/kellerstore/kellerstore/internal/types"
)

// maxDescriptorSize bounds a marshaled Table record, mirroring the
// reference's MAX_RECORD_LAYOUT cap on a single catalog entry (defs.hpp).
// The master tree's fixed record size is exactly this many bytes; short
// descriptors are zero-padded.
const maxDescriptorSize = 512

// marshalTable encodes t as:
//
//	[nameLen u16][name][numColumns u16]
//	  { [nameLen u16][name][type u64] } * numColumns
//	[rootPage u32][recordSize u32]
//	[numIndexes u16]
//	  { [nameLen u16][name][colNameLen u16][colName][rootPage u32][unique u8] } * numIndexes
func marshalTable(t *Table) []byte {
	buf := make([]byte, 0, maxDescriptorSize)
	buf = appendString(buf, t.Name)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(t.Columns)))
	for _, col := range t.Columns {
		buf = appendString(buf, col.Name)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(col.Type))
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.RootPage))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.RecordSize))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(t.Indexes)))
	for _, idx := range t.Indexes {
		buf = appendString(buf, idx.Name)
		buf = appendString(buf, idx.Column)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(idx.RootPage))
		if idx.Unique {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

func unmarshalTable(rec []byte) (*Table, error) {
	r := &reader{buf: rec}
	name, err := r.readString()
	if err != nil {
		return nil, err
	}
	numCols, err := r.readU16()
	if err != nil {
		return nil, err
	}
	columns := make([]Column, numCols)
	for i := range columns {
		colName, err := r.readString()
		if err != nil {
			return nil, err
		}
		ty, err := r.readU64()
		if err != nil {
			return nil, err
		}
		columns[i] = Column{Name: colName, Type: types.DataType(ty)}
	}
	rootPage, err := r.readU32()
	if err != nil {
		return nil, err
	}
	recordSize, err := r.readU32()
	if err != nil {
		return nil, err
	}
	numIdx, err := r.readU16()
	if err != nil {
		return nil, err
	}
	indexes := make([]Index, numIdx)
	for i := range indexes {
		idxName, err := r.readString()
		if err != nil {
			return nil, err
		}
		colName, err := r.readString()
		if err != nil {
			return nil, err
		}
		idxRoot, err := r.readU32()
		if err != nil {
			return nil, err
		}
		unique, err := r.readByte()
		if err != nil {
			return nil, err
		}
		indexes[i] = Index{Name: idxName, Column: colName, RootPage: pager.PageID(idxRoot), Unique: unique != 0}
	}

	return &Table{
		Name:       name,
		Columns:    columns,
		RootPage:   pager.PageID(rootPage),
		RecordSize: int(recordSize),
		Indexes:    indexes,
	}, nil
}

func padDescriptor(b []byte) []byte {
	out := make([]byte, maxDescriptorSize)
	copy(out, b)
	return out
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) need(n int) error {
	if r.off+n > len(r.buf) {
		return fmt.Errorf("catalog: descriptor truncated")
	}
	return nil
}

func (r *reader) readU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) readU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) readU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readU16()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}
