package vl53l5cx

// BlockHeader is the 32 bit descriptor prefixing every field of an output
// list or streamed frame.
//
//	bits 31-16  idx   field identifier
//	bits 15-4   size  element count, or byte count when type is 0 or >= 13
//	bits 3-0    type  bytes per element
type BlockHeader uint32

const (
	bhTypeMask  = 0x0000000F
	bhSizeMask  = 0x0000FFF0
	bhSizeShift = 4
	bhIdxShift  = 16

	// bhMaxSize is the largest value the 12 bit size field holds
	bhMaxSize = 0x0FFF
)

// NewBlockHeader packs idx, size and typ into a BlockHeader. size and typ are
// truncated to their field widths
func NewBlockHeader(idx uint16, size uint16, typ uint8) BlockHeader {
	return BlockHeader(uint32(idx)<<bhIdxShift |
		(uint32(size)<<bhSizeShift)&bhSizeMask |
		uint32(typ)&bhTypeMask)
}

// Idx returns the field identifier
func (h BlockHeader) Idx() uint16 {
	return uint16(uint32(h) >> bhIdxShift)
}

// Size returns the raw size field
func (h BlockHeader) Size() uint16 {
	return uint16((uint32(h) & bhSizeMask) >> bhSizeShift)
}

// Type returns the type field
func (h BlockHeader) Type() uint8 {
	return uint8(uint32(h) & bhTypeMask)
}

// WithSize returns a copy of h with the size field replaced
func (h BlockHeader) WithSize(size uint16) BlockHeader {
	return NewBlockHeader(h.Idx(), size, h.Type())
}

// IsArray reports whether the type field encodes an array of type byte
// elements
func (h BlockHeader) IsArray() bool {
	t := h.Type()
	return t >= 0x01 && t < 0x0D
}

// PayloadSize returns the number of payload bytes following the header
func (h BlockHeader) PayloadSize() int {

	if h.IsArray() {
		return int(h.Type()) * int(h.Size())
	}

	return int(h.Size())
}
