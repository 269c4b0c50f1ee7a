package vl53l5cx

import "encoding/binary"

// swapBuffer reverses the byte order of every 32 bit word in b. The sensor
// stores words big endian while the host decodes them little endian
func swapBuffer(b []byte) {
	for i := 0; i+4 <= len(b); i += 4 {
		b[i], b[i+1], b[i+2], b[i+3] = b[i+3], b[i+2], b[i+1], b[i]
	}
}

// putUint32s encodes src little endian into dst
func putUint32s(dst []byte, src []uint32) {
	for i, w := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], w)
	}
}

// getUint32s decodes little endian words from src into dst, stopping at
// whichever runs out first
func getUint32s(dst []uint32, src []byte) {
	n := min(len(dst), len(src)/4)
	for i := 0; i < n; i++ {
		dst[i] = binary.LittleEndian.Uint32(src[i*4:])
	}
}

func getUint16s(dst []uint16, src []byte) {
	n := min(len(dst), len(src)/2)
	for i := 0; i < n; i++ {
		dst[i] = binary.LittleEndian.Uint16(src[i*2:])
	}
}

func getInt16s(dst []int16, src []byte) {
	n := min(len(dst), len(src)/2)
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2:]))
	}
}

func putInt16s(dst []byte, src []int16) {
	for i, w := range src {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(w))
	}
}
