// Package byteconv formats register and address values as upper case hex
// without allocating through fmt.
package byteconv

const hextableUpper = "0123456789ABCDEF"

// Btoh returns the last n hex digits of src. n is clamped to the digits
// available.
func Btoh(src []byte, n int) string {
	dst := make([]byte, len(src)*2)
	j := 0
	for _, v := range src {
		dst[j] = hextableUpper[v>>4]
		dst[j+1] = hextableUpper[v&0x0f]
		j += 2
	}
	n = min(max(n, 0), len(dst))
	return string(dst[len(dst)-n:])
}

// U16tob returns the big endian bytes of i.
func U16tob(i uint16) []byte {
	var b [2]byte
	b[0] = byte(i >> 8)
	b[1] = byte(i)
	return b[:]
}

// U16toh returns the last n hex digits of i.
func U16toh(i uint16, n int) string {
	return Btoh(U16tob(i), n)
}

// U8toh returns the last n hex digits of i.
func U8toh(i uint8, n int) string {
	return Btoh([]byte{i}, n)
}
