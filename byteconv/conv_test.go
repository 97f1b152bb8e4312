package byteconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBtoh(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		n    int
		want string
	}{
		{"full", []byte{0xAB, 0x01}, 4, "AB01"},
		{"truncated", []byte{0x02, 0x34}, 3, "234"},
		{"nibble", []byte{0x0F}, 1, "F"},
		{"clamped", []byte{0x0F}, 5, "0F"},
		{"none", []byte{0x0F}, -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Btoh(tt.src, tt.n))
		})
	}
}

func TestU16toh(t *testing.T) {
	assert.Equal(t, []byte{0x12, 0x34}, U16tob(0x1234))
	assert.Equal(t, "0FFF", U16toh(0xFFF, 4))
	assert.Equal(t, "A", U8toh(0x1A, 1))
}
