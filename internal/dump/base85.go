package dump

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// alphabet is the RFC 1924 character set, the one Python's base64.b85encode
// and the inference runtime use. encoding/ascii85 uses a different set.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz!#$%&()*+-;<=>?@^_`{|}~"

var decodeTable = func() [256]int8 {
	var table [256]int8
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		table[alphabet[i]] = int8(i)
	}
	return table
}()

// EncodeBase85 encodes data with the RFC 1924 alphabet. data is zero-padded
// to a multiple of 4 bytes and every 4-byte group, read as a big-endian
// uint32, becomes 5 characters.
func EncodeBase85(data []byte) string {
	groups := (len(data) + 3) / 4
	padded := make([]byte, groups*4)
	copy(padded, data)

	out := make([]byte, groups*5)
	for g := 0; g < groups; g++ {
		acc := binary.BigEndian.Uint32(padded[g*4:])
		for i := 4; i >= 0; i-- {
			out[g*5+i] = alphabet[acc%85]
			acc /= 85
		}
	}
	return string(out)
}

// DecodeBase85 reverses EncodeBase85. A trailing partial group of k
// characters (as written by unpadded encoders) yields k-1 bytes.
func DecodeBase85(s string) ([]byte, error) {
	out := make([]byte, 0, (len(s)+4)/5*4)
	for start := 0; start < len(s); start += 5 {
		end := min(start+5, len(s))
		chunk := s[start:end]
		if len(chunk) == 1 {
			return nil, errors.Errorf("base85: dangling character at offset %d", start)
		}

		var acc uint64
		for i := 0; i < 5; i++ {
			digit := int8(len(alphabet) - 1)
			if i < len(chunk) {
				digit = decodeTable[chunk[i]]
				if digit < 0 {
					return nil, errors.Errorf("base85: invalid character %q at offset %d", chunk[i], start+i)
				}
			}
			acc = acc*85 + uint64(digit)
		}
		if acc > 0xFFFFFFFF {
			return nil, errors.Errorf("base85: group at offset %d overflows", start)
		}

		var group [4]byte
		binary.BigEndian.PutUint32(group[:], uint32(acc))
		out = append(out, group[:len(chunk)-1]...)
	}
	return out, nil
}
