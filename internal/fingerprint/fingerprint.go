// Package fingerprint computes the directionless, content-addressed
// digest that correlates a flow's open and close notifications.
package fingerprint

import (
	"crypto/md5"
	"encoding/binary"
)

// Size is the length in bytes of a fingerprint.
const Size = 16

// Fields is the canonical subset of connection fields the fingerprint is
// computed over. Src/Dst and L4Src/L4Dst are XORed before hashing so
// that either half of a bidirectional flow produces the same digest;
// TimestampS/US of the flow's opening observation are included so that
// distinct same-endpoint flows occurring at different times hash
// differently.
type Fields struct {
	Src, Dst     uint32
	L4Src, L4Dst uint16
	Protocol     uint16
	MsgType      int32
	SeqNum       int32
	TimestampS   uint64
	TimestampUS  uint64
}

// Compute returns the 16-byte digest for f. It is deterministic: equal
// Fields always produce equal digests, and it is invariant under
// swapping (Src, L4Src) with (Dst, L4Dst).
func Compute(f Fields) [Size]byte {
	var buf [32]byte

	binary.LittleEndian.PutUint32(buf[0:4], f.Src^f.Dst)
	binary.LittleEndian.PutUint16(buf[4:6], f.Protocol)
	binary.LittleEndian.PutUint16(buf[6:8], f.L4Src^f.L4Dst)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(f.MsgType))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(f.SeqNum))
	binary.LittleEndian.PutUint64(buf[16:24], f.TimestampS)
	binary.LittleEndian.PutUint64(buf[24:32], f.TimestampUS)

	return md5.Sum(buf[:])
}

// Hex returns the lowercase hex encoding of a digest, the representation
// carried in the wire ConnectionEvent's fingerprint field.
func Hex(digest [Size]byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, Size*2)
	for i, b := range digest {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}
