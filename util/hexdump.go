// Package util holds small helpers shared by the command-line tools.
package util

import (
	"fmt"
	"strings"
)

const dumpBytesPerRow = 16

// DumpByteSlice formats a byte slice in hex with positions and an ASCII
// gutter, xxd style, for inspecting raw sectors.
func DumpByteSlice(b []byte) string {
	var out strings.Builder
	ascii := make([]byte, 0, dumpBytesPerRow)

	numRows := len(b) / dumpBytesPerRow
	if len(b)%dumpBytesPerRow != 0 {
		numRows++
	}
	for i := 0; i < numRows; i++ {
		firstByte := i * dumpBytesPerRow
		lastByte := firstByte + dumpBytesPerRow
		fmt.Fprintf(&out, "%08x: ", firstByte)
		for j := firstByte; j < lastByte; j++ {
			// extra spacing every 8 bytes to make rows easier to read
			if j%8 == 0 {
				out.WriteByte(' ')
			}
			if j >= len(b) {
				out.WriteString("   ")
				ascii = append(ascii, ' ')
				continue
			}
			fmt.Fprintf(&out, " %02x", b[j])
			if b[j] < 32 || b[j] > 126 {
				ascii = append(ascii, '.')
			} else {
				ascii = append(ascii, b[j])
			}
		}
		fmt.Fprintf(&out, "  %s\n", string(ascii))
		ascii = ascii[:0]
	}
	return out.String()
}
