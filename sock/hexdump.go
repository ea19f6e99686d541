package sock

import (
	"fmt"
	"strings"
)

const dumpBytesPerRow = 16

// CanonicalDump renders data as a fixed-width hex dump: a byte-count
// header, then rows of 16 bytes in 4-byte clusters with a trailing
// printable-ASCII column.  Non-printable bytes render as '.'.
//
//	Length: 5 (0x5) bytes
//	0000:   48 65 6c 6c  6f                                     Hello
func CanonicalDump(data []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Length: %d (0x%x) bytes", len(data), len(data))

	for off := 0; off < len(data); off += dumpBytesPerRow {
		end := off + dumpBytesPerRow
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]

		var hexCol strings.Builder
		for i, c := range row {
			if i > 0 {
				if i%4 == 0 {
					hexCol.WriteString("  ")
				} else {
					hexCol.WriteByte(' ')
				}
			}
			fmt.Fprintf(&hexCol, "%02x", c)
		}

		// A full row's hex column is 50 characters wide; short rows
		// pad so the ASCII column stays aligned.
		fmt.Fprintf(&b, "\n%04x:   %-50s   %s", off, hexCol.String(), printableASCII(row))
	}
	return b.String()
}

func printableASCII(row []byte) string {
	out := make([]byte, len(row))
	for i, c := range row {
		if c >= 0x20 && c <= 0x7e {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
