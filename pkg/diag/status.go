package diag

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/ieee488"
)

// StatusBufferSize is the largest reply the diagnostics ROM sends.
const StatusBufferSize = 256

// Status is the diagnostics ROM reply read during a probe.
type Status struct {
	// Raw holds the bytes exactly as received.
	Raw []byte
	// Text is the printable form of Raw with trailing CR/NUL padding removed.
	// It is empty when Warning is set.
	Text string
	// Warning wraps ieee488.ErrDecode when Raw is not printable text.
	Warning error
}

// DecodeStatus interprets raw status bytes as printable text. A decode
// failure is reported in Status.Warning and never returned as an error.
func DecodeStatus(raw []byte) Status {
	st := Status{Raw: append([]byte(nil), raw...)}
	trimmed := bytes.TrimRight(raw, "\r\n\x00")

	if !utf8.Valid(trimmed) {
		st.Warning = fmt.Errorf("%w: invalid UTF-8 in % X", ieee488.ErrDecode, raw)
		return st
	}
	for i, r := range string(trimmed) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			st.Warning = fmt.Errorf("%w: byte offset %d is 0x%02X", ieee488.ErrDecode, i, trimmed[i])
			return st
		}
	}
	st.Text = string(trimmed)
	return st
}
