package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"unicode/utf8"
)

// CanonicalJSON renders v as canonical JSON: object keys sorted bytewise at
// every depth, no insignificant whitespace, numbers copied verbatim and
// strings escaped minimally (quote, backslash and control characters only).
// Whitespace inside string values is preserved.
//
// v may be any value encoding/json can marshal. The output for two values
// that differ only in key order is byte-identical.
func CanonicalJSON(v interface{}) ([]byte, error) {
	var raw bytes.Buffer
	enc := json.NewEncoder(&raw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCanonicalJSON, err)
	}
	return CanonicalizeJSON(raw.Bytes())
}

// CanonicalizeJSON re-renders an already encoded JSON document canonically.
// Objects with a repeated key are rejected: a decoder keeping the first
// value and one keeping the last would read different documents.
func CanonicalizeJSON(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tree, err := decodeTree(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrCanonicalJSON)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// maxCanonicalDepth bounds recursion on hostile input.
const maxCanonicalDepth = 64

func decodeTree(dec *json.Decoder, depth int) (interface{}, error) {
	if depth > maxCanonicalDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrCanonicalJSON, maxCanonicalDepth)
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCanonicalJSON, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '[':
		arr := []interface{}{}
		for dec.More() {
			elem, err := decodeTree(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanonicalJSON, err)
		}
		return arr, nil
	case '{':
		obj := map[string]interface{}{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCanonicalJSON, err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("%w: object key %v is not a string", ErrCanonicalJSON, keyTok)
			}
			if _, dup := obj[key]; dup {
				return nil, fmt.Errorf("%w: duplicate key %q", ErrCanonicalJSON, key)
			}
			val, err := decodeTree(dec, depth+1)
			if err != nil {
				return nil, err
			}
			obj[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanonicalJSON, err)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrCanonicalJSON, delim)
	}
}

func writeCanonical(buf *bytes.Buffer, v interface{}, depth int) error {
	if depth > maxCanonicalDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrCanonicalJSON, maxCanonicalDepth)
	}

	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case json.Number:
		buf.WriteString(val.String())
	case string:
		writeCanonicalString(buf, val)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k], depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: unexpected %T", ErrCanonicalJSON, v)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeCanonicalString escapes only what RFC 8259 requires. encoding/json
// would additionally escape U+2028 and U+2029, which chain clients do not.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			buf.WriteRune(r)
			i += size
			continue
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
			} else {
				buf.WriteByte(c)
			}
		}
		i++
	}
	buf.WriteByte('"')
}
