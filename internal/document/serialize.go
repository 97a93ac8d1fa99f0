package document

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// String renders v in the document text format. Strings are quoted without
// re-escaping, floats use the shortest decimal form, and object members are
// emitted in key order so the output is deterministic. Whole floats too large
// for an int64 are written with an exponent so they parse back as floats.
func (v *Value) String() string {
	var sb strings.Builder
	v.writeTo(&sb)
	return sb.String()
}

func (v *Value) writeTo(sb *strings.Builder) {
	switch v.kind {
	case KindString:
		sb.WriteByte('"')
		sb.WriteString(v.str)
		sb.WriteByte('"')
	case KindInteger:
		sb.WriteString(strconv.FormatInt(v.integer, 10))
	case KindFloat:
		sb.WriteString(formatFloat(v.float))
	case KindBoolean:
		sb.WriteString(strconv.FormatBool(v.boolean))
	case KindArray:
		sb.WriteByte('[')
		for i, elem := range v.array {
			if i > 0 {
				sb.WriteString(", ")
			}
			elem.writeTo(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.object))
		for k := range v.object {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('"')
			sb.WriteString(k)
			sb.WriteString(`": `)
			v.object[k].writeTo(sb)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("null")
	}
}

func formatFloat(f float64) string {
	text := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(text, ".") && math.Abs(f) >= math.MaxInt64 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return text
}
