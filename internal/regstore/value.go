package regstore

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ValueType tags the data carried by a registry value.
type ValueType string

const (
	DWord        ValueType = "dword"
	String       ValueType = "string"
	ExpandString ValueType = "expand_string"
	Binary       ValueType = "binary"
	MultiString  ValueType = "multi_string"
)

// ParseValueType accepts the canonical names plus the REG_* and PowerShell
// spellings (DWord, ExpandString, MultiString).
func ParseValueType(value string) (ValueType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.TrimPrefix(normalized, "reg_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "dword", "integer", "int", "dword_little_endian":
		return DWord, nil
	case "string", "sz":
		return String, nil
	case "expand_string", "expandstring", "expand_sz":
		return ExpandString, nil
	case "binary":
		return Binary, nil
	case "multi_string", "multistring", "multi_sz":
		return MultiString, nil
	default:
		return "", fmt.Errorf("unknown value type %q", value)
	}
}

// Value is a type-tagged registry value. Only the field matching Type is
// meaningful.
type Value struct {
	Type    ValueType
	DWord   uint32
	Str     string
	Strings []string
	Bytes   []byte
}

func DWordValue(v uint32) Value         { return Value{Type: DWord, DWord: v} }
func StringValue(v string) Value        { return Value{Type: String, Str: v} }
func ExpandStringValue(v string) Value  { return Value{Type: ExpandString, Str: v} }
func BinaryValue(v []byte) Value        { return Value{Type: Binary, Bytes: slices.Clone(v)} }
func MultiStringValue(v []string) Value { return Value{Type: MultiString, Strings: slices.Clone(v)} }

// dwordFromInteger narrows a DWORD or QWORD read to a DWord value. QWORDs
// above the 32-bit range are rejected rather than truncated.
func dwordFromInteger(n uint64) (Value, error) {
	if n > math.MaxUint32 {
		return Value{}, fmt.Errorf("integer %d does not fit in a dword", n)
	}
	return DWordValue(uint32(n)), nil
}

// Validate reports whether the value carries a known type.
func (v Value) Validate() error {
	switch v.Type {
	case DWord, String, ExpandString, Binary, MultiString:
		return nil
	case "":
		return fmt.Errorf("value type is required")
	default:
		return fmt.Errorf("unknown value type %q", v.Type)
	}
}

// Equal compares type and payload.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case DWord:
		return v.DWord == other.DWord
	case String, ExpandString:
		return v.Str == other.Str
	case Binary:
		return bytes.Equal(v.Bytes, other.Bytes)
	case MultiString:
		return slices.Equal(v.Strings, other.Strings)
	}
	return true
}

func (v Value) String() string {
	switch v.Type {
	case DWord:
		return fmt.Sprintf("0x%08x (%d)", v.DWord, v.DWord)
	case String, ExpandString:
		return strconv.Quote(v.Str)
	case Binary:
		return hex.EncodeToString(v.Bytes)
	case MultiString:
		return "[" + strings.Join(v.Strings, ", ") + "]"
	}
	return "<invalid>"
}

// FromAny converts decoded TOML/YAML/CLI input into a Value of the given type.
func FromAny(valueType ValueType, raw any) (Value, error) {
	switch valueType {
	case DWord:
		n, err := toDWord(raw)
		if err != nil {
			return Value{}, err
		}
		return DWordValue(n), nil
	case String, ExpandString:
		s, ok := raw.(string)
		if !ok {
			s = fmt.Sprint(raw)
		}
		return Value{Type: valueType, Str: s}, nil
	case Binary:
		b, err := toBytes(raw)
		if err != nil {
			return Value{}, err
		}
		return BinaryValue(b), nil
	case MultiString:
		list, err := toStrings(raw)
		if err != nil {
			return Value{}, err
		}
		return MultiStringValue(list), nil
	default:
		return Value{}, fmt.Errorf("unknown value type %q", valueType)
	}
}

func toDWord(raw any) (uint32, error) {
	switch v := raw.(type) {
	case int:
		return intToDWord(int64(v))
	case int64:
		return intToDWord(v)
	case uint32:
		return v, nil
	case uint64:
		if v > math.MaxUint32 {
			return 0, fmt.Errorf("dword %d out of range", v)
		}
		return uint32(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("dword %v is not an integer", v)
		}
		return intToDWord(int64(v))
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		base := 10
		if lower := strings.ToLower(s); strings.HasPrefix(lower, "0x") {
			s, base = s[2:], 16
		}
		n, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return 0, fmt.Errorf("parse dword %q: %w", v, err)
		}
		return intToDWord(n)
	case nil:
		return 0, fmt.Errorf("dword value is required")
	default:
		return 0, fmt.Errorf("unsupported dword input %T", raw)
	}
}

// Negative values are accepted down to MinInt32 and stored as their
// two's-complement bit pattern, matching how reg.exe treats them.
func intToDWord(n int64) (uint32, error) {
	if n < math.MinInt32 || n > math.MaxUint32 {
		return 0, fmt.Errorf("dword %d out of range", n)
	}
	return uint32(n), nil
}

func toBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		cleaned := strings.NewReplacer(",", "", " ", "", "0x", "").Replace(strings.ToLower(v))
		b, err := hex.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("parse binary %q: %w", v, err)
		}
		return b, nil
	case []any:
		out := make([]byte, 0, len(v))
		for _, item := range v {
			n, err := toDWord(item)
			if err != nil || n > math.MaxUint8 {
				return nil, fmt.Errorf("binary element %v is not a byte", item)
			}
			out = append(out, byte(n))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported binary input %T", raw)
	}
}

func toStrings(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case string:
		if v == "" {
			return []string{}, nil
		}
		return strings.Split(v, `\0`), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("multi_string element %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported multi_string input %T", raw)
	}
}
