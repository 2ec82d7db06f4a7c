package validator

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/brahmanandan/tr181-comparator/pkg/model"
)

// Coerce converts a raw value to the Go representation for the given
// TR-181 data type. It returns the coerced value, or an error describing
// why the value cannot be interpreted as that type.
//
// Each case below is one table entry rather than type-switch logic
// scattered through callers.
func Coerce(dataType model.DataType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch dataType {
	case model.DataTypeInt, model.DataTypeLong:
		return coerceSignedInt(value)
	case model.DataTypeUnsignedInt, model.DataTypeUnsignedLong:
		return coerceUnsignedInt(value)
	case model.DataTypeBoolean:
		return coerceBool(value)
	case model.DataTypeString:
		return coerceString(value)
	case model.DataTypeDateTime:
		return coerceDateTime(value)
	case model.DataTypeBase64:
		return coerceBase64(value)
	case model.DataTypeHexBinary:
		return coerceHexBinary(value)
	default:
		// Unknown declared type: fall back to string, matching how an
		// unrecognized source type is normalized.
		return coerceString(value)
	}
}

func coerceSignedInt(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("value %v has a fractional component, cannot coerce to integer", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to integer", value)
	}
}

func coerceUnsignedInt(value any) (uint64, error) {
	signed, err := coerceSignedInt(value)
	if err != nil {
		return 0, err
	}
	if signed < 0 {
		return 0, fmt.Errorf("value %d is negative, expected unsigned integer", signed)
	}
	return uint64(signed), nil
}

func coerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		default:
			return false, fmt.Errorf("cannot interpret %q as boolean", v)
		}
	case int64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
		return false, fmt.Errorf("integer value %d is not a valid boolean", v)
	case int:
		return coerceBool(int64(v))
	default:
		return false, fmt.Errorf("cannot coerce %T to boolean", value)
	}
}

func coerceString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// dateTimeLayouts covers ISO-8601 with a trailing Z or numeric offset,
// tolerating fractional seconds.
var dateTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

func coerceDateTime(value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		if t, ok := value.(time.Time); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("expected ISO-8601 string, got %T", value)
	}
	var lastErr error
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 dateTime %q: %w", s, lastErr)
}

func coerceBase64(value any) (string, error) {
	s, err := coerceString(value)
	if err != nil {
		return "", err
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return "", fmt.Errorf("invalid base64 value %q: %w", s, err)
	}
	return s, nil
}

func coerceHexBinary(value any) (string, error) {
	s, err := coerceString(value)
	if err != nil {
		return "", err
	}
	if len(s)%2 != 0 {
		return "", fmt.Errorf("hexBinary value %q must have an even number of characters", s)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("invalid hexBinary value %q: %w", s, err)
	}
	return s, nil
}

// NormalizeSourceType maps a raw CWMP source-reported type string to a
// model.DataType. Unrecognized types map to string, with ok=false to let
// the caller emit a warning.
func NormalizeSourceType(raw string) (dt model.DataType, ok bool) {
	switch strings.ToLower(strings.TrimPrefix(strings.ToLower(raw), "xsd:")) {
	case "string":
		return model.DataTypeString, true
	case "int", "int32", "integer":
		return model.DataTypeInt, true
	case "unsignedint":
		return model.DataTypeUnsignedInt, true
	case "long":
		return model.DataTypeLong, true
	case "unsignedlong":
		return model.DataTypeUnsignedLong, true
	case "boolean", "bool":
		return model.DataTypeBoolean, true
	case "datetime", "date":
		return model.DataTypeDateTime, true
	case "base64binary", "base64":
		return model.DataTypeBase64, true
	case "hexbinary", "hex":
		return model.DataTypeHexBinary, true
	default:
		return model.DataTypeString, false
	}
}

// NormalizeSourceAccess maps a raw source-reported access string to a
// model.AccessLevel.
func NormalizeSourceAccess(raw string) model.AccessLevel {
	switch strings.ToLower(raw) {
	case "readwrite", "rw", "read-write":
		return model.AccessReadWrite
	case "writeonly", "wo", "write-only", "write":
		return model.AccessWriteOnly
	default:
		return model.AccessReadOnly
	}
}
