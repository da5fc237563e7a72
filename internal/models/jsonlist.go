package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"gorm.io/datatypes"
)

// DecodeJSONList is the single decoder for structured list columns
// (question_ids, choices, correct_key, answer_ids).
//
// It accepts either a JSON array or a JSON string whose content is an encoded
// array, which is what text columns written by older importers hold. SQL NULL,
// empty input and JSON null decode to an empty slice. Anything else is an error;
// the result is never nil on success.
func DecodeJSONList[T any](raw []byte) ([]T, error) {
	return decodeJSONList[T](raw, true)
}

func decodeJSONList[T any](raw []byte, allowEncoded bool) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	switch trimmed[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	case '"':
		if !allowEncoded {
			return nil, fmt.Errorf("decode list: nested encoded text")
		}
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return decodeJSONList[T]([]byte(inner), false)
	default:
		return nil, fmt.Errorf("decode list: expected array, got %q", truncate(trimmed, 32))
	}
}

// DecodeIDList decodes a list of numeric ids. Entries that are not whole
// numbers are dropped, so a list with a stray string still yields its ids.
func DecodeIDList(raw []byte) ([]int64, error) {
	values, err := DecodeJSONList[interface{}](raw)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		f, ok := v.(float64)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			continue
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			continue
		}
		ids = append(ids, int64(f))
	}
	return ids, nil
}

// PositiveIDs keeps ids greater than zero, preserving order.
func PositiveIDs(ids []int64) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, uint(id))
		}
	}
	return out
}

// EncodeJSONList renders a list for storage in a JSON column. A nil slice is
// stored as an empty array.
func EncodeJSONList[T any](list []T) (datatypes.JSON, error) {
	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
