package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

var ErrUnexpectedShape = errors.New("unexpected list response shape")

// listKeys 包装对象中允许出现的列表字段，按顺序匹配
var listKeys = []string{"tokens", "data", "items", "wallets"}

// DecodeList 只接受：裸数组、{"tokens"|"data"|"items"|"wallets": [...]}、null
func DecodeList[T any](raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	switch trimmed[0] {
	case '[':
		return decodeArray[T](trimmed)
	case '{':
		var obj map[string]json.RawMessage
		if err := sonic.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		for _, key := range listKeys {
			inner, ok := obj[key]
			if !ok {
				continue
			}
			inner = bytes.TrimSpace(inner)
			if bytes.Equal(inner, []byte("null")) {
				return []T{}, nil
			}
			if len(inner) == 0 || inner[0] != '[' {
				return nil, fmt.Errorf("%w: %q is not an array", ErrUnexpectedShape, key)
			}
			return decodeArray[T](inner)
		}
		return nil, fmt.Errorf("%w: object without list field", ErrUnexpectedShape)
	}
	return nil, ErrUnexpectedShape
}

func decodeArray[T any](raw []byte) ([]T, error) {
	items := make([]T, 0)
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return items, nil
}
