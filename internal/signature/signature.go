// Package signature validates the authenticity of bank callback payloads.
//
// The bank signs the "result" object of each callback. The signing string consists of
// the non-empty field values ordered by case-insensitive field name, joined with ':'
// and followed by ':' and the shared signature key. The signature is the base64 encoded
// SHA-256 digest of that string.
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// matched exactly, a differently cased key is signed as sent
var fixedPointFields = map[string]bool{
	"amount":     true,
	"commission": true,
}

// Verify reports whether provided is the valid signature of result under secretKey.
//
// Malformed fields never cause an error, they are simply left out of the signing string.
func Verify(result map[string]interface{}, provided string, secretKey string) bool {
	if provided == "" {
		return false
	}
	expected := Compute(result, secretKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// Compute returns the signature the bank would send along with result.
func Compute(result map[string]interface{}, secretKey string) string {
	sum := sha256.Sum256([]byte(signingString(result, secretKey)))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func signingString(result map[string]interface{}, secretKey string) string {
	values := make(map[string]string, len(result))
	keys := make([]string, 0, len(result))
	for key, raw := range result {
		value, ok := stringify(key, raw)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		values[key] = value
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		li, lj := strings.ToLower(keys[i]), strings.ToLower(keys[j])
		if li == lj {
			// keys differing only in case still need a stable order
			return keys[i] < keys[j]
		}
		return li < lj
	})

	parts := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		parts = append(parts, values[key])
	}
	parts = append(parts, secretKey)
	return strings.Join(parts, ":")
}

func stringify(key string, raw interface{}) (string, bool) {
	if raw == nil {
		return "", false
	}

	if fixedPointFields[key] {
		amount, ok := toDecimal(raw)
		if !ok {
			return "", false
		}
		return amount.StringFixed(2), true
	}

	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		if v {
			return "1", true
		}
		return "", true
	case float64:
		return decimal.NewFromFloat(v).String(), true
	case float32:
		return decimal.NewFromFloat32(v).String(), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), true
	case decimal.Decimal:
		return v.String(), true
	default:
		// nested objects and arrays have no defined string form
		return "", false
	}
}

func toDecimal(raw interface{}) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case int32:
		return decimal.NewFromInt32(v), true
	default:
		return decimal.Decimal{}, false
	}
}

// DecodeResult parses a callback "result" object so that numbers keep their exact textual form.
func DecodeResult(raw json.RawMessage) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	result := make(map[string]interface{})
	if err := dec.Decode(&result); err != nil {
		return nil, err
	}
	return result, nil
}
