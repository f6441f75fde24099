package signature

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testKey = "secret"

func baseResult(amount interface{}) map[string]interface{} {
	return map[string]interface{}{
		"orderId":     "123",
		"qrStatus":    "Paid",
		"amount":      amount,
		"currency":    "MDL",
		"payId":       "P1",
		"referenceId": "R1",
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		result   map[string]interface{}
		expected string
	}{
		{
			name:     "Should format an integral amount with two decimals",
			result:   baseResult(10),
			expected: "H6jmrjBYkTO4xhumW7j9fRz1Zm26fZQzFsb5TCLriL0=",
		},
		{
			name:     "Should format an amount given as json number",
			result:   baseResult(json.Number("10")),
			expected: "H6jmrjBYkTO4xhumW7j9fRz1Zm26fZQzFsb5TCLriL0=",
		},
		{
			name:     "Should format an amount given as string",
			result:   baseResult("10.0"),
			expected: "H6jmrjBYkTO4xhumW7j9fRz1Zm26fZQzFsb5TCLriL0=",
		},
		{
			name:     "Should round the amount half up to two decimals",
			result:   baseResult(json.Number("10.256")),
			expected: "VCgrYuQKIsmxbCmITOwjui25xkreFIAbvyp4PmDYBYI=",
		},
		{
			name:     "Should round a float amount half up to two decimals",
			result:   baseResult(10.256),
			expected: "VCgrYuQKIsmxbCmITOwjui25xkreFIAbvyp4PmDYBYI=",
		},
		{
			name: "Should drop null blank and nested fields",
			result: func() map[string]interface{} {
				r := baseResult(json.Number("10"))
				r["payerName"] = nil
				r["terminalId"] = "   "
				r["extra"] = map[string]interface{}{"a": "b"}
				r["list"] = []interface{}{"x"}
				r["flag"] = false
				return r
			}(),
			expected: "H6jmrjBYkTO4xhumW7j9fRz1Zm26fZQzFsb5TCLriL0=",
		},
		{
			name: "Should drop an unparseable commission",
			result: func() map[string]interface{} {
				r := baseResult(json.Number("10"))
				r["commission"] = "n/a"
				return r
			}(),
			expected: "H6jmrjBYkTO4xhumW7j9fRz1Zm26fZQzFsb5TCLriL0=",
		},
		{
			name: "Should format commission like the amount",
			result: func() map[string]interface{} {
				r := baseResult(json.Number("10"))
				r["commission"] = json.Number("0.5")
				return r
			}(),
			expected: "kvSeHirI8/f9aOP/1594l1idRSQhkX95md0mSRJhhrU=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Compute(tt.result, testKey))
			require.True(t, Verify(tt.result, tt.expected, testKey))
		})
	}
}

func TestSigningStringSortsKeysCaseInsensitively(t *testing.T) {
	result := map[string]interface{}{
		"b":     "2",
		"A":     "1",
		"c":     "3",
		"Delta": "4",
	}

	require.Equal(t, "1:2:3:4:k", signingString(result, "k"))
}

func TestSigningStringFormatsOnlyExactAmountKeys(t *testing.T) {
	result := map[string]interface{}{
		"Amount":     json.Number("10"),
		"amount":     json.Number("5"),
		"COMMISSION": json.Number("0.5"),
	}

	require.Equal(t, "10:5.00:0.5:k", signingString(result, "k"))
}

func TestVerifyIsIndependentOfFieldOrder(t *testing.T) {
	payloads := []string{
		`{"orderId":"123","qrStatus":"Paid","amount":10,"currency":"MDL","payId":"P1","referenceId":"R1"}`,
		`{"referenceId":"R1","payId":"P1","currency":"MDL","amount":10,"qrStatus":"Paid","orderId":"123"}`,
		`{"amount":10,"referenceId":"R1","orderId":"123","currency":"MDL","qrStatus":"Paid","payId":"P1"}`,
		`{"currency":"MDL","payId":"P1","amount":10.00,"orderId":"123","referenceId":"R1","qrStatus":"Paid"}`,
	}

	for _, payload := range payloads {
		result, err := DecodeResult(json.RawMessage(payload))
		require.NoError(t, err)
		require.True(t, Verify(result, "H6jmrjBYkTO4xhumW7j9fRz1Zm26fZQzFsb5TCLriL0=", testKey), payload)
	}
}

func TestVerifyRejects(t *testing.T) {
	valid := "H6jmrjBYkTO4xhumW7j9fRz1Zm26fZQzFsb5TCLriL0="

	tests := []struct {
		name      string
		result    map[string]interface{}
		signature string
		key       string
	}{
		{
			name:      "Should reject an empty signature",
			result:    baseResult(10),
			signature: "",
			key:       testKey,
		},
		{
			name:      "Should reject a signature made with another key",
			result:    baseResult(10),
			signature: valid,
			key:       "other",
		},
		{
			name:      "Should reject a tampered amount",
			result:    baseResult(decimal.RequireFromString("10.01")),
			signature: valid,
			key:       testKey,
		},
		{
			name:      "Should reject garbage",
			result:    baseResult(10),
			signature: "not-base64-at-all",
			key:       testKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, Verify(tt.result, tt.signature, tt.key))
		})
	}
}

func TestDecodeResultKeepsNumbersExact(t *testing.T) {
	result, err := DecodeResult(json.RawMessage(`{"amount":123.45,"orderId":42}`))
	require.NoError(t, err)
	require.Equal(t, json.Number("123.45"), result["amount"])
	require.Equal(t, json.Number("42"), result["orderId"])

	_, err = DecodeResult(json.RawMessage(`[1,2]`))
	require.Error(t, err)
}
