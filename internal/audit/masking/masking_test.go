package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("1234"))
	assert.Equal(t, "pay_****WXYZ", MaskSecret("pay_ABCDWXYZ"))
}

func TestMaskJSONOnlyMasksSensitiveKeys(t *testing.T) {
	masked := MaskJSON(map[string]any{
		"email":     "a@example.com",
		"otp":       "482913",
		"signature": "deadbeefcafe",
		"nested": map[string]any{
			"refresh_token": "abcdefgh",
			"order_id":      "order_1",
		},
		"amount": 500,
	})

	assert.Equal(t, "a@example.com", masked["email"])
	assert.Equal(t, "****2913", masked["otp"])
	assert.Equal(t, "****cafe", masked["signature"])
	assert.Equal(t, 500, masked["amount"])

	nested, ok := masked["nested"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, "****efgh", nested["refresh_token"])
		assert.Equal(t, "order_1", nested["order_id"])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, IsSensitiveKey("target_entity_pan"))
	assert.True(t, IsSensitiveKey("Password"))
	assert.False(t, IsSensitiveKey("panel"))
	assert.False(t, IsSensitiveKey("report_id"))
}
