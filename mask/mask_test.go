package mask_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rise-and-shine/cmdbus/mask"
)

type pair struct {
	key   string
	value any
}

func assertFields(t *testing.T, want []pair, got *orderedmap.OrderedMap[string, any]) {
	t.Helper()

	require.NotNil(t, got)
	require.Equal(t, len(want), got.Len(), "field count")

	i := 0
	for p := got.Oldest(); p != nil; p = p.Next() {
		assert.Equal(t, want[i].key, p.Key, "key at position %d", i)
		assert.Equal(t, want[i].value, p.Value, "value for %s", p.Key)
		i++
	}
}

type Address struct {
	City   string `json:"city"`
	Street string `json:"street" mask:"true"`
}

type ChargeCardCommand struct {
	CustomerID string            `json:"customer_id"`
	CardNumber string            `json:"card_number" mask:"true"`
	CVV        int               `json:"cvv"         mask:"true"`
	Amount     float64           `json:"amount"`
	Internal   string            `json:"-"`
	Notes      []string          `yaml:"notes"       mask:"TRUE"`
	Meta       map[string]string `mask:"true"`
	Billing    Address           `json:"billing"`
	Shipping   *Address          `json:"shipping"`
	Coupon     *string           `json:"coupon"      mask:"true"`
	secret     string
}

func TestFields_Command(t *testing.T) {
	cmd := ChargeCardCommand{
		CustomerID: "c-1",
		CardNumber: "4111111111111111",
		CVV:        123,
		Amount:     9.99,
		Internal:   "hidden",
		Notes:      []string{"gift"},
		Billing:    Address{City: "Tashkent", Street: "Amir Temur 1"},
		secret:     "x",
	}
	_ = cmd.secret

	assertFields(t, []pair{
		{"customer_id", "c-1"},
		{"card_number", "***masked-string***"},
		{"cvv", "***masked-int***"},
		{"amount", 9.99},
		{"notes", "***masked-slice***"},
		{"Meta", nil},
		{"billing.city", "Tashkent"},
		{"billing.street", "***masked-string***"},
		{"shipping", nil},
		{"coupon", nil},
	}, mask.Fields(cmd))
}

func TestFields_PointerAndNested(t *testing.T) {
	coupon := "SPRING"
	cmd := &ChargeCardCommand{
		Shipping: &Address{City: "Samarkand"},
		Coupon:   &coupon,
		Meta:     map[string]string{"k": "v"},
	}

	got := mask.Fields(cmd)

	v, ok := got.Get("shipping.city")
	require.True(t, ok)
	assert.Equal(t, "Samarkand", v)

	v, _ = got.Get("shipping.street")
	assert.Empty(t, v, "zero values are not masked")

	v, _ = got.Get("coupon")
	assert.Equal(t, "***masked-string***", v)

	v, _ = got.Get("Meta")
	assert.Equal(t, "***masked-map***", v)
}

func TestFields_NonStruct(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{name: "string", input: "plain", want: "plain"},
		{name: "int", input: 7, want: 7},
		{name: "nil pointer", input: (*ChargeCardCommand)(nil), want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertFields(t, []pair{{mask.ValueKey, tc.want}}, mask.Fields(tc.input))
		})
	}
}

func TestFields_Nil(t *testing.T) {
	assert.Nil(t, mask.Fields(nil))
}
