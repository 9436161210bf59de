package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_JSONAcceptsStringAndNumber(t *testing.T) {
	var v struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1000000000000000000000","b":42}`), &v))
	assert.Equal(t, "1000000000000000000000", v.A.String())
	assert.Equal(t, "42", v.B.String())

	out, err := json.Marshal(v.A)
	require.NoError(t, err)
	assert.Equal(t, `"1000000000000000000000"`, string(out))
}

func TestAmount_RejectsNegativeAndGarbage(t *testing.T) {
	_, err := NewAmount("-1")
	assert.Error(t, err)
	_, err = NewAmount("1.5")
	assert.Error(t, err)
}

func TestAmount_Scan(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan([]byte("123456789012345678901234567890")))
	assert.Equal(t, "123456789012345678901234567890", a.String())

	require.NoError(t, a.Scan(nil))
	assert.True(t, a.IsZero())
}

func TestAmount_Add(t *testing.T) {
	a := AmountFromInt64(600)
	b := AmountFromInt64(400)
	assert.Equal(t, "1000", a.Add(b).String())
	assert.Equal(t, "600", a.String())
	assert.Equal(t, 1, a.Cmp(b))
}
