package idempotency

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestEncodeDecode(t *testing.T) {
	payload, err := Encode(sample{Name: "pallet", Count: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"data":{"name":"pallet","count":3}}`, string(payload))

	var out sample
	require.NoError(t, Decode(payload, &out))
	assert.Equal(t, sample{Name: "pallet", Count: 3}, out)
}

func TestDecode_Corrupt(t *testing.T) {
	cases := map[string][]byte{
		"empty":       nil,
		"not json":    []byte("{{{"),
		"old version": []byte(`{"v":0,"data":{"name":"x"}}`),
		"no data":     []byte(`{"v":1}`),
		"wrong shape": []byte(`{"v":1,"data":{"count":"three"}}`),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var out sample
			err := Decode(payload, &out)
			assert.True(t, errors.Is(err, ErrCorruptPayload), "got %v", err)
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte(`{"v":1,"data":{"q":1}}`))
	b := Fingerprint([]byte(`{"v":1,"data":{"q":2}}`))

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Fingerprint([]byte(`{"v":1,"data":{"q":1}}`)))
}
