package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// PayloadVersion is bumped whenever the shape of stored requests or
// responses changes incompatibly. Older versions stay decodable for as long
// as records carrying them can still be replayed.
const PayloadVersion = 1

var ErrCorruptPayload = errors.New("idempotency: corrupt payload")

type envelope struct {
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: PayloadVersion, Data: data})
}

// Decode unpacks an envelope into dest. Any failure, including an unknown
// version, wraps ErrCorruptPayload.
func Decode(payload []byte, dest interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty", ErrCorruptPayload)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if env.Version != PayloadVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptPayload, env.Version)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: missing data", ErrCorruptPayload)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return nil
}

// Fingerprint identifies a request payload independently of its key.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
