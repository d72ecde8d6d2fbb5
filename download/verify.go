package download

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"hash"
)

// digestVerifier accumulates streamed bytes into a hash and compares
// the final sum against an expected digest.
type digestVerifier struct {
	hash     hash.Hash
	expected []byte
}

func (v *digestVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

func (v *digestVerifier) Verify() error {
	actual := v.hash.Sum(nil)
	if !bytes.Equal(actual, v.expected) {
		return &Error{
			Err:    ErrHashMismatch,
			Detail: fmt.Sprintf("expected %s, got %s", hex.EncodeToString(v.expected), hex.EncodeToString(actual)),
		}
	}

	return nil
}
