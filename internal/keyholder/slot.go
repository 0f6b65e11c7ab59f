package keyholder

import (
	"errors"

	"github.com/awnumar/memguard"
)

var errNoKey = errors.New("no key held")

// keySlot owns the one key. It is touched only by the holder loop.
type keySlot struct {
	enclave *memguard.Enclave
}

// set replaces the key. Material is moved into the enclave and wiped from
// the caller's slice. Empty material clears the slot.
func (s *keySlot) set(material []byte) {
	s.enclave = nil
	if len(material) == 0 {
		return
	}
	s.enclave = memguard.NewEnclave(material)
}

func (s *keySlot) held() bool {
	return s.enclave != nil
}

// snapshot returns the current enclave. A decrypt started before an
// overwrite keeps using the key it started with.
func (s *keySlot) snapshot() *memguard.Enclave {
	return s.enclave
}

func (s *keySlot) clear() {
	s.enclave = nil
}

// use opens an enclave for the duration of fn and wipes the plaintext copy.
func use(enclave *memguard.Enclave, fn func(key []byte) error) error {
	if enclave == nil {
		return errNoKey
	}

	locked, err := enclave.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}
