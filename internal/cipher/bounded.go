package cipher

import "context"

// Within runs decrypt in its own goroutine and returns when it finishes or
// ctx is done, whichever comes first. A Decrypter that ignores its context
// is abandoned on timeout; decrypt must release any key material it holds
// when it eventually returns.
func Within(ctx context.Context, decrypt func() (string, error)) (string, error) {
	type result struct {
		plaintext string
		err       error
	}
	done := make(chan result, 1)

	go func() {
		plaintext, err := decrypt()
		done <- result{plaintext: plaintext, err: err}
	}()

	select {
	case r := <-done:
		return r.plaintext, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
