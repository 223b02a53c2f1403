// Package testing provides test utilities for crosign: fixed vectors, an
// emulated Ledger device and sign-bytes determinism assertions.
package testing

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// SignBytesFunc produces the bytes a signer is asked to sign.
type SignBytesFunc func() ([]byte, error)

// AssertSignBytesDeterminism calls fn iterations times and asserts every
// result is byte-identical to the first.
//
// Non-deterministic sign bytes (map iteration, unsorted keys) make the chain
// reconstruct a different document and reject the signature.
//
// Usage:
//
//	crosigntesting.AssertSignBytesDeterminism(t, func() ([]byte, error) {
//	    return builder.SignBytes(0, 0)
//	}, 100)
func AssertSignBytesDeterminism(t *testing.T, fn SignBytesFunc, iterations int) {
	t.Helper()

	if iterations < 2 {
		t.Fatal("AssertSignBytesDeterminism requires at least 2 iterations")
	}

	first, err := fn()
	require.NoError(t, err, "sign bytes failed on first call")
	require.NotEmpty(t, first, "sign bytes empty on first call")

	for i := 1; i < iterations; i++ {
		result, err := fn()
		require.NoError(t, err, "sign bytes failed on iteration %d", i)
		if !bytes.Equal(first, result) {
			t.Fatalf("sign bytes differ on iteration %d.\n"+
				"First: %q\n"+
				"Got:   %q",
				i, first, result)
		}
	}
}

// AssertSignBytesDeterminismConcurrent is AssertSignBytesDeterminism run from
// several goroutines at once. Run with -race for it to be meaningful.
func AssertSignBytesDeterminismConcurrent(t *testing.T, fn SignBytesFunc, goroutines, iterationsPerGoroutine int) {
	t.Helper()

	if goroutines < 1 || iterationsPerGoroutine < 1 {
		t.Fatal("AssertSignBytesDeterminismConcurrent requires at least 1 goroutine and 1 iteration")
	}

	reference, err := fn()
	require.NoError(t, err, "sign bytes failed on reference call")

	type result struct {
		data      []byte
		err       error
		goroutine int
		iteration int
	}
	results := make(chan result, goroutines*iterationsPerGoroutine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < iterationsPerGoroutine; i++ {
				data, err := fn()
				results <- result{data: data, err: err, goroutine: g, iteration: i}
			}
		}(g)
	}
	wg.Wait()
	close(results)

	for r := range results {
		if r.err != nil {
			t.Fatalf("sign bytes failed in goroutine %d, iteration %d: %v", r.goroutine, r.iteration, r.err)
		}
		if !bytes.Equal(reference, r.data) {
			t.Fatalf("sign bytes differ in goroutine %d, iteration %d.\nReference: %q\nGot:       %q",
				r.goroutine, r.iteration, reference, r.data)
		}
	}
}
