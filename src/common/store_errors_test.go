package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsStore(t *testing.T) {
	err := NewStoreErr("EntryCache", KeyNotFound, "bafk")

	if !IsStore(err, KeyNotFound) {
		t.Fatalf("%v should be a KeyNotFound StoreErr", err)
	}
	if IsStore(err, SkippedIndex) {
		t.Fatalf("%v should not be a SkippedIndex StoreErr", err)
	}
	if IsStore(errors.New("EntryCache, bafk, Not Found"), KeyNotFound) {
		t.Fatal("plain errors are never StoreErrs")
	}
	if !IsStore(fmt.Errorf("loading: %w", err), KeyNotFound) {
		t.Fatal("wrapped StoreErrs should be recognized")
	}
	if got, want := err.Error(), "EntryCache, bafk, Not Found"; got != want {
		t.Fatalf("Error() should be %q, not %q", want, got)
	}
}

func TestHexRoundTrip(t *testing.T) {
	raw := []byte{0x04, 0xab, 0xcd}

	enc := EncodeToString(raw)
	if enc != "0X04ABCD" {
		t.Fatalf("unexpected encoding %s", enc)
	}

	dec, err := DecodeFromString(enc)
	if err != nil {
		t.Fatal(err)
	}
	if string(dec) != string(raw) {
		t.Fatalf("decoded bytes %X should be %X", dec, raw)
	}

	if _, err := DecodeFromString("04ABCD"); err == nil {
		t.Fatal("strings without prefix should be rejected")
	}
}

func TestStoreErrAccessors(t *testing.T) {
	err := NewStoreErr("Chain", SkippedIndex, "0X04AA")

	if err.Type() != SkippedIndex || err.Key() != "0X04AA" {
		t.Fatalf("unexpected accessors %v %s", err.Type(), err.Key())
	}
	if got := StoreErrType(42).String(); got != "StoreErrType(42)" {
		t.Fatalf("unexpected name %s", got)
	}
}
