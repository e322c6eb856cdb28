package hash

import "testing"

func TestHashAndCheck(t *testing.T) {
	h, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if h == "s3cret" {
		t.Fatal("hash must not equal the plaintext password")
	}
	if !CheckPasswordHash("s3cret", h) {
		t.Error("CheckPasswordHash rejected the correct password")
	}
	if CheckPasswordHash("wrong", h) {
		t.Error("CheckPasswordHash accepted a wrong password")
	}
}
