package auth

import (
	"errors"
	"strings"
	"testing"
)

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_Salted(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")
	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestHash_Length(t *testing.T) {
	ps := newTestPasswordService()

	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"minimum account password", 8, false},
		{"exactly 72 bytes", 72, false},
		{"73 bytes", 73, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ps.Hash(strings.Repeat("a", tt.length))
			if (err != nil) != tt.wantErr {
				t.Errorf("Hash(len %d) error = %v, wantErr %v", tt.length, err, tt.wantErr)
			}
		})
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name      string
		hash      string
		password  string
		wantErr   bool
		isInvalid bool
	}{
		{"correct password", hash, "correct-horse", false, false},
		{"wrong password", hash, "battery-staple", true, true},
		{"empty password", hash, "", true, true},
		{"github account without hash", "", "anything", true, true},
		{"garbage hash", "not-a-hash", "anything", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.isInvalid && !errors.Is(err, ErrInvalidPassword) {
				t.Errorf("Verify() error = %v, want ErrInvalidPassword", err)
			}
		})
	}
}
