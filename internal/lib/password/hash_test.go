package password

import (
	"errors"
	"testing"
)

func TestGetHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "regular password",
			password: "password123",
			wantErr:  false,
		},
		{
			name:     "password with special chars",
			password: "p@ssw0rd!@#$%^&*()",
			wantErr:  false,
		},
		{
			name:     "password with spaces",
			password: "  padded secret  ",
			wantErr:  false,
		},
		{
			name:     "too long for bcrypt",
			password: string(make([]byte, 100)),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotHash, err := GetHash(tt.password)

			if (err != nil) != tt.wantErr {
				t.Errorf("GetHash() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && gotHash == "" {
				t.Error("GetHash() returned empty hash")
			}

			if !tt.wantErr {
				if err = CompareHash(gotHash, tt.password); err != nil {
					t.Errorf("Generated hash doesn't work with original password: %v", err)
				}
			}
		})
	}
}

func TestCompareHash(t *testing.T) {
	correctHash, err := GetHash("correct_password")
	if err != nil {
		t.Fatalf("Failed to create test hash: %v", err)
	}

	tests := []struct {
		name         string
		hash         string
		password     string
		wantMismatch bool
		wantErr      bool
	}{
		{
			name:     "matching password",
			hash:     correctHash,
			password: "correct_password",
		},
		{
			name:         "wrong password",
			hash:         correctHash,
			password:     "wrong_password",
			wantMismatch: true,
			wantErr:      true,
		},
		{
			name:         "empty password",
			hash:         correctHash,
			password:     "",
			wantMismatch: true,
			wantErr:      true,
		},
		{
			name:     "broken hash",
			hash:     "not-a-bcrypt-hash",
			password: "correct_password",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CompareHash(tt.hash, tt.password)

			if (err != nil) != tt.wantErr {
				t.Fatalf("CompareHash() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrMismatch); got != tt.wantMismatch {
				t.Errorf("errors.Is(err, ErrMismatch) = %v, want %v", got, tt.wantMismatch)
			}
		})
	}
}

func TestGetHash_SamePasswordDifferentSalt(t *testing.T) {
	hash1, err := GetHash("password1")
	if err != nil {
		t.Fatalf("GetHash failed: %v", err)
	}

	hash2, err := GetHash("password1")
	if err != nil {
		t.Fatalf("GetHash failed: %v", err)
	}

	if hash1 == hash2 {
		t.Error("Same password produced identical hashes")
	}
}
