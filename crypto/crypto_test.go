package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func testEncryptor(t *testing.T) *AESEncryptor {
	t.Helper()
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor() error = %v", err)
	}
	return enc
}

func TestNewAESEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{"empty key", "", "encryption key is empty"},
		{"invalid base64", "not-valid-base64!@#$", "base64 decode failed"},
		{"key too short", base64.StdEncoding.EncodeToString(make([]byte, 16)), "must be 32 bytes"},
		{"key too long", base64.StdEncoding.EncodeToString(make([]byte, 64)), "must be 32 bytes"},
		{"valid 32-byte key", base64.StdEncoding.EncodeToString(make([]byte, 32)), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewAESEncryptor(tt.key)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("NewAESEncryptor() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewAESEncryptor() error = %v", err)
			}
			if enc == nil {
				t.Fatal("NewAESEncryptor() returned nil encryptor")
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := testEncryptor(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"short string", "hello"},
		{"oauth token", "oauth:u7x9qlk2mzrshortlivedchattoken"},
		{"long string", strings.Repeat("a", 1000)},
		{"json record", `{"created":"2024-01-02T15:04:05Z","calories":270,"eaten":["Toast"]}`},
		{"special characters", "!@#$%^&*()_+-={}[]|\\:;\"'<>,.?/~`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt([]byte(tt.plaintext))
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if bytes.Equal(ciphertext, []byte(tt.plaintext)) {
				t.Error("Encrypt() returned plaintext unchanged")
			}

			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if string(decrypted) != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	enc := testEncryptor(t)
	plaintext := []byte("same input twice")

	c1, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	c2, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(c1, c2) {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}

	for i, c := range [][]byte{c1, c2} {
		got, err := enc.Decrypt(c)
		if err != nil {
			t.Fatalf("Decrypt(%d) error = %v", i, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("Decrypt(%d) = %q, want %q", i, got, plaintext)
		}
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	enc := testEncryptor(t)
	if _, err := enc.Encrypt(nil); err == nil || !strings.Contains(err.Error(), "plaintext is empty") {
		t.Errorf("Encrypt(nil) error = %v, want empty-plaintext error", err)
	}
}

func TestDecryptRejectsBadInput(t *testing.T) {
	enc := testEncryptor(t)

	tests := []struct {
		name       string
		ciphertext []byte
		wantErr    string
	}{
		{"empty", nil, "ciphertext is empty"},
		{"shorter than nonce", []byte{1, 2, 3}, "ciphertext too short"},
		{"garbage", make([]byte, 50), "authentication or integrity check failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decrypt(tt.ciphertext)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Decrypt() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	enc := testEncryptor(t)

	ciphertext, err := enc.Encrypt([]byte("sensitive data"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	ciphertext[20] ^= 0x01

	if _, err := enc.Decrypt(ciphertext); err == nil {
		t.Error("Decrypt() accepted a tampered ciphertext")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	enc1 := testEncryptor(t)
	enc2 := testEncryptor(t)

	ciphertext, err := enc1.Encrypt([]byte("secret message"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := enc2.Decrypt(ciphertext); err == nil {
		t.Error("Decrypt() succeeded with the wrong key")
	}
}

func TestStringWrappers(t *testing.T) {
	enc := testEncryptor(t)

	t.Run("empty passthrough", func(t *testing.T) {
		if got, err := EncryptString(enc, ""); err != nil || got != "" {
			t.Errorf("EncryptString(\"\") = %q, %v", got, err)
		}
		if got, err := DecryptString(enc, ""); err != nil || got != "" {
			t.Errorf("DecryptString(\"\") = %q, %v", got, err)
		}
	})

	t.Run("round trip is base64", func(t *testing.T) {
		plaintext := "test-access-token-12345"
		encrypted, err := EncryptString(enc, plaintext)
		if err != nil {
			t.Fatalf("EncryptString() error = %v", err)
		}
		if _, err := base64.StdEncoding.DecodeString(encrypted); err != nil {
			t.Errorf("EncryptString() result is not valid base64: %v", err)
		}
		decrypted, err := DecryptString(enc, encrypted)
		if err != nil {
			t.Fatalf("DecryptString() error = %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("DecryptString() = %q, want %q", decrypted, plaintext)
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		if _, err := DecryptString(enc, "not-valid-base64!@#"); err == nil || !strings.Contains(err.Error(), "base64 decode failed") {
			t.Errorf("DecryptString() error = %v, want base64 error", err)
		}
	})
}

func TestCiphertextOverhead(t *testing.T) {
	enc := testEncryptor(t)

	ciphertext, err := enc.Encrypt([]byte("test"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	// 12-byte nonce plus 16-byte GCM tag
	if got := len(ciphertext) - len("test"); got != 28 {
		t.Errorf("overhead = %d bytes, want 28", got)
	}
}
