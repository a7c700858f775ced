package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("decrypted key = %s, want %s", got, testKeyHex)
	}
}

func TestDecryptKeyWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := DecryptKey(blob, "nope"); err == nil {
		t.Error("decrypt with wrong password should fail")
	}
}

func TestLoadKeyRawTakesPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("LoadKey = %s, want 0x prefix stripped %s", got, testKeyHex)
	}
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	if err != nil {
		t.Fatalf("load encrypted: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("LoadKey = %s, want %s", got, testKeyHex)
	}
}

func TestLoadKeyEmptyConfig(t *testing.T) {
	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Error("LoadKey with no source should fail")
	}
}
