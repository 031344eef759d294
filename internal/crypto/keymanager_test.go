package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe51296170827936ea5cce4b76994b0f"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKeyHex, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "right")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptKeyValidation(t *testing.T) {
	_, err := EncryptKey(testKeyHex, "")
	assert.Error(t, err)

	_, err = EncryptKey("not-hex", "pw")
	assert.Error(t, err)

	_, err = EncryptKey("abcd", "pw") // too short
	assert.Error(t, err)
}

func TestLoadKeyResolution(t *testing.T) {
	// Raw key wins.
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	// Encrypted file fallback.
	blob, err := EncryptKey(testKeyHex, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err = LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	// Nothing configured.
	_, err = LoadKey(KeyConfig{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no private key source"))
}

func TestLoadECDSA(t *testing.T) {
	key, err := LoadECDSA(KeyConfig{RawPrivateKey: testKeyHex})
	require.NoError(t, err)
	assert.NotNil(t, key)

	_, err = LoadECDSA(KeyConfig{RawPrivateKey: "zz"})
	assert.Error(t, err)
}
