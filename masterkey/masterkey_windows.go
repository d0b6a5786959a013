//go:build windows

package masterkey

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"
)

var (
	crypt32         = syscall.NewLazyDLL("crypt32.dll")
	kernel32        = syscall.NewLazyDLL("kernel32.dll")
	procDecryptData = crypt32.NewProc("CryptUnprotectData")
	procLocalFree   = kernel32.NewProc("LocalFree")
)

type dataBlob struct {
	cbData uint32
	pbData *byte
}

const dpapiPrefix = "DPAPI"

func forOS() Provider { return cached(&windowsProvider{}) }

type windowsProvider struct{}

type localState struct {
	OSCrypt struct {
		EncryptedKey string `json:"encrypted_key"`
	} `json:"os_crypt"`
}

// Key reads <profileDir>/../Local State, base64-decodes os_crypt.encrypted_key,
// strips its "DPAPI" prefix, and unprotects it via CryptUnprotectData.
// Grounded directly on bbmumford-ClaudeBar's cookies_windows.go dataBlob /
// procDecryptData pattern. Any failure surfaces as KeyUnavailable-flavored
// error text; callers degrade per-cookie rather than treat this as fatal.
func (p *windowsProvider) Key(ctx context.Context, browser, profileDir string) (Key, error) {
	localStatePath := filepath.Join(profileDir, "..", "Local State")
	raw, err := os.ReadFile(localStatePath)
	if err != nil {
		return Key{}, fmt.Errorf("masterkey: reading %s: %w", localStatePath, err)
	}

	var ls localState
	if err := json.Unmarshal(raw, &ls); err != nil {
		return Key{}, fmt.Errorf("masterkey: parsing Local State: %w", err)
	}
	if ls.OSCrypt.EncryptedKey == "" {
		return Key{}, errors.New("masterkey: Local State has no os_crypt.encrypted_key")
	}

	encoded, err := base64.StdEncoding.DecodeString(ls.OSCrypt.EncryptedKey)
	if err != nil {
		return Key{}, fmt.Errorf("masterkey: decoding encrypted_key: %w", err)
	}
	if len(encoded) <= len(dpapiPrefix) || string(encoded[:len(dpapiPrefix)]) != dpapiPrefix {
		return Key{}, errors.New("masterkey: encrypted_key missing DPAPI prefix")
	}
	encoded = encoded[len(dpapiPrefix):]

	plain, err := unprotectData(encoded)
	if err != nil {
		return Key{}, fmt.Errorf("masterkey: DPAPI unprotect: %w", err)
	}
	return Key{Bytes: plain, Scheme: GCM256}, nil
}

func unprotectData(encrypted []byte) ([]byte, error) {
	if len(encrypted) == 0 {
		return nil, errors.New("empty data")
	}
	if err := procDecryptData.Find(); err != nil {
		return nil, fmt.Errorf("CryptUnprotectData unavailable: %w", err)
	}

	var in dataBlob
	in.cbData = uint32(len(encrypted))
	in.pbData = &encrypted[0]

	var out dataBlob
	ret, _, callErr := procDecryptData.Call(
		uintptr(unsafe.Pointer(&in)),
		0, 0, 0, 0, 0,
		uintptr(unsafe.Pointer(&out)),
	)
	if ret == 0 {
		return nil, fmt.Errorf("CryptUnprotectData failed: %w", callErr)
	}
	defer procLocalFree.Call(uintptr(unsafe.Pointer(out.pbData)))

	plain := make([]byte, out.cbData)
	copy(plain, unsafe.Slice(out.pbData, out.cbData))
	return plain, nil
}
