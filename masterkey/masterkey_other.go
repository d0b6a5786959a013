//go:build !darwin && !windows && !linux

package masterkey

import (
	"context"
	"fmt"
)

func forOS() Provider { return &unsupportedProvider{} }

type unsupportedProvider struct{}

func (p *unsupportedProvider) Key(ctx context.Context, browser, profileDir string) (Key, error) {
	return Key{}, fmt.Errorf("masterkey: no master-key provider for this platform")
}
