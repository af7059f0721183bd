package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const secretKeyBytesLen = 32

func generateSecretKey() (string, error) {
	b := make([]byte, secretKeyBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("error while generating secret key: %w", err)
	}

	return hex.EncodeToString(b), nil
}
