// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rfb

import (
	"crypto/aes"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"

	vnc "github.com/mitchellh/go-vnc"
)

// ARDAuth is the Apple Remote Desktop security type (30), as offered by
// macOS screen sharing.
//
// The credentials are encrypted with AES-128 keyed by the MD5 of a
// Diffie-Hellman shared secret.
type ARDAuth struct {
	Username string
	Password string

	// Rand is the source of the private key and padding. Defaults to
	// crypto/rand.
	Rand io.Reader
}

// SecurityType implements vnc.ClientAuth.
func (*ARDAuth) SecurityType() uint8 {
	return 30
}

// Handshake implements vnc.ClientAuth.
func (a *ARDAuth) Handshake(c net.Conn) error {
	rnd := a.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	var hdr [4]byte
	if _, err := io.ReadFull(c, hdr[:]); err != nil {
		return fmt.Errorf("rfb: ard: %w", err)
	}
	gen := binary.BigEndian.Uint16(hdr[0:])
	keyLen := int(binary.BigEndian.Uint16(hdr[2:]))
	if keyLen == 0 {
		return errors.New("rfb: ard: empty key")
	}
	buf := make([]byte, 2*keyLen)
	if _, err := io.ReadFull(c, buf); err != nil {
		return fmt.Errorf("rfb: ard: %w", err)
	}
	prime := new(big.Int).SetBytes(buf[:keyLen])
	serverPub := new(big.Int).SetBytes(buf[keyLen:])
	if prime.Cmp(big.NewInt(2)) <= 0 {
		return errors.New("rfb: ard: invalid prime")
	}

	priv, err := rand.Int(rnd, prime)
	if err != nil {
		return fmt.Errorf("rfb: ard: %w", err)
	}
	pub := new(big.Int).Exp(big.NewInt(int64(gen)), priv, prime)
	secret := new(big.Int).Exp(serverPub, priv, prime)

	creds, err := ardCredentials(a.Username, a.Password, rnd)
	if err != nil {
		return err
	}
	ciphertext, err := ardEncrypt(padBig(secret, keyLen), creds)
	if err != nil {
		return err
	}
	msg := append(ciphertext, padBig(pub, keyLen)...)
	if _, err := c.Write(msg); err != nil {
		return fmt.Errorf("rfb: ard: %w", err)
	}
	return nil
}

// ardCredentials lays out the 128 bytes plaintext: two 64 bytes fields
// holding the null terminated username and password, padded with random
// bytes.
func ardCredentials(user, pass string, rnd io.Reader) ([]byte, error) {
	out := make([]byte, 128)
	if _, err := io.ReadFull(rnd, out); err != nil {
		return nil, fmt.Errorf("rfb: ard: %w", err)
	}
	for i, s := range []string{user, pass} {
		if len(s) > 63 {
			return nil, fmt.Errorf("rfb: ard: credential longer than 63 bytes")
		}
		f := out[i*64 : (i+1)*64]
		copy(f, s)
		f[len(s)] = 0
	}
	return out, nil
}

// ardEncrypt encrypts plaintext with AES-128 in ECB mode, keyed by the MD5
// of the shared secret.
func ardEncrypt(secret, plaintext []byte) ([]byte, error) {
	key := md5.Sum(secret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], plaintext[i:i+aes.BlockSize])
	}
	return out, nil
}

func padBig(v *big.Int, n int) []byte {
	return v.FillBytes(make([]byte, n))
}

var _ vnc.ClientAuth = &ARDAuth{}
