package xrpl

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

// Alphabet is the XRPL base58 dictionary.
const Alphabet = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

const (
	accountIDPrefix = 0x00
	accountIDLen    = 20
	checksumLen     = 4
)

var xrplAlphabet = base58.NewAlphabet(Alphabet)

// Address validation errors.
var (
	ErrInvalidAddress = errors.New("invalid classic address")
	ErrBadChecksum    = errors.New("address checksum mismatch")
)

// DecodeAddress returns the 20 byte account ID of a classic r-address.
func DecodeAddress(addr string) ([]byte, error) {
	if len(addr) < 25 || len(addr) > 35 || addr[0] != 'r' {
		return nil, ErrInvalidAddress
	}
	raw, err := base58.DecodeAlphabet(addr, xrplAlphabet)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	if len(raw) != 1+accountIDLen+checksumLen || raw[0] != accountIDPrefix {
		return nil, ErrInvalidAddress
	}
	payload := raw[:1+accountIDLen]
	if !bytes.Equal(checksum(payload), raw[1+accountIDLen:]) {
		return nil, ErrBadChecksum
	}
	return payload[1:], nil
}

// ValidAddress reports whether addr is a well-formed classic address.
func ValidAddress(addr string) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}

// EncodeAddress encodes a 20 byte account ID as a classic address.
func EncodeAddress(accountID []byte) (string, error) {
	if len(accountID) != accountIDLen {
		return "", ErrInvalidAddress
	}
	payload := append([]byte{accountIDPrefix}, accountID...)
	return base58.EncodeAlphabet(append(payload, checksum(payload)...), xrplAlphabet), nil
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}
