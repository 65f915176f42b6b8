// Package currency decodes XRPL currency codes into display names.
package currency

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of decoded codes a Codec keeps.
const DefaultCacheSize = 1024

// SecondsPerYear is the demurrage rate base.
const SecondsPerYear = 31536000

const (
	hexCodeLen    = 40 // 160-bit currency code
	typeDemurrage = 0x01
	typeNFTMeta   = 0x02
	nftHeaderLen  = 8
	fallbackLen   = 6
)

var alphanumeric = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Codec decodes currency codes and memoises results in a bounded cache.
// Safe for concurrent use.
type Codec struct {
	cache *lru.Cache[string, string]
}

// NewCodec creates a codec with a cache of the given size.
// A non-positive size uses DefaultCacheSize.
func NewCodec(size int) *Codec {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Codec{cache: cache}
}

// Decode returns the display name of a currency code. It never fails:
// undecodable input yields its first 6 characters.
func (c *Codec) Decode(code string) string {
	if c == nil || c.cache == nil {
		return decode(code)
	}
	if name, ok := c.cache.Get(code); ok {
		return name
	}
	name := decode(code)
	c.cache.Add(code, name)
	return name
}

// Len returns the number of cached entries.
func (c *Codec) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

var defaultCodec = NewCodec(DefaultCacheSize)

// Decode decodes a currency code with the package default codec.
func Decode(code string) string {
	return defaultCodec.Decode(code)
}

func decode(code string) string {
	if code == "XRP" {
		return "XRP"
	}
	if len(code) == 3 {
		return code
	}
	if len(code) != hexCodeLen {
		return fallback(code)
	}

	raw, err := hex.DecodeString(code)
	if err != nil {
		return fallback(code)
	}

	var (
		name string
		ok   bool
	)
	switch raw[0] {
	case typeDemurrage:
		name, ok = decodeDemurrage(raw)
	case typeNFTMeta:
		name, ok = decodeNFTMetadata(raw)
	default:
		name, ok = decodeASCII(raw)
	}
	if !ok {
		return fallback(code)
	}
	return name
}

// decodeDemurrage decodes the legacy interest-bearing layout:
// [0] type, [1:4] ASCII code, [4:8] interest start (uint32 BE),
// [8:16] interest period in seconds (float64 BE), [16:20] reserved.
func decodeDemurrage(raw []byte) (string, bool) {
	base := string(raw[1:4])
	if !alphanumeric.MatchString(base) {
		return "", false
	}
	period := math.Float64frombits(binary.BigEndian.Uint64(raw[8:16]))
	if period == 0 || math.IsNaN(period) || math.IsInf(period, 0) {
		return "", false
	}
	rate := math.Exp(SecondsPerYear/period)*100 - 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return "", false
	}
	return base + " (" + strconv.FormatFloat(rate, 'f', 2, 64) + "% pa)", true
}

// decodeNFTMetadata decodes the UTF-8 payload following the 8-byte header.
func decodeNFTMetadata(raw []byte) (string, bool) {
	payload := bytes.TrimRight(raw[nftHeaderLen:], "\x00")
	if len(payload) == 0 || !utf8.Valid(payload) {
		return "", false
	}
	return strings.TrimSpace(string(payload)), true
}

// decodeASCII decodes a non-standard code written as padded ASCII.
func decodeASCII(raw []byte) (string, bool) {
	trimmed := bytes.Trim(raw, "\x00")
	if len(trimmed) == 0 {
		return "", false
	}
	s := string(trimmed)
	if !alphanumeric.MatchString(s) {
		return "", false
	}
	return s, true
}

func fallback(code string) string {
	if len(code) <= fallbackLen {
		return code
	}
	return code[:fallbackLen]
}

// IsHexCode reports whether code is a 160-bit hex currency code.
func IsHexCode(code string) bool {
	if len(code) != hexCodeLen {
		return false
	}
	_, err := hex.DecodeString(code)
	return err == nil
}
