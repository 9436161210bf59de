package valueobject

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// Address - адрес аккаунта в нижнем регистре (0x + 40 hex).
type Address string

// NewAddress нормализует адрес. Адрес в смешанном регистре обязан иметь корректную контрольную сумму EIP-55.
func NewAddress(raw string) (Address, error) {
	s := strings.TrimSpace(raw)
	if len(s) != 42 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный адрес")
	}
	body := s[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный адрес")
	}

	lower := strings.ToLower(body)
	if body != lower && body != strings.ToUpper(body) {
		if checksum(lower) != body {
			return "", apperror.New(apperror.ErrCodeValidation, "неверная контрольная сумма адреса")
		}
	}
	return Address("0x" + lower), nil
}

func MustAddress(raw string) Address {
	a, err := NewAddress(raw)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return string(a)
}

func (a Address) IsZero() bool {
	return a == ""
}

// Checksum возвращает адрес в формате EIP-55.
func (a Address) Checksum() string {
	if len(a) != 42 {
		return string(a)
	}
	return "0x" + checksum(string(a)[2:])
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := NewAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a), nil
}

func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := hex.EncodeToString(h.Sum(nil))

	out := []byte(lowerHex)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
