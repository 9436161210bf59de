package valueobject

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"math/big"

	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// Amount - сумма в wei. Значения контракта не помещаются в int64, поэтому храним big.Int.
type Amount struct {
	v big.Int
}

func NewAmount(raw string) (Amount, error) {
	var a Amount
	if _, ok := a.v.SetString(raw, 10); !ok {
		return Amount{}, apperror.New(apperror.ErrCodeValidation, "некорректная сумма")
	}
	if a.v.Sign() < 0 {
		return Amount{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return a, nil
}

func AmountFromInt64(v int64) Amount {
	var a Amount
	a.v.SetInt64(v)
	return a
}

func (a Amount) String() string {
	return a.v.String()
}

func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(&a.v)
}

func (a Amount) IsZero() bool {
	return a.v.Sign() == 0
}

func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.v.Add(&a.v, &b.v)
	return out
}

func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// MarshalJSON отдаёт сумму строкой, чтобы не терять точность в JS-клиентах.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.String() + `"`), nil
}

// UnmarshalJSON принимает и строку, и число.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*a = Amount{}
		return nil
	}
	parsed, err := NewAmount(string(raw))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value хранит сумму в NUMERIC(78,0).
func (a Amount) Value() (driver.Value, error) {
	return a.v.String(), nil
}

func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case []byte:
		return a.setString(string(v))
	case string:
		return a.setString(v)
	case int64:
		*a = AmountFromInt64(v)
		return nil
	default:
		return fmt.Errorf("amount: неподдерживаемый тип %T", src)
	}
}

func (a *Amount) setString(s string) error {
	parsed, err := NewAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
