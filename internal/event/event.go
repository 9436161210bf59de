package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// Type - тег события контракта.
type Type string

const (
	TypeTaskCreated     Type = "TaskCreated"
	TypeWorkSubmitted   Type = "WorkSubmitted"
	TypeWinnerSelected  Type = "WinnerSelected"
	TypeTaskCompleted   Type = "TaskCompleted"
	TypeTaskRefunded    Type = "TaskRefunded"
	TypeTaskCancelled   Type = "TaskCancelled"
	TypeDisputeStarted  Type = "DisputeStarted"
	TypeVoteSubmitted   Type = "VoteSubmitted"
	TypeAgentRegistered Type = "AgentRegistered"
)

// Старое имя события в DisputeResolver.
const tagDisputeCreated = "DisputeCreated"

var allTypes = []Type{
	TypeTaskCreated,
	TypeWorkSubmitted,
	TypeWinnerSelected,
	TypeTaskCompleted,
	TypeTaskRefunded,
	TypeTaskCancelled,
	TypeDisputeStarted,
	TypeVoteSubmitted,
	TypeAgentRegistered,
}

// AllTypes возвращает все известные типы событий.
func AllTypes() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// ParseType нормализует тег события; неизвестный тег - UnroutableEvent.
func ParseType(tag string) (Type, error) {
	if tag == tagDisputeCreated {
		return TypeDisputeStarted, nil
	}
	for _, t := range allTypes {
		if string(t) == tag {
			return t, nil
		}
	}
	return "", apperror.Unroutable(tag)
}

// RawEvent - декодированное событие в том виде, в каком его отдаёт источник.
type RawEvent struct {
	Type            string          `json:"type"`
	ChainID         int64           `json:"chainId"`
	Args            json.RawMessage `json:"args"`
	TransactionHash string          `json:"transactionHash"`
	LogIndex        int             `json:"logIndex"`
}

// Envelope - событие с типизированной нагрузкой.
type Envelope struct {
	Type            Type
	ChainID         int64
	TransactionHash string
	LogIndex        int
	Payload         Payload
}

// Keys - ключи сериализации в порядке захвата блокировок.
func (e Envelope) Keys() []string {
	return e.Payload.keys(e.ChainID)
}

// PartitionKey - ключ, по которому очередь упорядочивает события одной сущности.
// Для событий задачи это ключ задачи, поэтому спор по задаче не обгоняет её создание.
func (e Envelope) PartitionKey() string {
	keys := e.Keys()
	return keys[len(keys)-1]
}

func (e Envelope) Ref() string {
	return fmt.Sprintf("%s@%s#%d", e.Type, e.TransactionHash, e.LogIndex)
}

// Payload - закрытое множество нагрузок событий.
type Payload interface {
	EventType() Type
	keys(chainID int64) []string
	validate() error
}

func TaskKey(chainID int64, taskID Uint) string {
	return entity.TaskRef(chainID, string(taskID))
}

func DisputeKey(chainID int64, disputeID Uint) string {
	return entity.DisputeRef(chainID, string(disputeID))
}

func AgentKey(agent valueobject.Address) string {
	return "agent:" + agent.String()
}

// Decode проверяет тег и разбирает нагрузку.
func Decode(raw RawEvent) (Envelope, error) {
	t, err := ParseType(raw.Type)
	if err != nil {
		return Envelope{}, err
	}
	if strings.TrimSpace(raw.TransactionHash) == "" {
		return Envelope{}, apperror.SchemaViolation("у события нет transactionHash", nil)
	}

	p := newPayload(t)
	if len(bytes.TrimSpace(raw.Args)) == 0 {
		return Envelope{}, apperror.SchemaViolation(fmt.Sprintf("у события %s нет args", t), nil)
	}
	if err := json.Unmarshal(raw.Args, p); err != nil {
		return Envelope{}, apperror.SchemaViolation(fmt.Sprintf("некорректные args события %s", t), err)
	}
	if err := p.validate(); err != nil {
		return Envelope{}, apperror.SchemaViolation(fmt.Sprintf("некорректные args события %s", t), err)
	}

	return Envelope{
		Type:            t,
		ChainID:         raw.ChainID,
		TransactionHash: strings.ToLower(raw.TransactionHash),
		LogIndex:        raw.LogIndex,
		Payload:         p,
	}, nil
}

func newPayload(t Type) Payload {
	switch t {
	case TypeTaskCreated:
		return &TaskCreated{}
	case TypeWorkSubmitted:
		return &WorkSubmitted{}
	case TypeWinnerSelected:
		return &WinnerSelected{}
	case TypeTaskCompleted:
		return &TaskCompleted{}
	case TypeTaskRefunded:
		return &TaskRefunded{}
	case TypeTaskCancelled:
		return &TaskCancelled{}
	case TypeDisputeStarted:
		return &DisputeStarted{}
	case TypeVoteSubmitted:
		return &VoteSubmitted{}
	case TypeAgentRegistered:
		return &AgentRegistered{}
	}
	panic(fmt.Sprintf("event: нет нагрузки для типа %s", t))
}

// Uint - беззнаковое 256-битное число контракта в десятичной записи.
type Uint string

func (u *Uint) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw, base = raw[2:], 16
	}
	n, ok := new(big.Int).SetString(raw, base)
	if !ok || n.Sign() < 0 {
		return fmt.Errorf("некорректное целое %s", string(data))
	}
	*u = Uint(n.String())
	return nil
}

func (u Uint) IsZero() bool {
	return u == ""
}

// UnixTime - время в секундах эпохи, как его отдаёт контракт.
type UnixTime struct {
	time.Time
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	var v Uint
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	secs, ok := new(big.Int).SetString(string(v), 10)
	if !ok || !secs.IsInt64() {
		return fmt.Errorf("некорректное время %s", string(data))
	}
	if secs.Int64() == 0 {
		t.Time = time.Time{}
		return nil
	}
	t.Time = time.Unix(secs.Int64(), 0).UTC()
	return nil
}

func (t UnixTime) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
