package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/jsonx"
)

// SchemaVersion is written in every snapshot file.
const SchemaVersion = 1

var errUnsupportedVersion = errors.New("unsupported snapshot version")

// decimal is an unsigned integer of any size stored as a base-10 JSON string.
// Decoding also accepts bare JSON numbers and the legacy {"$bigint": "..."} wrapper.
type decimal struct {
	v *big.Int
}

func newDecimal(v *big.Int) decimal {
	return decimal{v: v}
}

func decimalFromUint(v uint64) decimal {
	return decimal{v: new(big.Int).SetUint64(v)}
}

func (d decimal) MarshalJSON() ([]byte, error) {
	if d.v == nil {
		return []byte(`"0"`), nil
	}
	return []byte(strconv.Quote(d.v.String())), nil
}

func (d *decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty number")
	}

	var text string
	switch data[0] {
	case '"':
		if err := decodeJSON(data, &text); err != nil {
			return err
		}
	case '{':
		var tagged struct {
			BigInt *string `json:"$bigint"`
		}
		if err := decodeJSON(data, &tagged); err != nil {
			return err
		}
		if tagged.BigInt == nil {
			return fmt.Errorf("object without $bigint: %s", excerpt(string(data)))
		}
		text = *tagged.BigInt
	default:
		text = string(data)
	}

	v, ok := new(big.Int).SetString(text, 10)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid unsigned decimal %q", excerpt(text))
	}
	d.v = v
	return nil
}

func (d decimal) uint64() (uint64, error) {
	if d.v == nil {
		return 0, nil
	}
	if !d.v.IsUint64() {
		return 0, fmt.Errorf("block number %s out of range", d.v)
	}
	return d.v.Uint64(), nil
}

type fileEvent struct {
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Value       decimal        `json:"value"`
	BlockNumber decimal        `json:"blockNumber"`
}

type fileSnapshot struct {
	Version  int         `json:"version"`
	MaxBlock decimal     `json:"maxBlock"`
	Events   []fileEvent `json:"events"`
}

func encodeSnapshot(snapshot *Snapshot) ([]byte, error) {
	doc := fileSnapshot{
		Version:  SchemaVersion,
		MaxBlock: decimalFromUint(snapshot.MaxBlock),
		Events:   make([]fileEvent, 0, len(snapshot.Events)),
	}
	for _, event := range snapshot.Events {
		doc.Events = append(doc.Events, fileEvent{
			From:        event.From,
			To:          event.To,
			Value:       newDecimal(event.Value),
			BlockNumber: decimalFromUint(event.BlockNumber),
		})
	}
	return jsonx.Marshal(doc)
}

// decodeSnapshot reads a versioned document, or a legacy bare event array whose
// upper bound is only known from the file name.
func decodeSnapshot(data []byte, nameBlock uint64) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty snapshot file")
	}

	var (
		events   []fileEvent
		maxBlock = nameBlock
	)
	switch trimmed[0] {
	case '[':
		if err := decodeJSON(trimmed, &events); err != nil {
			return nil, err
		}
	case '{':
		var doc fileSnapshot
		if err := decodeJSON(trimmed, &doc); err != nil {
			return nil, err
		}
		if doc.Version != SchemaVersion {
			return nil, fmt.Errorf("%w: %d", errUnsupportedVersion, doc.Version)
		}
		block, err := doc.MaxBlock.uint64()
		if err != nil {
			return nil, err
		}
		maxBlock = block
		events = doc.Events
	default:
		return nil, fmt.Errorf("unexpected snapshot document starting with %q", trimmed[0])
	}

	snapshot := &Snapshot{
		Events:   make([]types.TransferEvent, 0, len(events)),
		MaxBlock: maxBlock,
	}
	for _, event := range events {
		block, err := event.BlockNumber.uint64()
		if err != nil {
			return nil, err
		}
		value := event.Value.v
		if value == nil {
			value = new(big.Int)
		}
		snapshot.Events = append(snapshot.Events, types.TransferEvent{
			From:        event.From,
			To:          event.To,
			Value:       value,
			BlockNumber: block,
		})
	}
	return snapshot, nil
}

// maxExcerpt bounds how much of a snapshot may appear in an error message.
const maxExcerpt = 64

// decodeJSON decodes data into v. Errors carry the byte offset, never the input.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w at offset %d", err, syntaxErr.Offset)
		}
		return err
	}
	return nil
}

func excerpt(s string) string {
	if len(s) <= maxExcerpt {
		return s
	}
	return s[:maxExcerpt] + "..."
}
