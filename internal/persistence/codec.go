package persistence

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/pkg/api"
)

func init() {
	// Containers that commonly appear as scope values. Model types must be
	// registered by their owners.
	gob.Register(map[string]any{})
	gob.Register(api.AttributeMap{})
	gob.Register([]any{})
	gob.Register(time.Time{})
}

// EncodeValue serializes arbitrary Go values using encoding/gob.
// Callers must ensure that values are gob-encodable.
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	// Encode as interface{} so the payload decodes into interface{}.
	var iv = v
	if err := enc.Encode(&iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue decodes a payload written by EncodeValue. Payloads encoded
// as a concrete type are accepted when T is that type.
func DecodeValue[T any](data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, nil
	}

	if v, ok, err := tryDecodeAsAny[T](data); err == nil && ok {
		return v, nil
	} else if err != nil && !mustRetryAsConcrete(err) {
		return zero, err
	}

	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return zero, err
	}
	return v, nil
}

func tryDecodeAsAny[T any](data []byte) (T, bool, error) {
	var zero T
	var iv any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&iv); err != nil {
		return zero, false, err
	}
	if v, ok := iv.(T); ok {
		return v, true, nil
	}
	if isInterfaceType[T]() && iv == nil {
		return zero, true, nil
	}
	return zero, false, fmt.Errorf("gob: decoded interface payload of type %T not assignable to target", iv)
}

func mustRetryAsConcrete(err error) bool {
	// gob reports an interface-vs-concrete mismatch with this message.
	s := err.Error()
	return strings.Contains(s, "can only be decoded from remote interface") &&
		strings.Contains(s, "received concrete type")
}

func isInterfaceType[T any]() bool {
	return reflect.TypeOf((*T)(nil)).Elem().Kind() == reflect.Interface
}

// EncodeExecution serializes an execution snapshot including its scope
// values.
func EncodeExecution(exec *engine.ExecutionSnapshot) ([]byte, error) {
	if exec == nil {
		return nil, errors.New("nil execution snapshot")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(exec); err != nil {
		return nil, fmt.Errorf("encode execution %s: %w", exec.Key, err)
	}
	return buf.Bytes(), nil
}

// DecodeExecution is the inverse of EncodeExecution.
func DecodeExecution(data []byte) (*engine.ExecutionSnapshot, error) {
	if len(data) == 0 {
		return nil, ErrSnapshotNotFound
	}
	var exec engine.ExecutionSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&exec); err != nil {
		return nil, fmt.Errorf("decode execution: %w", err)
	}
	return &exec, nil
}

// snapshotPayload is the self-contained encoding used by key-value
// backends.
type snapshotPayload struct {
	ExecutionKey string
	Seq          int
	FlowID       string
	StateID      string
	Status       string
	Outcome      string
	CreatedAt    time.Time
	Execution    []byte
}

// EncodeSnapshot gob-encodes s with its execution.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	exec, err := EncodeExecution(s.Execution)
	if err != nil {
		return nil, err
	}
	payload := snapshotPayload{
		ExecutionKey: s.ExecutionKey,
		Seq:          s.Seq,
		FlowID:       s.FlowID,
		StateID:      s.StateID,
		Status:       s.Status,
		Outcome:      s.Outcome,
		CreatedAt:    s.CreatedAt,
		Execution:    exec,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot decodes a payload written by EncodeSnapshot. An empty
// payload is ErrSnapshotNotFound.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrSnapshotNotFound
	}
	var payload snapshotPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}
	exec, err := DecodeExecution(payload.Execution)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ExecutionKey: payload.ExecutionKey,
		Seq:          payload.Seq,
		FlowID:       payload.FlowID,
		StateID:      payload.StateID,
		Status:       payload.Status,
		Outcome:      payload.Outcome,
		CreatedAt:    payload.CreatedAt,
		Execution:    exec,
	}, nil
}
