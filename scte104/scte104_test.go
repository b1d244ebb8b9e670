package scte104

import (
	"encoding/binary"
	"errors"
	"testing"
)

func buildMultipleOpMessage(ops ...[]byte) []byte {
	var b []byte
	put16 := func(v uint16) { b = binary.BigEndian.AppendUint16(b, v) }

	put16(opIDMultipleOperation)
	put16(0)      // message_size placeholder
	put16(0)      // result
	put16(0)      // result_extension
	b = append(b, 0, 0, 0) // protocol_version, AS_index, message_number
	put16(7)      // DPI_PID_index
	b = append(b, 0) // SCTE35_protocol_version
	b = append(b, 0) // time_type = none
	b = append(b, byte(len(ops)))
	for _, op := range ops {
		b = append(b, op...)
	}
	return b
}

func spliceRequestOp(insertType byte, eventID uint32, uniqueProgramID uint16) []byte {
	data := make([]byte, 14)
	data[0] = insertType
	binary.BigEndian.PutUint32(data[1:5], eventID)
	binary.BigEndian.PutUint16(data[5:7], uniqueProgramID)

	op := make([]byte, 4)
	binary.BigEndian.PutUint16(op[0:2], opSpliceRequestData)
	binary.BigEndian.PutUint16(op[2:4], uint16(len(data)))
	return append(op, data...)
}

func nullOp() []byte {
	return []byte{0x00, 0x00, 0x00, 0x00}
}

func TestDecodeSingleOperationDiscarded(t *testing.T) {
	b := []byte{0x00, 0x01}
	_, err := Decode(b)
	if !errors.Is(err, ErrNotMultipleOperation) {
		t.Fatalf("err = %v, want ErrNotMultipleOperation", err)
	}
}

func TestDecodeSpliceRequest(t *testing.T) {
	msg := buildMultipleOpMessage(spliceRequestOp(InsertStartImmediate, 4242, 42))
	got, err := Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.SpliceRequests) != 1 {
		t.Fatalf("got %d splice requests, want 1", len(got.SpliceRequests))
	}
	req := got.SpliceRequests[0]
	if req.InsertType != InsertStartImmediate {
		t.Fatalf("InsertType = %d, want %d", req.InsertType, InsertStartImmediate)
	}
	if req.EventID != 4242 {
		t.Fatalf("EventID = %d, want 4242", req.EventID)
	}
	if req.UniqueProgramID != 42 {
		t.Fatalf("UniqueProgramID = %d, want 42", req.UniqueProgramID)
	}
}

func TestDecodeMixedOperations(t *testing.T) {
	msg := buildMultipleOpMessage(nullOp(), spliceRequestOp(InsertEndImmediate, 1, 1))
	got, err := Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if got.NullRequests != 1 {
		t.Fatalf("NullRequests = %d, want 1", got.NullRequests)
	}
	if len(got.SpliceRequests) != 1 {
		t.Fatalf("got %d splice requests, want 1", len(got.SpliceRequests))
	}
}

func TestDecodeTruncatedMessage(t *testing.T) {
	msg := buildMultipleOpMessage(spliceRequestOp(InsertStartImmediate, 1, 1))
	_, err := Decode(msg[:len(msg)-5])
	if err == nil {
		t.Fatal("expected error for truncated message")
	}
}
