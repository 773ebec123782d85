// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import (
	"encoding/binary"
	"testing"
)

// buildRequestRecord assembles a single wire record by hand: header, node,
// nameOffset/nameSize, the per-kind payload, then the FileName bytes —
// the same layout decodeRequest expects.
func buildRequestRecord(kind RequestKind, hint Hint, node NodeID, name string, payload []byte) []byte {
	nameBytes := encodeUTF16(name)
	nameOffset := requestFixedPrefixSize + len(payload)
	size := nameOffset + len(nameBytes)

	record := make([]byte, size)
	binary.LittleEndian.PutUint16(record[0:2], uint16(size))
	binary.LittleEndian.PutUint32(record[2:6], uint32(kind))
	binary.LittleEndian.PutUint64(record[6:14], uint64(hint))
	binary.LittleEndian.PutUint64(record[14:22], uint64(node))
	binary.LittleEndian.PutUint16(record[22:24], uint16(nameOffset))
	binary.LittleEndian.PutUint16(record[24:26], uint16(len(nameBytes)))
	copy(record[requestFixedPrefixSize:], payload)
	copy(record[nameOffset:], nameBytes)
	return record
}

func TestDecodeRequestCreatePopulatesPerKindPayload(t *testing.T) {
	sd := []byte{1, 2, 3, 4}
	payload := make([]byte, 22+len(sd))
	binary.LittleEndian.PutUint32(payload[0:4], 0x1234)   // DesiredAccess
	binary.LittleEndian.PutUint32(payload[4:8], 0x5)       // ShareAccess
	binary.LittleEndian.PutUint32(payload[8:12], 2)        // Disposition (CREATE)
	binary.LittleEndian.PutUint32(payload[12:16], 0x80)    // FileAttributes
	binary.LittleEndian.PutUint32(payload[16:20], 0x40)    // CreateOptions
	binary.LittleEndian.PutUint16(payload[20:22], uint16(len(sd)))
	copy(payload[22:], sd)

	record := buildRequestRecord(KindCreate, 42, 0, `\Dir\File`, payload)
	req, err := decodeRequest(record)
	if err != nil {
		t.Fatalf("decodeRequest: %v", err)
	}

	if req.FileName != `\Dir\File` {
		t.Fatalf("FileName = %q", req.FileName)
	}
	if req.Create == nil {
		t.Fatalf("Create payload not populated")
	}
	if req.Create.DesiredAccess != 0x1234 || req.Create.ShareAccess != 0x5 ||
		req.Create.Disposition != 2 || req.Create.FileAttributes != 0x80 ||
		req.Create.CreateOptions != 0x40 {
		t.Fatalf("Create fields mismatch: %+v", req.Create)
	}
	if string(req.Create.SecurityDescriptor) != string(sd) {
		t.Fatalf("SecurityDescriptor = %v, want %v", req.Create.SecurityDescriptor, sd)
	}
}

func TestDecodeRequestOpenPopulatesPerKindPayload(t *testing.T) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], 0x1)
	binary.LittleEndian.PutUint32(payload[4:8], 0x2)

	record := buildRequestRecord(KindOpen, 7, 99, `\existing`, payload)
	req, err := decodeRequest(record)
	if err != nil {
		t.Fatalf("decodeRequest: %v", err)
	}
	if req.node != 99 {
		t.Fatalf("node = %v, want 99", req.node)
	}
	if req.Open == nil || req.Open.DesiredAccess != 0x1 || req.Open.ShareAccess != 0x2 {
		t.Fatalf("Open payload mismatch: %+v", req.Open)
	}
}

func TestDecodeRequestReadAndWriteRoundTrip(t *testing.T) {
	readPayload := make([]byte, 12)
	binary.LittleEndian.PutUint64(readPayload[0:8], 4096)
	binary.LittleEndian.PutUint32(readPayload[8:12], 512)

	record := buildRequestRecord(KindRead, 1, 5, `\f`, readPayload)
	req, err := decodeRequest(record)
	if err != nil {
		t.Fatalf("decodeRequest: %v", err)
	}
	if req.Read == nil || req.Read.Offset != 4096 || req.Read.Length != 512 {
		t.Fatalf("Read payload mismatch: %+v", req.Read)
	}

	data := []byte("hello")
	writePayload := make([]byte, 16+len(data))
	binary.LittleEndian.PutUint64(writePayload[0:8], 8)
	binary.LittleEndian.PutUint32(writePayload[8:12], 1)
	binary.LittleEndian.PutUint32(writePayload[12:16], uint32(len(data)))
	copy(writePayload[16:], data)

	record = buildRequestRecord(KindWrite, 2, 5, `\f`, writePayload)
	req, err = decodeRequest(record)
	if err != nil {
		t.Fatalf("decodeRequest: %v", err)
	}
	if req.Write == nil || req.Write.Offset != 8 || !req.Write.ConstrainedIO || string(req.Write.Data) != "hello" {
		t.Fatalf("Write payload mismatch: %+v", req.Write)
	}
}

func TestDecodeRequestQueryDirectoryPopulatesPerKindPayload(t *testing.T) {
	pattern := encodeUTF16("*.txt")
	marker := encodeUTF16("a.txt")
	payload := make([]byte, 4+2+len(pattern)+2+len(marker))
	binary.LittleEndian.PutUint32(payload[0:4], queryDirRestartScan)
	binary.LittleEndian.PutUint16(payload[4:6], uint16(len(pattern)))
	copy(payload[6:], pattern)
	off := 6 + len(pattern)
	binary.LittleEndian.PutUint16(payload[off:off+2], uint16(len(marker)))
	copy(payload[off+2:], marker)

	record := buildRequestRecord(KindQueryDirectory, 3, 11, `\dir`, payload)
	req, err := decodeRequest(record)
	if err != nil {
		t.Fatalf("decodeRequest: %v", err)
	}
	if req.QueryDir == nil {
		t.Fatalf("QueryDir payload not populated")
	}
	if req.QueryDir.Pattern != "*.txt" || req.QueryDir.Marker != "a.txt" || !req.QueryDir.RestartScan || req.QueryDir.Single {
		t.Fatalf("QueryDir fields mismatch: %+v", req.QueryDir)
	}
}

func TestDecodeRequestMissingPayloadReturnsError(t *testing.T) {
	record := buildRequestRecord(KindOpen, 1, 1, `\x`, nil)
	if _, err := decodeRequest(record); err == nil {
		t.Fatalf("expected error for truncated Open payload, got nil")
	}
}

func TestResponseEncoderIncludesInformation(t *testing.T) {
	var enc responseEncoder
	enc.append(Response{Kind: KindCreate, Hint: 9, Status: StatusSuccess, Information: uint64(FileCreated)})

	buf := enc.bytes()
	if len(buf) < wireHeaderSize+ioStatusSize {
		t.Fatalf("encoded response too short: %d bytes", len(buf))
	}
	gotStatus := binary.LittleEndian.Uint32(buf[wireHeaderSize : wireHeaderSize+4])
	gotInformation := binary.LittleEndian.Uint64(buf[wireHeaderSize+4 : wireHeaderSize+ioStatusSize])
	if Status(gotStatus) != StatusSuccess {
		t.Fatalf("Status = %v, want StatusSuccess", Status(gotStatus))
	}
	if gotInformation != uint64(FileCreated) {
		t.Fatalf("Information = %d, want %d (FileCreated)", gotInformation, FileCreated)
	}
}
