// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package fsprt

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf16"
)

// ioStatusSize is the wire size of the IoStatus block that follows the
// 14-byte header on every Response: {u32 Status, u64 Information}
// (spec.md §6).
const ioStatusSize = 4 + 8

// requestFixedPrefixSize is the wire size of every Request's fixed
// leading portion, before the per-kind payload: the 14-byte header, the
// 8-byte target NodeID, and the 2+2-byte FileName{Offset,Size} pair
// (spec.md §3/§6).
const requestFixedPrefixSize = wireHeaderSize + 8 + 2 + 2

// decodeRequests splits a raw batch returned by Channel.Transact into
// individual Requests. Each record's leading u16 Size field is the
// authoritative length of that record, including the header; a record
// whose declared Size would run past the end of buf is a protocol error
// (spec.md §6, "a malformed or truncated record is a channel-level
// error, not a per-request Status").
func decodeRequests(buf []byte) ([]Request, error) {
	var reqs []Request
	for len(buf) > 0 {
		if len(buf) < wireHeaderSize {
			return nil, fmt.Errorf("decodeRequests: %d trailing bytes, short of header size %d", len(buf), wireHeaderSize)
		}

		size := binary.LittleEndian.Uint16(buf[0:2])
		if int(size) < wireHeaderSize || int(size) > len(buf) {
			return nil, fmt.Errorf("decodeRequests: invalid record size %d (buf has %d bytes left)", size, len(buf))
		}

		record := buf[:size]
		req, err := decodeRequest(record)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)

		buf = buf[padToAlignment(int(size)):]
	}

	return reqs, nil
}

// decodeRequest parses one wire record into a Request, including the
// per-kind payload union: header (Size, Kind, Hint), then the target
// node, then the FileName{Offset,Size} pair, then the per-kind payload.
// FileName's UTF-16 bytes are addressed absolutely by offset so they can
// sit anywhere in the record; this encoder places them immediately after
// the per-kind payload.
func decodeRequest(record []byte) (Request, error) {
	var req Request
	req.Size = binary.LittleEndian.Uint16(record[0:2])
	req.Kind = RequestKind(binary.LittleEndian.Uint32(record[2:6]))
	req.Hint = Hint(binary.LittleEndian.Uint64(record[6:14]))

	if len(record) < requestFixedPrefixSize {
		return req, fmt.Errorf("decodeRequest: %d bytes, short of fixed prefix size %d", len(record), requestFixedPrefixSize)
	}
	req.node = NodeID(binary.LittleEndian.Uint64(record[14:22]))
	nameOffset := binary.LittleEndian.Uint16(record[22:24])
	nameSize := binary.LittleEndian.Uint16(record[24:26])
	if int(nameOffset) < requestFixedPrefixSize || int(nameOffset)+int(nameSize) > len(record) {
		return req, fmt.Errorf("decodeRequest: file name out of bounds")
	}
	req.FileName = decodeUTF16(record[nameOffset : int(nameOffset)+int(nameSize)])

	payload := record[requestFixedPrefixSize:nameOffset]
	if err := decodeKindPayload(req.Kind, payload, &req); err != nil {
		return req, fmt.Errorf("decodeRequest: kind %v: %w", req.Kind, err)
	}

	return req, nil
}

// wireReader is a bounds-checked cursor over a payload slice, used by
// decodeKindPayload so a truncated or malformed record produces an error
// instead of a panic.
type wireReader struct {
	buf []byte
	off int
}

func (r *wireReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return fmt.Errorf("truncated payload: need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
	}
	return nil
}

func (r *wireReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off : r.off+2])
	r.off += 2
	return v, nil
}

func (r *wireReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *wireReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *wireReader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v, nil
}

// u16String reads a u16 byte-length prefix followed by that many bytes of
// UTF-16, the variable-length string encoding used throughout the
// per-kind payloads (spec.md §3).
func (r *wireReader) u16String() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return decodeUTF16(b), nil
}

// SetInformation flag bits packed into decodeKindPayload's second u32,
// mirroring which optional *Info fields SetInformationRequest carries.
const (
	setInfoHasBasicInfo      uint32 = 1 << 0
	setInfoHasAllocationSize uint32 = 1 << 1
	setInfoHasEndOfFile      uint32 = 1 << 2
	setInfoHasDeleteFlag     uint32 = 1 << 3
	setInfoDeleteFlagValue   uint32 = 1 << 4
	setInfoReplaceIfExist    uint32 = 1 << 5
)

// QueryDirectory flag bits packed into decodeKindPayload's first u32.
const (
	queryDirRestartScan uint32 = 1 << 0
	queryDirSingle      uint32 = 1 << 1
)

// decodeKindPayload populates req's per-kind union field from payload,
// per the wire layout each kind's handler in handlers.go expects
// (spec.md §3/§6). Kinds with no payload (Close, Flush, QueryInformation,
// QueryVolumeInformation) and kinds not yet wired into handlerTable leave
// payload unconsumed.
func decodeKindPayload(kind RequestKind, payload []byte, req *Request) error {
	r := &wireReader{buf: payload}

	switch kind {
	case KindCreate:
		desiredAccess, err := r.u32()
		if err != nil {
			return err
		}
		shareAccess, err := r.u32()
		if err != nil {
			return err
		}
		disposition, err := r.u32()
		if err != nil {
			return err
		}
		fileAttributes, err := r.u32()
		if err != nil {
			return err
		}
		createOptions, err := r.u32()
		if err != nil {
			return err
		}
		sdLen, err := r.u16()
		if err != nil {
			return err
		}
		sd, err := r.bytes(int(sdLen))
		if err != nil {
			return err
		}
		req.Create = &CreateRequest{
			DesiredAccess:      desiredAccess,
			ShareAccess:        shareAccess,
			Disposition:        disposition,
			FileAttributes:     fileAttributes,
			CreateOptions:      createOptions,
			SecurityDescriptor: append([]byte(nil), sd...),
		}

	case KindOpen:
		desiredAccess, err := r.u32()
		if err != nil {
			return err
		}
		shareAccess, err := r.u32()
		if err != nil {
			return err
		}
		req.Open = &OpenRequest{DesiredAccess: desiredAccess, ShareAccess: shareAccess}

	case KindOverwrite:
		fileAttributes, err := r.u32()
		if err != nil {
			return err
		}
		replace, err := r.u32()
		if err != nil {
			return err
		}
		req.Overwrite = &OverwriteRequest{FileAttributes: fileAttributes, ReplaceAttributes: replace != 0}

	case KindCleanup:
		deleteOnClose, err := r.u32()
		if err != nil {
			return err
		}
		req.DeleteOnClose = deleteOnClose != 0

	case KindRead:
		offset, err := r.u64()
		if err != nil {
			return err
		}
		length, err := r.u32()
		if err != nil {
			return err
		}
		req.Read = &ReadRequest{Offset: offset, Length: length}

	case KindWrite:
		offset, err := r.u64()
		if err != nil {
			return err
		}
		constrained, err := r.u32()
		if err != nil {
			return err
		}
		dataLen, err := r.u32()
		if err != nil {
			return err
		}
		data, err := r.bytes(int(dataLen))
		if err != nil {
			return err
		}
		req.Write = &WriteRequest{
			Offset:        offset,
			ConstrainedIO: constrained != 0,
			Data:          append([]byte(nil), data...),
		}

	case KindSetInformation:
		class, err := r.u32()
		if err != nil {
			return err
		}
		flags, err := r.u32()
		if err != nil {
			return err
		}
		info := &SetInformationRequest{Class: class}
		if flags&setInfoHasBasicInfo != 0 {
			b, err := r.bytes(fileInfoSize)
			if err != nil {
				return err
			}
			fi := decodeFileInfoFrom(b)
			info.BasicInfo = &fi
		}
		if flags&setInfoHasAllocationSize != 0 {
			v, err := r.u64()
			if err != nil {
				return err
			}
			info.AllocationSize = &v
		}
		if flags&setInfoHasEndOfFile != 0 {
			v, err := r.u64()
			if err != nil {
				return err
			}
			info.EndOfFile = &v
		}
		if flags&setInfoHasDeleteFlag != 0 {
			v := flags&setInfoDeleteFlagValue != 0
			info.DeleteFlag = &v
		}
		info.ReplaceIfExist = flags&setInfoReplaceIfExist != 0
		renameTo, err := r.u16String()
		if err != nil {
			return err
		}
		info.RenameTo = renameTo
		req.SetInfo = info

	case KindQueryDirectory:
		flags, err := r.u32()
		if err != nil {
			return err
		}
		pattern, err := r.u16String()
		if err != nil {
			return err
		}
		marker, err := r.u16String()
		if err != nil {
			return err
		}
		req.QueryDir = &QueryDirectoryRequest{
			Pattern:     pattern,
			Marker:      marker,
			RestartScan: flags&queryDirRestartScan != 0,
			Single:      flags&queryDirSingle != 0,
		}

	case KindQuerySecurity:
		securityInformation, err := r.u32()
		if err != nil {
			return err
		}
		req.QuerySecurityInformation = securityInformation

	case KindSetSecurity:
		securityInformation, err := r.u32()
		if err != nil {
			return err
		}
		sdLen, err := r.u32()
		if err != nil {
			return err
		}
		sd, err := r.bytes(int(sdLen))
		if err != nil {
			return err
		}
		req.SetSec = &SetSecurityRequest{
			SecurityInformation: securityInformation,
			SecurityDescriptor:  append([]byte(nil), sd...),
		}

	case KindClose, KindFlush, KindQueryInformation, KindQueryVolumeInformation:
		// No payload.

	default:
		// Kinds not yet wired into handlerTable (SetVolumeLabel, QueryEa,
		// SetEa, GetReparsePoint, SetReparsePoint, CanDelete): nothing to
		// decode here, the dispatcher reports StatusNotImplemented
		// regardless of payload contents.
	}

	return nil
}

// decodeFileInfoFrom is encodeFileInfoInto's inverse, used by
// KindSetInformation when the caller supplies a BasicInfo payload.
func decodeFileInfoFrom(buf []byte) FileInfo {
	var info FileInfo
	info.FileAttributes = binary.LittleEndian.Uint32(buf[0:4])
	info.ReparseTag = binary.LittleEndian.Uint32(buf[4:8])
	info.AllocationSize = binary.LittleEndian.Uint64(buf[8:16])
	info.FileSize = binary.LittleEndian.Uint64(buf[16:24])
	info.CreationTime = nsToTime(binary.LittleEndian.Uint64(buf[24:32]))
	info.LastAccessTime = nsToTime(binary.LittleEndian.Uint64(buf[32:40]))
	info.LastWriteTime = nsToTime(binary.LittleEndian.Uint64(buf[40:48]))
	info.ChangeTime = nsToTime(binary.LittleEndian.Uint64(buf[48:56]))
	info.IndexNumber = binary.LittleEndian.Uint64(buf[56:64])
	info.HardLinks = binary.LittleEndian.Uint32(buf[64:68])
	info.EaSize = binary.LittleEndian.Uint32(buf[68:72])
	return info
}

func nsToTime(ns uint64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(ns)).UTC()
}

// decodeUTF16 decodes a little-endian, NUL-unterminated UTF-16 byte slice
// into a Go string, the representation the kernel uses for every path
// carried on the wire (spec.md §3, "FileName is UTF-16LE").
func decodeUTF16(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = binary.LittleEndian.Uint16(b[2*i : 2*i+2])
	}
	return string(utf16.Decode(u16))
}

func encodeUTF16(s string) []byte {
	u16 := utf16.Encode([]rune(s))
	b := make([]byte, len(u16)*2)
	for i, u := range u16 {
		binary.LittleEndian.PutUint16(b[2*i:2*i+2], u)
	}
	return b
}

// responseEncoder accumulates a batch of Responses into the wire format
// expected by Channel.Transact's outgoing argument, growing as needed.
// Modeled on the teacher's internal/buffer.OutMessage Grow/Append idiom,
// but over a plain []byte rather than an unsafe-pointer-addressed region,
// per REDESIGN FLAGS' guidance against C-union-style alignment tricks.
type responseEncoder struct {
	buf []byte
}

// append serializes resp's full IoStatus — both Status and Information —
// after the 14-byte header, then resp.Payload (spec.md §6).
func (e *responseEncoder) append(resp Response) {
	header := make([]byte, wireHeaderSize+ioStatusSize)
	binary.LittleEndian.PutUint32(header[2:6], uint32(resp.Kind))
	binary.LittleEndian.PutUint64(header[6:14], uint64(resp.Hint))
	binary.LittleEndian.PutUint32(header[wireHeaderSize:wireHeaderSize+4], uint32(resp.Status))
	binary.LittleEndian.PutUint64(header[wireHeaderSize+4:wireHeaderSize+ioStatusSize], resp.Information)

	record := append(header, resp.Payload...)
	size := len(record)
	binary.LittleEndian.PutUint16(record[0:2], uint16(size))

	padded := padToAlignment(size)
	if padded > size {
		record = append(record, make([]byte, padded-size)...)
	}

	e.buf = append(e.buf, record...)
}

func (e *responseEncoder) bytes() []byte {
	return e.buf
}
