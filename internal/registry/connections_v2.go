package registry

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// connections.v2.conf is the length-prefixed record format preferred for
// new writes, while the colon/pipe v1 form stays readable. The file is a
// single version byte followed by back-to-back records; each record is a
// big-endian uint32 total length followed by seven fields, each itself a
// big-endian uint16 length followed by its raw bytes. No field needs
// escaping since length is explicit rather than delimiter-based.
const v2FormatVersion = byte(2)

func encodeConnectionV2(e MountEntry) []byte {
	fields := [][]byte{
		[]byte(e.MountPoint), []byte(e.Host), []byte(e.User),
		[]byte(e.Port), []byte(e.RemotePath), []byte(e.KeyPath), []byte(e.Password),
	}
	var body bytes.Buffer
	for _, f := range fields {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(f)))
		body.Write(lenBuf[:])
		body.Write(f)
	}

	var out bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(body.Len()))
	out.Write(lenBuf[:])
	out.Write(body.Bytes())
	return out.Bytes()
}

// decodeConnectionV2Record decodes one record starting at data[0] and
// returns the entry plus the number of bytes consumed.
func decodeConnectionV2Record(data []byte) (MountEntry, int, error) {
	if len(data) < 4 {
		return MountEntry{}, 0, errors.New("truncated v2 record length prefix")
	}
	recordLen := binary.BigEndian.Uint32(data[:4])
	total := 4 + int(recordLen)
	if len(data) < total {
		return MountEntry{}, 0, errors.New("truncated v2 record body")
	}
	body := data[4:total]

	var values [7]string
	pos := 0
	for i := 0; i < 7; i++ {
		if pos+2 > len(body) {
			return MountEntry{}, 0, errors.New("truncated v2 field length prefix")
		}
		fieldLen := int(binary.BigEndian.Uint16(body[pos : pos+2]))
		pos += 2
		if pos+fieldLen > len(body) {
			return MountEntry{}, 0, errors.New("truncated v2 field body")
		}
		values[i] = string(body[pos : pos+fieldLen])
		pos += fieldLen
	}

	return MountEntry{
		MountPoint: values[0],
		Host:       values[1],
		User:       values[2],
		Port:       values[3],
		RemotePath: values[4],
		KeyPath:    values[5],
		Password:   values[6],
	}, total, nil
}

func readConnectionsV2(path string) ([]MountEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != v2FormatVersion {
		return nil, errors.Errorf("%q: unsupported format version %d", path, data[0])
	}

	var entries []MountEntry
	rest := data[1:]
	for len(rest) > 0 {
		entry, consumed, err := decodeConnectionV2Record(rest)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %q", path)
		}
		entries = append(entries, entry)
		rest = rest[consumed:]
	}
	return entries, nil
}

func writeConnectionsV2(path string, entries []MountEntry) error {
	var out bytes.Buffer
	out.WriteByte(v2FormatVersion)
	for _, e := range entries {
		out.Write(encodeConnectionV2(e))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0600); err != nil {
		return errors.Wrapf(err, "writing temp file %q", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "renaming %q into place", path)
	}
	return nil
}

func (r *Registry) upsertConnectionV2(entry MountEntry) error {
	entries, err := readConnectionsV2(r.connectionsV2Path())
	if err != nil {
		return err
	}
	replaced := false
	for i, e := range entries {
		if e.MountPoint == entry.MountPoint {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return writeConnectionsV2(r.connectionsV2Path(), entries)
}

func (r *Registry) lookupConnectionV2(mountPoint string) (MountEntry, bool, error) {
	entries, err := readConnectionsV2(r.connectionsV2Path())
	if err != nil {
		return MountEntry{}, false, err
	}
	for _, e := range entries {
		if e.MountPoint == mountPoint {
			return e, true, nil
		}
	}
	return MountEntry{}, false, nil
}

func (r *Registry) removeConnectionV2Rows(mountPoint string) error {
	entries, err := readConnectionsV2(r.connectionsV2Path())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	out := entries[:0]
	for _, e := range entries {
		if e.MountPoint != mountPoint {
			out = append(out, e)
		}
	}
	return writeConnectionsV2(r.connectionsV2Path(), out)
}
