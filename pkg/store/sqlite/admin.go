package sqlite

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/marmos91/dittohandle/pkg/handle"
)

// HS_ADMIN values are kept in the binary layout handle servers use in their
// handles table:
//
//	permissions  uint16  (low 12 bits, big endian)
//	length       uint32  length of the admin handle
//	handle       []byte
//	index        uint32
const adminHeaderSize = 2 + 4

// encodeAdminValue converts an admin value to its binary layout.
// Permission strings shorter than 12 bits are padded with zeros on the right.
func encodeAdminValue(v handle.AdminValue) ([]byte, error) {
	perms, err := strconv.ParseUint(handle.PadPermissions(v.Permissions), 2, 16)
	if err != nil || perms > 0x0FFF {
		return nil, fmt.Errorf("invalid admin permissions %q", v.Permissions)
	}
	if v.Index < 0 {
		return nil, fmt.Errorf("invalid admin index %d", v.Index)
	}

	buf := make([]byte, adminHeaderSize+len(v.Handle)+4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(perms))
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(v.Handle)))
	copy(buf[6:], v.Handle)
	binary.BigEndian.PutUint32(buf[6+len(v.Handle):], uint32(v.Index))
	return buf, nil
}

// decodeAdminValue parses the binary layout written by encodeAdminValue.
func decodeAdminValue(raw []byte) (handle.AdminValue, error) {
	if len(raw) < adminHeaderSize+4 {
		return handle.AdminValue{}, fmt.Errorf("admin value too short: %d bytes", len(raw))
	}
	perms := binary.BigEndian.Uint16(raw[0:2]) & 0x0FFF
	n := int(binary.BigEndian.Uint32(raw[2:6]))
	if len(raw) != adminHeaderSize+n+4 {
		return handle.AdminValue{}, fmt.Errorf("admin value length mismatch: handle length %d, %d bytes", n, len(raw))
	}
	return handle.AdminValue{
		Index:       int(binary.BigEndian.Uint32(raw[6+n:])),
		Handle:      string(raw[6 : 6+n]),
		Permissions: fmt.Sprintf("%012b", perms),
	}, nil
}
