// File: internal/fs/codec.go
package fs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tinixos/tinix/internal/types"
)

// On-disk encoding is little-endian throughout, matching the superblock
// contract at byte 0 of the image.

func encodeSuperBlock(sb types.SuperBlock, buf []byte) {
	e := binary.LittleEndian
	e.PutUint32(buf[0:4], sb.Magic)
	e.PutUint32(buf[4:8], sb.TotalBlocks)
	e.PutUint32(buf[8:12], sb.TotalInodes)
	e.PutUint32(buf[12:16], sb.FreeBlocks)
	e.PutUint32(buf[16:20], sb.FreeInodes)
	e.PutUint32(buf[20:24], sb.InodeBitmapBlock)
	e.PutUint32(buf[24:28], sb.DataBitmapBlock)
	e.PutUint32(buf[28:32], sb.InodeTableStart)
	e.PutUint32(buf[32:36], sb.InodeTableBlocks)
	e.PutUint32(buf[36:40], sb.DataBlocksStart)
}

func decodeSuperBlock(buf []byte) (types.SuperBlock, error) {
	if len(buf) < 40 {
		return types.SuperBlock{}, fmt.Errorf("data too small for superblock: %d bytes, need at least 40", len(buf))
	}
	e := binary.LittleEndian
	return types.SuperBlock{
		Magic:            e.Uint32(buf[0:4]),
		TotalBlocks:      e.Uint32(buf[4:8]),
		TotalInodes:      e.Uint32(buf[8:12]),
		FreeBlocks:       e.Uint32(buf[12:16]),
		FreeInodes:       e.Uint32(buf[16:20]),
		InodeBitmapBlock: e.Uint32(buf[20:24]),
		DataBitmapBlock:  e.Uint32(buf[24:28]),
		InodeTableStart:  e.Uint32(buf[28:32]),
		InodeTableBlocks: e.Uint32(buf[32:36]),
		DataBlocksStart:  e.Uint32(buf[36:40]),
	}, nil
}

// encodeInode serializes ino into a types.InodeSize-byte record:
// type(1) pad(3) size(4) blocks_used(4) direct[10](40) padding.
func encodeInode(ino types.Inode, buf []byte) {
	e := binary.LittleEndian
	for i := range buf[:types.InodeSize] {
		buf[i] = 0
	}
	buf[0] = byte(ino.Type)
	e.PutUint32(buf[4:8], ino.Size)
	e.PutUint32(buf[8:12], ino.BlocksUsed)
	for i := 0; i < types.DirectBlocks; i++ {
		e.PutUint32(buf[12+4*i:16+4*i], ino.Direct[i])
	}
}

func decodeInode(buf []byte) types.Inode {
	e := binary.LittleEndian
	var ino types.Inode
	ino.Type = types.FileType(buf[0])
	ino.Size = e.Uint32(buf[4:8])
	ino.BlocksUsed = e.Uint32(buf[8:12])
	for i := 0; i < types.DirectBlocks; i++ {
		ino.Direct[i] = e.Uint32(buf[12+4*i : 16+4*i])
	}
	return ino
}

// encodeDirent serializes one 32-byte directory record: a NUL-padded
// 28-byte name followed by the inode number.
func encodeDirent(ent types.DirectoryEntry, buf []byte) {
	for i := 0; i < types.MaxFilenameLen; i++ {
		buf[i] = 0
	}
	copy(buf[:types.MaxFilenameLen-1], ent.Name)
	binary.LittleEndian.PutUint32(buf[types.MaxFilenameLen:types.DirentSize], ent.InodeNum)
}

func decodeDirent(buf []byte) types.DirectoryEntry {
	name := buf[:types.MaxFilenameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return types.DirectoryEntry{
		Name:     string(name),
		InodeNum: binary.LittleEndian.Uint32(buf[types.MaxFilenameLen:types.DirentSize]),
	}
}
