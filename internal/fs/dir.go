// File: internal/fs/dir.go
package fs

import (
	"fmt"
	"strings"

	"github.com/tinixos/tinix/internal/types"
)

// Lookup resolves path (absolute or cwd-relative) to an inode number.
func (f *FileSystem) Lookup(path string) (uint32, error) {
	if !f.mounted {
		return types.InvalidInode, types.ErrNotMounted
	}
	norm := NormalizePath(path, f.cwd)
	if norm == "/" {
		return types.RootInode, nil
	}

	cur := uint32(types.RootInode)
	rest := norm[1:]
	for len(rest) > 0 {
		var component string
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			component, rest = rest[:i], rest[i+1:]
		} else {
			component, rest = rest, ""
		}
		next, err := f.lookupInDirectory(cur, component)
		if err != nil {
			return types.InvalidInode, err
		}
		cur = next
	}
	return cur, nil
}

// lookupInDirectory finds name in the directory dirIno. The search is
// linear over all entry slots; names compare byte-exact.
func (f *FileSystem) lookupInDirectory(dirIno uint32, name string) (uint32, error) {
	ino, err := f.readInode(dirIno)
	if err != nil {
		return types.InvalidInode, err
	}
	if ino.Type != types.FileTypeDirectory {
		return types.InvalidInode, types.ErrNotDirectory
	}

	buf := make([]byte, f.blockSize)
	for i := uint32(0); i < ino.BlocksUsed; i++ {
		if err := f.dev.ReadBlock(ino.Direct[i], buf); err != nil {
			return types.InvalidInode, err
		}
		for off := uint32(0); off+types.DirentSize <= f.blockSize; off += types.DirentSize {
			ent := decodeDirent(buf[off : off+types.DirentSize])
			if ent.Valid() && ent.Name == name {
				return ent.InodeNum, nil
			}
		}
	}
	return types.InvalidInode, types.ErrNotFound
}

// addDirEntry records name→inodeNum in directory dirIno, reusing a
// tombstoned slot when one exists and allocating a fresh block only when
// every slot is live.
func (f *FileSystem) addDirEntry(dirIno uint32, name string, inodeNum uint32) error {
	if len(name) >= types.MaxFilenameLen {
		return fmt.Errorf("name %q too long (max %d)", name, types.MaxFilenameLen-1)
	}

	ino, err := f.readInode(dirIno)
	if err != nil {
		return err
	}

	buf := make([]byte, f.blockSize)
	for i := uint32(0); i < ino.BlocksUsed; i++ {
		if err := f.dev.ReadBlock(ino.Direct[i], buf); err != nil {
			return err
		}
		for off := uint32(0); off+types.DirentSize <= f.blockSize; off += types.DirentSize {
			ent := decodeDirent(buf[off : off+types.DirentSize])
			if !ent.Valid() {
				encodeDirent(types.DirectoryEntry{Name: name, InodeNum: inodeNum}, buf[off:off+types.DirentSize])
				if err := f.dev.WriteBlock(ino.Direct[i], buf); err != nil {
					return err
				}
				ino.Size += types.DirentSize
				return f.writeInode(dirIno, ino)
			}
		}
	}

	if ino.BlocksUsed >= types.DirectBlocks {
		return fmt.Errorf("directory full: %w", types.ErrNoSpace)
	}

	block, err := f.allocBlock()
	if err != nil {
		return err
	}
	f.clearDirBlock(buf)
	encodeDirent(types.DirectoryEntry{Name: name, InodeNum: inodeNum}, buf[0:types.DirentSize])
	if err := f.dev.WriteBlock(block, buf); err != nil {
		return err
	}

	ino.Direct[ino.BlocksUsed] = block
	ino.BlocksUsed++
	ino.Size += types.DirentSize
	return f.writeInode(dirIno, ino)
}

// removeDirEntry tombstones name in directory dirIno. ls never surfaces
// tombstones and addDirEntry reuses them.
func (f *FileSystem) removeDirEntry(dirIno uint32, name string) error {
	ino, err := f.readInode(dirIno)
	if err != nil {
		return err
	}

	buf := make([]byte, f.blockSize)
	for i := uint32(0); i < ino.BlocksUsed; i++ {
		if err := f.dev.ReadBlock(ino.Direct[i], buf); err != nil {
			return err
		}
		for off := uint32(0); off+types.DirentSize <= f.blockSize; off += types.DirentSize {
			ent := decodeDirent(buf[off : off+types.DirentSize])
			if ent.Valid() && ent.Name == name {
				encodeDirent(types.DirectoryEntry{Name: "", InodeNum: types.InvalidInode}, buf[off:off+types.DirentSize])
				if err := f.dev.WriteBlock(ino.Direct[i], buf); err != nil {
					return err
				}
				ino.Size -= types.DirentSize
				return f.writeInode(dirIno, ino)
			}
		}
	}
	return types.ErrNotFound
}

// ListEntry is one row of a directory listing.
type ListEntry struct {
	Name     string
	InodeNum uint32
	Size     uint32
	Dir      bool
}

// List returns the live entries of the directory at path, including `.`
// and `..`, in slot order.
func (f *FileSystem) List(path string) ([]ListEntry, error) {
	if !f.mounted {
		return nil, types.ErrNotMounted
	}
	dirIno, err := f.Lookup(path)
	if err != nil {
		return nil, err
	}
	ino, err := f.readInode(dirIno)
	if err != nil {
		return nil, err
	}
	if ino.Type != types.FileTypeDirectory {
		return nil, types.ErrNotDirectory
	}

	var out []ListEntry
	buf := make([]byte, f.blockSize)
	for i := uint32(0); i < ino.BlocksUsed; i++ {
		if err := f.dev.ReadBlock(ino.Direct[i], buf); err != nil {
			return nil, err
		}
		for off := uint32(0); off+types.DirentSize <= f.blockSize; off += types.DirentSize {
			ent := decodeDirent(buf[off : off+types.DirentSize])
			if !ent.Valid() || ent.Name == "" {
				continue
			}
			child, err := f.readInode(ent.InodeNum)
			if err != nil {
				return nil, err
			}
			out = append(out, ListEntry{
				Name:     ent.Name,
				InodeNum: ent.InodeNum,
				Size:     child.Size,
				Dir:      child.Type == types.FileTypeDirectory,
			})
		}
	}
	return out, nil
}
