// File: internal/fs/ops.go
package fs

import (
	"fmt"

	"github.com/tinixos/tinix/internal/types"
)

// Stat returns the inode record for an inode number.
func (f *FileSystem) Stat(n uint32) (types.Inode, error) {
	if !f.mounted {
		return types.Inode{}, types.ErrNotMounted
	}
	return f.readInode(n)
}

// CreateFile allocates a fresh empty regular file at path (touch). No
// data block is allocated until the first write.
func (f *FileSystem) CreateFile(path string) (uint32, error) {
	if !f.mounted {
		return types.InvalidInode, types.ErrNotMounted
	}

	parentPath, name := SplitPath(NormalizePath(path, f.cwd))
	parentIno, err := f.Lookup(parentPath)
	if err != nil {
		return types.InvalidInode, fmt.Errorf("parent directory %s: %w", parentPath, err)
	}
	parent, err := f.readInode(parentIno)
	if err != nil {
		return types.InvalidInode, err
	}
	if parent.Type != types.FileTypeDirectory {
		return types.InvalidInode, fmt.Errorf("%s: %w", parentPath, types.ErrNotDirectory)
	}

	if _, err := f.lookupInDirectory(parentIno, name); err == nil {
		return types.InvalidInode, fmt.Errorf("%s: %w", path, types.ErrExists)
	}

	n, err := f.allocInode()
	if err != nil {
		return types.InvalidInode, err
	}

	ino := types.Inode{Type: types.FileTypeRegular}
	for i := range ino.Direct {
		ino.Direct[i] = types.InvalidBlock
	}
	if err := f.writeInode(n, ino); err != nil {
		f.freeInode(n)
		return types.InvalidInode, err
	}

	if err := f.addDirEntry(parentIno, name, n); err != nil {
		f.freeInode(n)
		return types.InvalidInode, err
	}

	if err := f.flushMeta(); err != nil {
		return types.InvalidInode, err
	}
	return n, nil
}

// Mkdir creates a directory at path with `.` and `..` entries.
func (f *FileSystem) Mkdir(path string) (uint32, error) {
	if !f.mounted {
		return types.InvalidInode, types.ErrNotMounted
	}

	parentPath, name := SplitPath(NormalizePath(path, f.cwd))
	parentIno, err := f.Lookup(parentPath)
	if err != nil {
		return types.InvalidInode, fmt.Errorf("parent directory %s: %w", parentPath, err)
	}
	parent, err := f.readInode(parentIno)
	if err != nil {
		return types.InvalidInode, err
	}
	if parent.Type != types.FileTypeDirectory {
		return types.InvalidInode, fmt.Errorf("%s: %w", parentPath, types.ErrNotDirectory)
	}

	if _, err := f.lookupInDirectory(parentIno, name); err == nil {
		return types.InvalidInode, fmt.Errorf("%s: %w", path, types.ErrExists)
	}

	n, err := f.allocInode()
	if err != nil {
		return types.InvalidInode, err
	}
	block, err := f.allocBlock()
	if err != nil {
		f.freeInode(n)
		return types.InvalidInode, err
	}

	ino := types.Inode{
		Type:       types.FileTypeDirectory,
		Size:       2 * types.DirentSize,
		BlocksUsed: 1,
	}
	for i := range ino.Direct {
		ino.Direct[i] = types.InvalidBlock
	}
	ino.Direct[0] = block

	buf := make([]byte, f.blockSize)
	f.clearDirBlock(buf)
	encodeDirent(types.DirectoryEntry{Name: ".", InodeNum: n}, buf[0:types.DirentSize])
	encodeDirent(types.DirectoryEntry{Name: "..", InodeNum: parentIno}, buf[types.DirentSize:2*types.DirentSize])
	if err := f.dev.WriteBlock(block, buf); err != nil {
		f.freeBlock(block)
		f.freeInode(n)
		return types.InvalidInode, err
	}
	if err := f.writeInode(n, ino); err != nil {
		f.freeBlock(block)
		f.freeInode(n)
		return types.InvalidInode, err
	}

	if err := f.addDirEntry(parentIno, name, n); err != nil {
		f.freeBlock(block)
		f.freeInode(n)
		return types.InvalidInode, err
	}

	if err := f.flushMeta(); err != nil {
		return types.InvalidInode, err
	}
	return n, nil
}

// Remove deletes the regular file at path, releasing its inode and all
// of its data blocks. Directories are not removable.
func (f *FileSystem) Remove(path string) error {
	if !f.mounted {
		return types.ErrNotMounted
	}

	parentPath, name := SplitPath(NormalizePath(path, f.cwd))
	parentIno, err := f.Lookup(parentPath)
	if err != nil {
		return fmt.Errorf("parent directory %s: %w", parentPath, err)
	}

	fileIno, err := f.lookupInDirectory(parentIno, name)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	ino, err := f.readInode(fileIno)
	if err != nil {
		return err
	}
	if ino.Type != types.FileTypeRegular {
		return fmt.Errorf("%s: %w", path, types.ErrNotRegular)
	}

	for i := uint32(0); i < ino.BlocksUsed; i++ {
		f.freeBlock(ino.Direct[i])
	}
	f.freeInode(fileIno)
	if err := f.removeDirEntry(parentIno, name); err != nil {
		return err
	}

	return f.flushMeta()
}

// ChangeDir updates the current working directory.
func (f *FileSystem) ChangeDir(path string) error {
	if !f.mounted {
		return types.ErrNotMounted
	}
	n, err := f.Lookup(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	ino, err := f.readInode(n)
	if err != nil {
		return err
	}
	if ino.Type != types.FileTypeDirectory {
		return fmt.Errorf("%s: %w", path, types.ErrNotDirectory)
	}
	f.cwd = NormalizePath(path, f.cwd)
	return nil
}

// LookupFile resolves path to a regular file's inode number.
func (f *FileSystem) LookupFile(path string) (uint32, error) {
	n, err := f.Lookup(path)
	if err != nil {
		return types.InvalidInode, fmt.Errorf("%s: %w", path, err)
	}
	ino, err := f.readInode(n)
	if err != nil {
		return types.InvalidInode, err
	}
	if ino.Type != types.FileTypeRegular {
		return types.InvalidInode, fmt.Errorf("%s: %w", path, types.ErrNotRegular)
	}
	return n, nil
}

// ReadAt reads up to len(buf) bytes of file n starting at off. Short
// reads happen at EOF.
func (f *FileSystem) ReadAt(n uint32, off uint32, buf []byte) (uint32, error) {
	if !f.mounted {
		return 0, types.ErrNotMounted
	}
	ino, err := f.readInode(n)
	if err != nil {
		return 0, err
	}

	if off >= ino.Size {
		return 0, nil
	}
	toRead := uint32(len(buf))
	if avail := ino.Size - off; toRead > avail {
		toRead = avail
	}

	block := make([]byte, f.blockSize)
	var done uint32
	for done < toRead {
		idx := (off + done) / f.blockSize
		blockOff := (off + done) % f.blockSize
		if idx >= ino.BlocksUsed {
			break
		}
		if err := f.dev.ReadBlock(ino.Direct[idx], block); err != nil {
			return done, err
		}
		chunk := f.blockSize - blockOff
		if rem := toRead - done; chunk > rem {
			chunk = rem
		}
		copy(buf[done:done+chunk], block[blockOff:blockOff+chunk])
		done += chunk
	}
	return done, nil
}

// WriteAt writes data to file n at off, extending the file and
// allocating data blocks on demand. Returns the bytes written; a partial
// count with an error means the FS ran out of blocks or hit the direct
// pointer limit mid-write.
func (f *FileSystem) WriteAt(n uint32, off uint32, data []byte) (uint32, error) {
	if !f.mounted {
		return 0, types.ErrNotMounted
	}
	ino, err := f.readInode(n)
	if err != nil {
		return 0, err
	}

	block := make([]byte, f.blockSize)
	var done uint32
	var werr error
	for done < uint32(len(data)) {
		idx := (off + done) / f.blockSize
		blockOff := (off + done) % f.blockSize

		if idx >= types.DirectBlocks {
			werr = types.ErrFileTooLarge
			break
		}
		// Allocate up to and including idx so a write past the current
		// end never leaves a hole of invalid pointers.
		for ino.BlocksUsed <= idx {
			b, err := f.allocBlock()
			if err != nil {
				werr = err
				break
			}
			ino.Direct[ino.BlocksUsed] = b
			ino.BlocksUsed++
		}
		if werr != nil {
			break
		}

		chunk := f.blockSize - blockOff
		if rem := uint32(len(data)) - done; chunk > rem {
			chunk = rem
		}

		// Partial block writes must preserve surrounding bytes.
		if blockOff != 0 || chunk < f.blockSize {
			if err := f.dev.ReadBlock(ino.Direct[idx], block); err != nil {
				werr = err
				break
			}
		}
		copy(block[blockOff:blockOff+chunk], data[done:done+chunk])
		if err := f.dev.WriteBlock(ino.Direct[idx], block); err != nil {
			werr = err
			break
		}

		done += chunk
		if off+done > ino.Size {
			ino.Size = off + done
		}
	}

	if err := f.writeInode(n, ino); err != nil && werr == nil {
		werr = err
	}
	if err := f.flushMeta(); err != nil && werr == nil {
		werr = err
	}
	return done, werr
}

// Truncate drops file n to zero length, releasing its data blocks.
func (f *FileSystem) Truncate(n uint32) error {
	if !f.mounted {
		return types.ErrNotMounted
	}
	ino, err := f.readInode(n)
	if err != nil {
		return err
	}
	if ino.Type != types.FileTypeRegular {
		return types.ErrNotRegular
	}

	for i := uint32(0); i < ino.BlocksUsed; i++ {
		f.freeBlock(ino.Direct[i])
		ino.Direct[i] = types.InvalidBlock
	}
	ino.BlocksUsed = 0
	ino.Size = 0
	if err := f.writeInode(n, ino); err != nil {
		return err
	}
	return f.flushMeta()
}
