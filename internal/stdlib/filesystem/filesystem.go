// Package filesystem implements std.filesystem: path resolution, lstat
// property records, move/copy/symlink/remove, recursive removal, glob,
// directory listing, and the read/stream/write/append family. File
// descriptors are scoped acquisitions, closed on every exit path.
package filesystem

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "filesystem", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/filesystem/filesystem.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("get_real_path", bind("std.filesystem.get_real_path", bGetRealPath))
	exports.Set("get_properties", bind("std.filesystem.get_properties", bGetProperties))
	exports.Set("move", bind("std.filesystem.move", bMove))
	exports.Set("copy", bind("std.filesystem.copy", bCopy))
	exports.Set("symlink", bind("std.filesystem.symlink", bSymlink))
	exports.Set("remove", bind("std.filesystem.remove", bRemove))
	exports.Set("create_directory", bind("std.filesystem.create_directory", bCreateDirectory))
	exports.Set("remove_directory", bind("std.filesystem.remove_directory", bRemoveDirectory))
	exports.Set("remove_recursive", bind("std.filesystem.remove_recursive", bRemoveRecursive))
	exports.Set("glob", bind("std.filesystem.glob", bGlob))
	exports.Set("list", bind("std.filesystem.list", bList))
	exports.Set("read", bind("std.filesystem.read", bRead))
	exports.Set("stream", bind("std.filesystem.stream", bStream))
	exports.Set("write", bind("std.filesystem.write", bWrite))
	exports.Set("append", bind("std.filesystem.append", bAppend))
}

func bGetRealPath(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	r.StartOverload()
	r.RequiredString(&path)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.get_real_path: %v", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return value.Null(), nil
		}
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.get_real_path: %v", err)
	}
	return value.Str(real), nil
}

func millis(t int64, nsec int64) int64 { return t*1000 + nsec/1_000_000 }

func bGetProperties(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	r.StartOverload()
	r.RequiredString(&path)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return value.Null(), nil
		}
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.get_properties: %v", err)
	}
	out := value.NewObject()
	st, ok := fi.Sys().(*syscall.Stat_t)
	if ok {
		out.Set("device", value.Int(int64(st.Dev)))
		out.Set("inode", value.Int(int64(st.Ino)))
		out.Set("link_count", value.Int(int64(st.Nlink)))
		out.Set("size_on_disk", value.Int(int64(st.Blocks)*512))
		out.Set("time_accessed", value.Int(millis(int64(st.Atim.Sec), int64(st.Atim.Nsec))))
	} else {
		out.Set("device", value.Int(0))
		out.Set("inode", value.Int(0))
		out.Set("link_count", value.Int(1))
		out.Set("size_on_disk", value.Int(fi.Size()))
		out.Set("time_accessed", value.Int(fi.ModTime().UnixMilli()))
	}
	out.Set("is_directory", value.Bool(fi.IsDir()))
	out.Set("is_symlink", value.Bool(fi.Mode()&os.ModeSymlink != 0))
	out.Set("size", value.Int(fi.Size()))
	out.Set("time_modified", value.Int(fi.ModTime().UnixMilli()))
	return value.FromObject(out), nil
}

func bMove(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var newPath, oldPath string
	r.StartOverload()
	r.RequiredString(&newPath)
	r.RequiredString(&oldPath)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.move: %v", err)
	}
	return value.Null(), nil
}

func bCopy(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var newPath, oldPath string
	r.StartOverload()
	r.RequiredString(&newPath)
	r.RequiredString(&oldPath)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if err := copyFilePreservingMode(oldPath, newPath); err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.copy: %v", err)
	}
	return value.Null(), nil
}

func copyFilePreservingMode(oldPath, newPath string) error {
	src, err := os.Open(oldPath)
	if err != nil {
		return err
	}
	defer src.Close()
	fi, err := src.Stat()
	if err != nil {
		return err
	}
	dst, err := os.OpenFile(newPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Chmod(fi.Mode().Perm())
}

func bSymlink(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var newPath, target string
	r.StartOverload()
	r.RequiredString(&newPath)
	r.RequiredString(&target)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if err := os.Symlink(target, newPath); err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.symlink: %v", err)
	}
	return value.Null(), nil
}

func bRemove(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	r.StartOverload()
	r.RequiredString(&path)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return value.Int(0), nil
		}
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.remove: %v", err)
	}
	return value.Int(1), nil
}

func bCreateDirectory(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	r.StartOverload()
	r.RequiredString(&path)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	err := os.Mkdir(path, 0o777)
	if err == nil {
		return value.Int(1), nil
	}
	if os.IsExist(err) {
		if fi, statErr := os.Stat(path); statErr == nil && fi.IsDir() {
			return value.Int(0), nil
		}
	}
	return value.Value{}, errors.New(errors.IOError, "std.filesystem.create_directory: %v", err)
}

func bRemoveDirectory(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	r.StartOverload()
	r.RequiredString(&path)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	err := syscall.Rmdir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return value.Int(0), nil
		}
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.remove_directory: %v", err)
	}
	return value.Int(1), nil
}

// removeFrame mirrors the explicit-stack frame the original uses for
// depth-first postorder removal: rmdir/unlink act on a resolved path,
// expand pushes a directory's children before the directory itself.
type removeFrame struct {
	disp string // "rmdir", "unlink", "expand"
	path string
}

func bRemoveRecursive(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	r.StartOverload()
	r.RequiredString(&path)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return value.Int(0), nil
		}
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.remove_recursive: %v", err)
	}
	var total int64
	stack := []removeFrame{}
	if fi.IsDir() {
		stack = append(stack, removeFrame{"rmdir", path}, removeFrame{"expand", path})
	} else {
		stack = append(stack, removeFrame{"unlink", path})
	}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch frame.disp {
		case "expand":
			entries, err := os.ReadDir(frame.path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return value.Value{}, errors.New(errors.IOError, "std.filesystem.remove_recursive: %v", err)
			}
			for _, e := range entries {
				child := filepath.Join(frame.path, e.Name())
				if e.IsDir() {
					stack = append(stack, removeFrame{"rmdir", child}, removeFrame{"expand", child})
				} else {
					stack = append(stack, removeFrame{"unlink", child})
				}
			}
		case "rmdir":
			if err := syscall.Rmdir(frame.path); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return value.Value{}, errors.New(errors.IOError, "std.filesystem.remove_recursive: %v", err)
			}
			total++
		case "unlink":
			if err := os.Remove(frame.path); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return value.Value{}, errors.New(errors.IOError, "std.filesystem.remove_recursive: %v", err)
			}
			total++
		}
	}
	return value.Int(total), nil
}

func bGlob(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var pattern string
	r.StartOverload()
	r.RequiredString(&pattern)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.glob: %v", err)
	}
	sort.Strings(matches)
	out := value.NewArray()
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.IsDir() {
			m += "/"
		}
		out.Append(value.Str(m))
	}
	return value.FromArray(out), nil
}

func bList(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	r.StartOverload()
	r.RequiredString(&path)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return value.Null(), nil
		}
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.list: %v", err)
	}
	out := value.NewObject()
	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}
		fi, err := os.Lstat(filepath.Join(path, name))
		if err != nil {
			continue
		}
		rec := value.NewObject()
		var inode int64
		if st, ok := fi.Sys().(*syscall.Stat_t); ok {
			inode = int64(st.Ino)
		}
		rec.Set("inode", value.Int(inode))
		rec.Set("is_directory", value.Bool(fi.IsDir()))
		rec.Set("is_symlink", value.Bool(fi.Mode()&os.ModeSymlink != 0))
		out.Set(name, value.FromObject(rec))
	}
	return value.FromObject(out), nil
}

const readBatchStart = 1 << 20

func bRead(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	var offset, limit int64
	var hasOffset, hasLimit bool
	r.StartOverload()
	r.RequiredString(&path)
	r.OptionalInteger(&offset, &hasOffset)
	r.OptionalInteger(&limit, &hasLimit)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if hasOffset && offset < 0 {
		return value.Value{}, errors.New(errors.RangeError, "std.filesystem.read: offset must not be negative")
	}
	f, err := os.Open(path)
	if err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.read: %v", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if hasOffset {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return value.Value{}, errors.New(errors.IOError, "std.filesystem.read: %v", err)
		}
	}
	var out []byte
	remaining := int64(-1)
	if hasLimit {
		remaining = limit
	}
	batch := int64(readBatchStart)
	buf := make([]byte, 0)
	for remaining != 0 {
		want := batch
		if remaining >= 0 && want > remaining {
			want = remaining
		}
		if int64(len(buf)) < want {
			buf = make([]byte, want)
		}
		n, rerr := reader.Read(buf[:want])
		if n > 0 {
			out = append(out, buf[:n]...)
			if remaining >= 0 {
				remaining -= int64(n)
			}
		}
		if rerr != nil {
			break
		}
		if n == 0 {
			break
		}
		batch *= 2
	}
	return value.Str(string(out)), nil
}

func bStream(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path string
	var callback value.Function
	var offset, limit int64
	var hasOffset, hasLimit bool
	r.StartOverload()
	r.RequiredString(&path)
	r.RequiredFunction(&callback)
	r.OptionalInteger(&offset, &hasOffset)
	r.OptionalInteger(&limit, &hasLimit)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if hasOffset && offset < 0 {
		return value.Value{}, errors.New(errors.RangeError, "std.filesystem.stream: offset must not be negative")
	}
	f, err := os.Open(path)
	if err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.stream: %v", err)
	}
	defer f.Close()
	if hasOffset {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return value.Value{}, errors.New(errors.IOError, "std.filesystem.stream: %v", err)
		}
	}
	remaining := int64(-1)
	if hasLimit {
		remaining = limit
	}
	batch := int64(readBatchStart)
	pos := offset
	var total int64
	br := bufio.NewReader(f)
	for remaining != 0 {
		want := batch
		if remaining >= 0 && want > remaining {
			want = remaining
		}
		buf := make([]byte, want)
		n, rerr := br.Read(buf)
		if n > 0 {
			var stack value.Stack
			stack.Push().SetTemporary(value.Int(pos))
			stack.Push().SetTemporary(value.Str(string(buf[:n])))
			var self value.Reference
			if ierr := callback.Invoke(&self, global, &stack); ierr != nil {
				return value.Value{}, ierr
			}
			total += int64(n)
			pos += int64(n)
			if remaining >= 0 {
				remaining -= int64(n)
			}
		}
		if rerr != nil {
			break
		}
		if n == 0 {
			break
		}
		batch *= 2
	}
	return value.Int(total), nil
}

func bWrite(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path, data string
	var offset int64
	var hasOffset bool
	r.StartOverload()
	r.RequiredString(&path)
	r.SaveState(0)
	r.RequiredString(&data)
	if !r.EndOverload() {
		// The three-argument form slots an optional offset before the data.
		r.LoadState(0)
		r.OptionalInteger(&offset, &hasOffset)
		r.RequiredString(&data)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.write: %v", err)
	}
	defer f.Close()
	truncAt := int64(0)
	if hasOffset {
		if offset < 0 {
			return value.Value{}, errors.New(errors.RangeError, "std.filesystem.write: offset must not be negative")
		}
		truncAt = offset
	}
	if err := f.Truncate(truncAt); err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.write: %v", err)
	}
	if _, err := f.WriteAt([]byte(data), truncAt); err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.write: %v", err)
	}
	return value.Null(), nil
}

func bAppend(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var path, data string
	var exclusive bool
	var hasExclusive bool
	r.StartOverload()
	r.RequiredString(&path)
	r.RequiredString(&data)
	r.OptionalBoolean(&exclusive, &hasExclusive)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if exclusive {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o666)
	if err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.append: %v", err)
	}
	defer f.Close()
	if _, err := f.Write([]byte(data)); err != nil {
		return value.Value{}, errors.New(errors.IOError, "std.filesystem.append: %v", err)
	}
	return value.Null(), nil
}
