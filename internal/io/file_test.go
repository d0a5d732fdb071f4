package ioutils

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestCreateUnique_Suffixes(t *testing.T) {
	dir := t.TempDir()
	name := "spec-0751-52251-00160.fits"

	want := []string{
		"spec-0751-52251-00160.fits",
		"spec-0751-52251-00160_2.fits",
		"spec-0751-52251-00160_3.fits",
	}

	for i, w := range want {
		f, path, err := CreateUnique(dir, name)
		if err != nil {
			t.Fatalf("CreateUnique #%d failed: %v", i+1, err)
		}
		f.Close()
		if filepath.Base(path) != w {
			t.Errorf("CreateUnique #%d = %q, want %q", i+1, filepath.Base(path), w)
		}
	}
}

func TestCreateUnique_Concurrent(t *testing.T) {
	dir := t.TempDir()
	const workers = 16

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		paths = make(map[string]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, path, err := CreateUnique(dir, "spec.fits")
			if err != nil {
				t.Errorf("CreateUnique failed: %v", err)
				return
			}
			f.Close()
			mu.Lock()
			paths[path] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(paths) != workers {
		t.Errorf("got %d distinct paths, want %d", len(paths), workers)
	}
}

func TestCreateUnique_MissingDir(t *testing.T) {
	_, _, err := CreateUnique(filepath.Join(t.TempDir(), "nope"), "spec.fits")
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestOpenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.txt")

	for _, line := range []string{"one\n", "two\n"} {
		f, err := OpenAppend(path)
		if err != nil {
			t.Fatalf("OpenAppend failed: %v", err)
		}
		f.WriteString(line)
		f.Close()
	}

	data, _ := os.ReadFile(path)
	if string(data) != "one\ntwo\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed_list.txt")

	if dst, err := Rotate(path); err != nil || dst != "" {
		t.Fatalf("Rotate(missing) = %q, %v", dst, err)
	}

	os.WriteFile(path, []byte("751\t52251\t160\n"), 0644)
	dst, err := Rotate(path)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if dst != path+".prev" {
		t.Errorf("Rotate() = %q, want %q", dst, path+".prev")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file should be gone after Rotate")
	}
}
