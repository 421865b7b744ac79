package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/mcuscope/pkg/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
}

func relSet(t *testing.T, root string, files []string) map[string]bool {
	t.Helper()
	found := make(map[string]bool)
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("Rel(%s): %v", f, err)
		}
		found[filepath.ToSlash(rel)] = true
	}
	return found
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s == nil {
		t.Fatal("NewScanner(nil) returned nil")
	}
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	cfg := config.DefaultConfig()
	s = NewScanner(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"Core/Src/main.c":          "int main(void) { return 0; }\n",
		"Core/Inc/main.h":          "int main(void);\n",
		"Drivers/bsp/led.cpp":      "void led(void) {}\n",
		"Drivers/bsp/led.HPP":      "void led(void);\n",
		"startup_stm32f407xx.s":    "; asm\n",
		"Makefile":                 "all:\n",
		"Drivers/CMSIS/readme.txt": "cmsis\n",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	want := []string{"Core/Inc/main.h", "Core/Src/main.c", "Drivers/bsp/led.HPP", "Drivers/bsp/led.cpp"}
	if len(result) != len(want) {
		t.Fatalf("ScanDir() found %d files, want %d: %v", len(result), len(want), result)
	}
	found := relSet(t, tmpDir, result)
	for _, name := range want {
		if !found[name] {
			t.Errorf("File %s was not found", name)
		}
	}
}

func TestScanDirOrderIsStable(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"b.c": "", "a.c": "", "sub/c.c": "", "sub/a.h": "",
	})

	s := NewScanner(nil)
	first, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 4 {
		t.Fatalf("found %d files, want 4", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("scan order differs at %d: %s vs %s", i, first[i], second[i])
		}
	}
	if filepath.Base(first[0]) != "a.c" {
		t.Errorf("first file = %s, want a.c", first[0])
	}
}

func TestScanDirExcludesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"build/gen.c":       "",
		"Debug/startup.c":   "",
		"Release/obj.c":     "",
		".git/hooks/x.c":    "",
		"Core/Src/main.c":   "",
		"Core/build_info.c": "",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(t, tmpDir, result)
	if len(found) != 2 || !found["Core/Src/main.c"] || !found["Core/build_info.c"] {
		t.Errorf("ScanDir() = %v, want only Core/Src/main.c and Core/build_info.c", found)
	}
}

func TestScanDirExcludesPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.c":                  "",
		"uart_template.c":         "",
		"Middlewares/ST/usb.c":    "",
		"Middlewares/Third/fat.c": "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"*_template.c", "Middlewares/ST/"}

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(t, tmpDir, result)
	if len(found) != 2 || !found["main.c"] || !found["Middlewares/Third/fat.c"] {
		t.Errorf("ScanDir() = %v", found)
	}
}

func TestScanDirCustomExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"main.c": "", "board.h": "", "app.ino": ""})

	cfg := config.DefaultConfig()
	cfg.Analysis.Extensions = []string{".c", ".ino"}

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	found := relSet(t, tmpDir, result)
	if len(found) != 2 || !found["main.c"] || !found["app.ino"] {
		t.Errorf("ScanDir() = %v", found)
	}
}

func TestScanDirIncludeGlobs(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"Core/Src/main.c":               "",
		"Core/Src/deep/irq.c":           "",
		"Drivers/HAL/stm32f4xx_hal.c":   "",
		"Drivers/HAL/stm32f4xx_hal.h":   "",
		"Middlewares/FreeRTOS/tasks.c":  "",
		"Middlewares/FreeRTOS/queue.h":  "",
		"Middlewares/FreeRTOS/README.c": "",
	})

	cfg := config.DefaultConfig()
	cfg.Analysis.Include = []string{"Core/**", "Drivers/**/*.h"}

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(t, tmpDir, result)
	want := []string{"Core/Src/main.c", "Core/Src/deep/irq.c", "Drivers/HAL/stm32f4xx_hal.h"}
	if len(found) != len(want) {
		t.Errorf("ScanDir() = %v, want %v", found, want)
	}
	for _, name := range want {
		if !found[name] {
			t.Errorf("File %s was not found", name)
		}
	}
}

func TestFilter(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeTree(t, tmpDir, map[string]string{
		".gitignore": "generated/\n*_gen.c\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"Drivers/CMSIS/"}
	cfg.Analysis.Include = []string{"Core/**", "Drivers/**"}

	keep := NewScanner(cfg).Filter(filepath.Join(tmpDir, "Core"))
	tests := []struct {
		path string
		want bool
	}{
		{"Core/Src/main.c", true},
		{"Core/Src/table_gen.c", false},
		{"Core/generated/regs.c", false},
		{"Core/Src/notes.md", false},
		{"Drivers/HAL/stm32f4xx_hal.c", true},
		{"Drivers/CMSIS/core_cm4.h", false},
		{"Middlewares/FreeRTOS/tasks.c", false},
		{"build/out.c", false},
	}
	for _, tt := range tests {
		if got := keep(tt.path); got != tt.want {
			t.Errorf("Filter(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"main.c": "", "notes.txt": ""})

	s := NewScanner(nil)

	ok, err := s.ScanFile(filepath.Join(tmpDir, "main.c"))
	if err != nil || !ok {
		t.Errorf("ScanFile(main.c) = %v, %v; want true, nil", ok, err)
	}

	ok, err = s.ScanFile(filepath.Join(tmpDir, "notes.txt"))
	if err != nil || ok {
		t.Errorf("ScanFile(notes.txt) = %v, %v; want false, nil", ok, err)
	}

	ok, err = s.ScanFile(tmpDir)
	if err != nil || ok {
		t.Errorf("ScanFile(dir) = %v, %v; want false, nil", ok, err)
	}
}

func TestScanFileNonExistent(t *testing.T) {
	s := NewScanner(nil)
	if _, err := s.ScanFile("/nonexistent/file.c"); err == nil {
		t.Error("ScanFile() should return error for non-existent file")
	}
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".gitignore":      "generated/\n*.bak.c\n",
		"main.c":          "",
		"old.bak.c":       "",
		"generated/gen.c": "",
		"src/app.c":       "",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(t, tmpDir, result)
	if len(found) != 2 || !found["main.c"] || !found["src/app.c"] {
		t.Errorf("ScanDir() = %v, want main.c and src/app.c", found)
	}
}

func TestScanDirGitignoreFromRepositoryRoot(t *testing.T) {
	repo := t.TempDir()
	if err := os.Mkdir(filepath.Join(repo, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeTree(t, repo, map[string]string{
		".gitignore":              "firmware/out/\n",
		"firmware/main.c":         "",
		"firmware/out/objects.c":  "",
		"firmware/drivers/uart.c": "",
	})

	root := filepath.Join(repo, "firmware")
	result, err := NewScanner(nil).ScanDir(root)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(t, root, result)
	if len(found) != 2 || found["out/objects.c"] {
		t.Errorf("ScanDir() = %v, want repository .gitignore applied", found)
	}
}

func TestScanDirDisabledGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".gitignore":     "ignored/\n",
		"ignored/file.c": "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 || filepath.Base(result[0]) != "file.c" {
		t.Errorf("With gitignore disabled, should find ignored/file.c, got %v", result)
	}
}

func TestScanDirEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ScanDir() on empty dir returned %d files, want 0", len(result))
	}
}

func TestScanDirMissingRoot(t *testing.T) {
	if _, err := NewScanner(nil).ScanDir("/nonexistent/firmware"); err == nil {
		t.Error("ScanDir() should fail for a missing root")
	}
}

func TestIsWithinRoot(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"same path", tmpDir, tmpDir, true},
		{"child path", filepath.Join(tmpDir, "subdir", "file.c"), tmpDir, true},
		{"path outside root", "/some/other/path", tmpDir, false},
		{"parent path", filepath.Dir(tmpDir), tmpDir, false},
		{"similar prefix but different dir", tmpDir + "2/file.c", tmpDir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isWithinRoot(tt.path, tt.root)
			if got != tt.want {
				t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
			}
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if got := findGitRoot(tmpDir); got != "" {
		t.Errorf("findGitRoot() on non-git dir should return empty string, got %q", got)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	if got := findGitRoot(tmpDir); got != tmpDir {
		t.Errorf("findGitRoot() should return %q, got %q", tmpDir, got)
	}

	subDir := filepath.Join(tmpDir, "Core", "Src")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if got := findGitRoot(subDir); got != tmpDir {
		t.Errorf("findGitRoot() from subdir should return %q, got %q", tmpDir, got)
	}
}

func TestScanDirWithUnresolvableSymlink(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Symlink("/nonexistent/path/file.c", filepath.Join(tmpDir, "dangling.c")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	writeTree(t, tmpDir, map[string]string{"real.c": ""})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ScanDir() should find 1 file (skipping dangling symlink), got %v", result)
	}
}

func TestScanDirWithSymlinkOutsideRoot(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"outside.c": ""})

	if err := os.Symlink(filepath.Join(outside, "outside.c"), filepath.Join(tmpDir, "linked.c")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	writeTree(t, tmpDir, map[string]string{"inside.c": ""})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	found := relSet(t, tmpDir, result)
	if found["linked.c"] || !found["inside.c"] {
		t.Errorf("ScanDir() should not follow symlinks outside the root, got %v", found)
	}
}
