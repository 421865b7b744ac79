package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/mcuscope/internal/cache"
	"github.com/panbanda/mcuscope/pkg/config"
	"github.com/panbanda/mcuscope/pkg/models"
)

var blinky = map[string]string{
	"main.c":         "#include \"stm32f4xx_hal.h\"\n\nint main(void) { HAL_Init(); GPIO_Toggle(); return 0; }\n",
	"gpio.c":         "#include \"gpio.h\"\n\nvoid GPIO_Toggle(void) { HAL_GPIO_WritePin(GPIOA, GPIO_PIN_5, GPIO_PIN_SET); }\n",
	"hal.c":          "void HAL_Init(void) {}\n",
	"README.md":      "# blinky\n",
	"build/gen.c":    "void generated(void) {}\n",
	"Drivers/uart.c": "void uart_send(void) { HAL_UART_Transmit(0, 0, 0, 0); }\n",
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	return abs
}

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return New(append([]Option{WithConfig(config.DefaultConfig())}, opts...)...)
}

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	svc := New(WithConfig(cfg))
	assert.Same(t, cfg, svc.Config())
	assert.Nil(t, svc.cache)
	assert.NotNil(t, svc.logger)
}

func TestAnalyzeDirectory(t *testing.T) {
	dir := writeTree(t, blinky)

	res, err := newService(t).Analyze(context.Background(), Options{Paths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, dir, res.Root)
	assert.Equal(t, []string{
		filepath.Join(dir, "Drivers", "uart.c"),
		filepath.Join(dir, "gpio.c"),
		filepath.Join(dir, "hal.c"),
		filepath.Join(dir, "main.c"),
	}, res.Files)
	assert.False(t, res.FromCache)

	assert.True(t, res.EntryFound)
	assert.Equal(t, []string{"GPIO_Toggle", "HAL_Init", "main", "uart_send"}, res.Functions.Names())
	assert.Equal(t, "Drivers/uart.c", res.Functions["uart_send"].File)
	assert.False(t, res.IsReachable("uart_send"))
	assert.Equal(t, []string{"GPIO"}, res.EnabledInterfaces())
	assert.Equal(t, 4, res.FileStats.Parsed)
}

func TestAnalyzeSingleFile(t *testing.T) {
	dir := writeTree(t, blinky)

	res, err := newService(t).Analyze(context.Background(), Options{
		Paths: []string{filepath.Join(dir, "main.c"), filepath.Join(dir, "README.md"), filepath.Join(dir, "main.c")},
	})
	require.NoError(t, err)

	assert.Equal(t, dir, res.Root)
	assert.Equal(t, []string{filepath.Join(dir, "main.c")}, res.Files)
	assert.Equal(t, "main.c", res.Functions["main"].File)
	assert.Equal(t, models.EvidenceCallGraph, res.InterfaceEvidence)
}

func TestAnalyzeMissingPath(t *testing.T) {
	_, err := newService(t).Analyze(context.Background(), Options{
		Paths: []string{filepath.Join(t.TempDir(), "nope")},
	})
	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "invalid path")
}

func TestAnalyzeNoSources(t *testing.T) {
	dir := writeTree(t, map[string]string{"README.md": "docs\n"})

	res, err := newService(t).Analyze(context.Background(), Options{Paths: []string{dir}})
	require.NoError(t, err)

	assert.Empty(t, res.Files)
	assert.Equal(t, "regex", res.Backend)
	assert.Equal(t, "main", res.EntryPoint)
	assert.False(t, res.EntryFound)
	assert.Zero(t, res.FunctionStats.Total)
}

func TestAnalyzeOverrides(t *testing.T) {
	dir := writeTree(t, blinky)
	chip := &models.ChipInfo{Device: "STM32F407VG"}

	res, err := newService(t).Analyze(context.Background(), Options{
		Paths:      []string{dir},
		EntryPoint: "GPIO_Toggle",
		CallDepth:  1,
		Backend:    "treesitter",
		Chip:       chip,
	})
	require.NoError(t, err)

	assert.Equal(t, "treesitter", res.Backend)
	assert.Equal(t, "GPIO_Toggle", res.EntryPoint)
	assert.Equal(t, []string{"GPIO_Toggle"}, res.Reachable.Sorted())
	assert.Equal(t, 1, res.CallTree.MaxDepth)
	require.NotNil(t, res.Chip)
	assert.Equal(t, "STM32F407VG", res.Chip.Device)
}

func TestAnalyzeUnknownBackend(t *testing.T) {
	_, err := newService(t).Analyze(context.Background(), Options{Paths: []string{t.TempDir()}, Backend: "clang"})
	assert.ErrorContains(t, err, "unknown extraction backend")
}

func TestAnalyzeInterfaceOverrides(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.c": "int main(void) { LED_On(); return 0; }\n",
	})
	cfg := config.DefaultConfig()
	cfg.Interfaces.Patterns = map[string][]string{"LED": {"LED_"}}

	res, err := New(WithConfig(cfg)).Analyze(context.Background(), Options{Paths: []string{dir}})
	require.NoError(t, err)

	require.Contains(t, res.Interfaces, "LED")
	assert.True(t, res.IsInterfaceUsed("LED"))
	assert.Equal(t, 1, res.Interfaces["LED"].CallCount)
}

func TestAnalyzeCache(t *testing.T) {
	dir := writeTree(t, blinky)
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache"), 24*time.Hour)
	require.NoError(t, err)
	svc := newService(t, WithCache(c))
	ctx := context.Background()

	first, err := svc.Analyze(ctx, Options{Paths: []string{dir}})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := svc.Analyze(ctx, Options{Paths: []string{dir}})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.FunctionStats, second.FunctionStats)
	assert.Equal(t, first.Reachable.Sorted(), second.Reachable.Sorted())
	assert.Equal(t, first.EnabledInterfaces(), second.EnabledInterfaces())
	assert.Equal(t, first.Libraries[0].HeaderFiles.Sorted(), second.Libraries[0].HeaderFiles.Sorted())
	assert.Equal(t, first.Files, second.Files)

	other, err := svc.Analyze(ctx, Options{Paths: []string{dir}, CallDepth: 2})
	require.NoError(t, err)
	assert.False(t, other.FromCache, "settings are part of the key")

	skipped, err := svc.Analyze(ctx, Options{Paths: []string{dir}, NoCache: true})
	require.NoError(t, err)
	assert.False(t, skipped.FromCache)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hal.c"), []byte("void HAL_Init(void) { SysTick_Config(1); }\n"), 0o644))
	changed, err := svc.Analyze(ctx, Options{Paths: []string{dir}, CallDepth: 2})
	require.NoError(t, err)
	assert.False(t, changed.FromCache, "edited content invalidates the entry")
	assert.True(t, changed.IsInterfaceUsed("SYSTICK"))
}

func TestAnalyzeProgress(t *testing.T) {
	dir := writeTree(t, blinky)
	var (
		mu          sync.Mutex
		last, total int
	)

	_, err := newService(t).Analyze(context.Background(), Options{
		Paths: []string{dir},
		OnProgress: func(current, tot int, _ string) {
			mu.Lock()
			defer mu.Unlock()
			last = max(last, current)
			total = max(total, tot)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, total, "two phases over four files")
	assert.Equal(t, 8, last)
}

func TestAnalyzeCanceled(t *testing.T) {
	dir := writeTree(t, blinky)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(t).Analyze(ctx, Options{Paths: []string{dir}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeRevision(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.c": blinky["main.c"],
		"gpio.c": blinky["gpio.c"],
		"hal.c":  blinky["hal.c"],

		"build/gen.c":    blinky["build/gen.c"],
		"Drivers/uart.c": blinky["Drivers/uart.c"],
	})
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for _, f := range []string{"main.c", "gpio.c", "hal.c", "build/gen.c", "Drivers/uart.c"} {
		_, err := wt.Add(f)
		require.NoError(t, err)
	}
	hash, err := wt.Commit("initial firmware", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	// The working copy drifts from the commit.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), []byte("int main(void) { return 0; }\n"), 0o644))

	// Include globs and excluded directories apply to the committed tree too.
	cfg := config.DefaultConfig()
	cfg.Analysis.Include = []string{"*.c"}
	res, err := newService(t, WithConfig(cfg)).Analyze(context.Background(), Options{Paths: []string{dir}, Revision: "HEAD"})
	require.NoError(t, err)

	assert.Equal(t, hash.String(), res.Revision)
	assert.Equal(t, []string{"gpio.c", "hal.c", "main.c"}, res.Files)
	assert.Equal(t, []string{"GPIO_Toggle", "HAL_Init"}, res.Callees("main"))
	assert.True(t, res.IsInterfaceUsed("GPIO"))

	working, err := newService(t).Analyze(context.Background(), Options{Paths: []string{dir}})
	require.NoError(t, err)
	assert.Empty(t, working.Callees("main"))
}

func TestAnalyzeBadRevision(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.c": "int main(void) { return 0; }\n"})
	_, err := newService(t).Analyze(context.Background(), Options{Paths: []string{dir}, Revision: "HEAD"})

	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, dir, scanErr.Root)
}

func TestErrorsUnwrap(t *testing.T) {
	base := errors.New("denied")
	assert.ErrorIs(t, &PathError{Path: "x", Err: base}, base)
	assert.ErrorIs(t, &ScanError{Root: "x", Err: base}, base)
	assert.Equal(t, "scan x: denied", (&ScanError{Root: "x", Err: base}).Error())
}
