package shell

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinixos/tinix/internal/config"
	"github.com/tinixos/tinix/internal/kernel"
	"github.com/tinixos/tinix/internal/klog"
)

// runSession boots a kernel on hostFs and feeds it one shell session.
// Returns stdout and stderr separately; the split is part of the
// external contract.
func runSession(t *testing.T, hostFs afero.Fs, commands ...string) (string, string) {
	t.Helper()
	var out, errBuf bytes.Buffer

	k, err := kernel.Boot(config.Default(), hostFs, klog.New(&errBuf))
	require.NoError(t, err)
	defer k.Shutdown()

	in := strings.NewReader(strings.Join(commands, "\n") + "\n")
	sh := New(k, hostFs, in, &out)
	require.NoError(t, sh.Run())

	return out.String(), errBuf.String()
}

func TestHelpGoesToStdoutPromptToStderr(t *testing.T) {
	out, errOut := runSession(t, afero.NewMemMapFs(), "help", "exit")

	assert.Contains(t, out, "Available commands:")
	assert.Contains(t, out, "=== File System Commands ===")
	assert.NotContains(t, out, "tinix>")
	assert.Contains(t, errOut, "Tinix OS Shell")
	assert.Contains(t, errOut, "tinix>")
}

func TestPathNavigation(t *testing.T) {
	out, _ := runSession(t, afero.NewMemMapFs(),
		"format", "mount",
		"mkdir /a", "mkdir /a/b",
		"cd /a/b", "pwd",
		"cd ..", "pwd",
		"cd .", "pwd",
		"exit",
	)
	assert.Equal(t, "/a/b\n/a\n/a\n", out)
}

func TestEchoCatRoundTrip(t *testing.T) {
	out, _ := runSession(t, afero.NewMemMapFs(),
		"format", "mount",
		"mkdir /a", "cd /a",
		"touch f", "echo hello > f",
		"cat /a/f",
		"exit",
	)
	assert.Equal(t, "hello\n", out)
}

func TestPersistenceAcrossSessions(t *testing.T) {
	hostFs := afero.NewMemMapFs()

	_, _ = runSession(t, hostFs,
		"format", "mount", "mkdir /a", "cd /a", "touch f", "echo hello > f", "exit")

	out, _ := runSession(t, hostFs, "mount", "cat /a/f", "exit")
	assert.Equal(t, "hello\n", out)
}

func TestRemoveAndRecreate(t *testing.T) {
	out, _ := runSession(t, afero.NewMemMapFs(),
		"format", "mount",
		"touch a", "echo one > a",
		"rm a",
		"touch a", "echo two > a",
		"cat a",
		"exit",
	)
	assert.Equal(t, "two\n", out)
}

func TestLsFormat(t *testing.T) {
	out, _ := runSession(t, afero.NewMemMapFs(),
		"format", "mount",
		"mkdir /t", "cd /t", "touch keep", "echo keepme > keep",
		"ls .",
		"exit",
	)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Contents of .:", lines[0])
	assert.Regexp(t, `^  d \. \(inode=\d+, size=96\)$`, lines[1])
	assert.Regexp(t, `^  d \.\. \(inode=\d+, size=96\)$`, lines[2])
	assert.Regexp(t, `^  - keep \(inode=\d+, size=7\)$`, lines[3])
}

func TestRootDotEntriesPointAtInodeZero(t *testing.T) {
	out, _ := runSession(t, afero.NewMemMapFs(),
		"format", "mount", "mkdir /a", "ls /", "exit")
	assert.Regexp(t, `  d \. \(inode=0, size=\d+\)`, out)
	assert.Regexp(t, `  d \.\. \(inode=0, size=\d+\)`, out)
}

// parseSnapshots pulls (free blocks, free inodes) pairs out of the
// fsinfo superblock frames on stderr, ignoring free counts logged
// outside them (mount reports the same numbers in another format).
func parseSnapshots(t *testing.T, errOut string) [][2]int {
	t.Helper()
	var snaps [][2]int
	blockRe := regexp.MustCompile(`Free blocks: (\d+)`)
	inodeRe := regexp.MustCompile(`Free inodes: (\d+)`)

	inFrame := false
	var blocks, inodes int
	for _, line := range strings.Split(errOut, "\n") {
		switch {
		case strings.Contains(line, "========== SuperBlock =========="):
			inFrame = true
		case inFrame && strings.Contains(line, "==============================="):
			snaps = append(snaps, [2]int{blocks, inodes})
			inFrame = false
		case inFrame:
			if m := blockRe.FindStringSubmatch(line); m != nil {
				fmt.Sscanf(m[1], "%d", &blocks)
			}
			if m := inodeRe.FindStringSubmatch(line); m != nil {
				fmt.Sscanf(m[1], "%d", &inodes)
			}
		}
	}
	return snaps
}

func TestSuperblockAccountingThroughShell(t *testing.T) {
	cfg := config.Default()
	d := int(cfg.MaxDataBlocks())
	i := 128

	_, errOut := runSession(t, afero.NewMemMapFs(),
		"format", "fsinfo",
		"mkdir /a", "fsinfo",
		"touch /a/f", "fsinfo",
		"echo hi > /a/f", "fsinfo",
		"rm /a/f", "fsinfo",
		"exit",
	)

	want := [][2]int{
		{d - 1, i - 1},
		{d - 2, i - 2},
		{d - 2, i - 3},
		{d - 3, i - 3},
		{d - 2, i - 2},
	}
	assert.Equal(t, want, parseSnapshots(t, errOut))
	assert.Contains(t, errOut, "========== SuperBlock ==========")
	assert.Contains(t, errOut, "===============================")
}

func TestScriptReplay(t *testing.T) {
	hostFs := afero.NewMemMapFs()
	script := strings.Join([]string{
		"format", "mount", "mkdir /s", "cd /s", "touch f", "echo hi > f", "cat f",
	}, "\n") + "\n"
	require.NoError(t, afero.WriteFile(hostFs, "t.tsh", []byte(script), 0o644))

	out, errOut := runSession(t, hostFs, "script t.tsh", "exit")
	assert.Equal(t, "hi\n", out)
	assert.Contains(t, errOut, ">>> mkdir /s")
	assert.Contains(t, errOut, "Script execution completed.")
}

func TestProcessScenarioThroughShell(t *testing.T) {
	hostFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(hostFs, "hold.pc",
		[]byte("DR 0\nS 3\nDD 0\nC\n"), 0o644))
	require.NoError(t, afero.WriteFile(hostFs, "wait.pc",
		[]byte("DR 0\nC\nDD 0\nC\n"), 0o644))

	out, errOut := runSession(t, hostFs,
		"format", "mount",
		"create -f hold.pc",
		"create -f wait.pc",
		"tick 20",
		"dev",
		"exit",
	)

	assert.Empty(t, out, "process workload must not touch stdout")

	re := regexp.MustCompile(`Created process PID: (\d+) from hold\.pc`)
	m := re.FindStringSubmatch(errOut)
	require.NotNil(t, m)

	assert.Contains(t, errOut, "[Dev] Granted dev=0 (disk)")
	assert.Contains(t, errOut, "[Dev] Wakeup")
	assert.Contains(t, errOut, "dev=0 name=disk owner=free wait=[]")
	assert.Regexp(t, `\[Tick\] Process \d+ completed`, errOut)
}

func TestUnknownCommandAndBadArgs(t *testing.T) {
	out, errOut := runSession(t, afero.NewMemMapFs(),
		"frobnicate",
		"mkdir",
		"tick abc",
		"exit",
	)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Unknown command: frobnicate")
	assert.Contains(t, errOut, "Usage: mkdir <dirname>")
	assert.Contains(t, errOut, "Usage: tick [n]")
}

func TestEofEndsSession(t *testing.T) {
	hostFs := afero.NewMemMapFs()
	var out, errBuf bytes.Buffer

	k, err := kernel.Boot(config.Default(), hostFs, klog.New(&errBuf))
	require.NoError(t, err)
	defer k.Shutdown()

	sh := New(k, hostFs, strings.NewReader("pwd\n"), &out)
	require.NoError(t, sh.Run())
	assert.Equal(t, "/\n", out.String())
}
