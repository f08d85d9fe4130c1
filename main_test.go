package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureRun(t *testing.T, args []string) (stdout, stderr string, code int) {
	t.Helper()

	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	code = run(args, outW, errW)
	outW.Close()
	errW.Close()

	outBytes, _ := io.ReadAll(outR)
	errBytes, _ := io.ReadAll(errR)
	return string(outBytes), string(errBytes), code
}

func TestRunSingleInstruction(t *testing.T) {
	stdout, _, code := captureRun(t, []string{"-c", "$p:print(value=42.0)"})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if strings.TrimSpace(stdout) != "42.0" {
		t.Fatalf("stdout = %q, want \"42.0\\n\"", stdout)
	}
}

func TestRunProgramFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.daffy")
	program := "$a:value(value=6.0)\n$b:value(value=7.0)\n$m:mul(a=$a.value,b=$b.value)\n$p:print(value=$m.result)\n"
	if err := os.WriteFile(path, []byte(program), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, code := captureRun(t, []string{path})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if strings.TrimSpace(stdout) != "42.0" {
		t.Fatalf("stdout = %q, want \"42.0\\n\"", stdout)
	}
}

func TestRunRequiresExactlyOneMode(t *testing.T) {
	_, _, code := captureRun(t, []string{})
	if code == 0 {
		t.Fatal("expected a non-zero exit code when neither -c nor FILE is given")
	}

	_, _, code = captureRun(t, []string{"-c", "$x:value(value=1)", "prog.daffy"})
	if code == 0 {
		t.Fatal("expected a non-zero exit code when both -c and FILE are given")
	}
}

func TestRunMissingFile(t *testing.T) {
	_, _, code := captureRun(t, []string{filepath.Join(t.TempDir(), "missing.daffy")})
	if code == 0 {
		t.Fatal("expected a non-zero exit code for a missing file")
	}
}
