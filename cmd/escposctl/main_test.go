package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProfilesCommand(t *testing.T) {
	out, err := run(t, "profiles")
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	for _, model := range []string{"default", "TM-T88V", "POS-5890"} {
		if !strings.Contains(out, model) {
			t.Errorf("profile list is missing %s:\n%s", model, out)
		}
	}

	out, err = run(t, "profiles", "TM-T88V", "-o", "json")
	if err != nil {
		t.Fatalf("profiles TM-T88V: %v", err)
	}
	if !strings.Contains(out, `"model": "TM-T88V"`) {
		t.Errorf("unexpected profile output:\n%s", out)
	}

	if _, err := run(t, "profiles", "no-such-model"); err == nil {
		t.Error("unknown model should fail")
	}
}

func TestCodePagesCommand(t *testing.T) {
	out, err := run(t, "codepages")
	if err != nil {
		t.Fatalf("codepages: %v", err)
	}
	if !strings.Contains(out, "CP437") || !strings.Contains(out, "CP1252") {
		t.Errorf("codepage list incomplete:\n%s", out)
	}
}

func TestCodePageDump(t *testing.T) {
	out, err := run(t, "codepages", "cp852")
	if err != nil {
		t.Fatalf("codepages cp852: %v", err)
	}
	if !strings.HasPrefix(out, "CP852 (ESC t 18)") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "ě") {
		t.Errorf("CP852 dump is missing ě:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 9 {
		t.Errorf("got %d lines, want 9", lines)
	}

	if _, err := run(t, "codepages", "CP9999"); err == nil {
		t.Error("unknown codepage should fail")
	}
}

func TestEncodeCommand(t *testing.T) {
	out, err := run(t, "encode", "-m", "TM-T88V", "cafě")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 segments:\n%s", len(lines), out)
	}
	if f := strings.Fields(lines[1]); len(f) != 4 || f[0] != "CP437" || f[1] != "63" {
		t.Errorf("first segment = %q", lines[1])
	}
	if f := strings.Fields(lines[2]); len(f) != 2 || f[0] != "CP852" || f[1] != "d8" {
		t.Errorf("second segment = %q", lines[2])
	}
}

func TestRenderCommand(t *testing.T) {
	doc := writeFile(t, "doc.json", []byte(`{"model":"simple","elements":[{"type":"text","text":"hi"}]}`))

	out, err := run(t, "render", doc, "-f", "hex")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := hex.DecodeString(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("output is not hex: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x1B, 0x40}) {
		t.Errorf("render should start with ESC @, got % X", data)
	}
	if !bytes.Contains(data, []byte("hi")) {
		t.Errorf("render is missing the text, got % X", data)
	}

	bin := filepath.Join(t.TempDir(), "out.bin")
	if _, err := run(t, "render", doc, "-o", bin); err != nil {
		t.Fatalf("render to file: %v", err)
	}
	written, err := os.ReadFile(bin)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(written, data) {
		t.Errorf("file output differs from hex output")
	}
}

func TestRenderRejectsBadDocument(t *testing.T) {
	doc := writeFile(t, "bad.json", []byte(`{"elements":[{"type":"nope"}]}`))
	if _, err := run(t, "render", doc); err == nil {
		t.Error("invalid document should fail")
	}
}

func TestInspectCommand(t *testing.T) {
	path := writeFile(t, "raw.bin", []byte{0x1B, 0x40, 'o', 'k'})
	out, err := run(t, "inspect", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.HasPrefix(out, "4 bytes\n") || !strings.Contains(out, "1b 40 6f 6b") {
		t.Errorf("unexpected dump:\n%s", out)
	}
}

func TestPrintToFile(t *testing.T) {
	doc := writeFile(t, "doc.json", []byte(`{"model":"simple","elements":[{"type":"textln","text":"spool"}]}`))
	target := filepath.Join(t.TempDir(), "printer.out")

	if _, err := run(t, "print", doc, "-t", "file", "--set", "path="+target); err != nil {
		t.Fatalf("print: %v", err)
	}
	written, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(written, []byte("spool")) {
		t.Errorf("printed file is missing the text, got % X", written)
	}
}
