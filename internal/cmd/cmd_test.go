package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/model"
)

const parserXML = `<Format version="4">
  <Event id="1" numberOfArguments="1" format="boot stage {0}"/>
  <Event id="2" numberOfArguments="1" format="sensor fault 0x{0:x}"/>
  <File id="1" Name="boot.c"/>
  <Thread id="0" Name="Idle"/>
</Format>`

const definitionsXML = `<Format>
  <Source id="0" Name="HKR">
    <File Path="parser.xml"/>
    <Module id="2" verbosity="ERROR|FATAL"/>
  </Source>
</Format>`

// execute runs the command tree with fresh flags and configuration.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	cfgFile = ""

	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func writeFixtures(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	files := map[string]string{"parser.xml": parserXML, "defs.xml": definitionsXML}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	capture := []byte{0xB4, 0, 0, 0} // command-response header
	for _, r := range []model.RawRecord{
		{EventID: 1, FileID: 1, Severity: 3, GroupID: 1, P1: 1, Timestamp32: 100},
		{EventID: 2, FileID: 1, Severity: 5, GroupID: 2, P1: 0xC, Timestamp32: 200},
		{EventID: 1, FileID: 1, Severity: 3, GroupID: 2, P1: 2, Timestamp32: 300},
	} {
		capture = append(capture, fwlogs.Encode(r)...)
	}
	if err := os.WriteFile(filepath.Join(dir, "fw.bin"), capture, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func decodeJSON(t *testing.T, out string) []model.LogLine {
	t.Helper()
	var lines []model.LogLine
	for _, raw := range strings.Split(strings.TrimSpace(out), "\n") {
		if raw == "" {
			continue
		}
		var l model.LogLine
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			t.Fatalf("invalid JSON line %q: %v", raw, err)
		}
		lines = append(lines, l)
	}
	return lines
}

func TestDecodeCommand(t *testing.T) {
	dir := writeFixtures(t)

	out, err := execute(t, "decode",
		"--schema", filepath.Join(dir, "parser.xml"),
		"--header-size", "4",
		"--output", "json",
		filepath.Join(dir, "fw.bin"))
	if err != nil {
		t.Fatal(err)
	}

	lines := decodeJSON(t, out)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if lines[0].Message != "boot stage 1" {
		t.Errorf("expected 'boot stage 1', got %q", lines[0].Message)
	}
	if lines[1].Message != "sensor fault 0x0c" {
		t.Errorf("expected 'sensor fault 0x0c', got %q", lines[1].Message)
	}
	if lines[2].Timestamp != 300 || lines[0].Delta != 0 {
		t.Errorf("unexpected timestamps: %+v", lines)
	}
}

func TestDecodeWithSourceVerbosity(t *testing.T) {
	dir := writeFixtures(t)

	// Module 2 only shows ERROR and FATAL, so its INFO line is hidden.
	out, err := execute(t, "decode",
		"--schema", filepath.Join(dir, "defs.xml"),
		"--source", "0",
		"--header-size", "4",
		"-o", "json",
		filepath.Join(dir, "fw.bin"))
	if err != nil {
		t.Fatal(err)
	}

	lines := decodeJSON(t, out)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
	}
	if lines[1].Severity != 5 {
		t.Errorf("expected the ERROR line to pass, got severity %d", lines[1].Severity)
	}
}

func TestDecodeLevelFilter(t *testing.T) {
	dir := writeFixtures(t)

	out, err := execute(t, "decode",
		"-s", filepath.Join(dir, "parser.xml"),
		"--header-size", "4",
		"--level", "error",
		filepath.Join(dir, "fw.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "boot stage") || !strings.Contains(out, "sensor fault 0x0c") {
		t.Errorf("expected only the error line, got:\n%s", out)
	}
}

func TestDecodeInvalidSchema(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.xml")
	if err := os.WriteFile(bad, []byte(`<Format><Event id="1" format="x"/></Format>`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "decode", "-s", bad, filepath.Join(dir, "fw.bin")); err == nil {
		t.Error("expected error for event without numberOfArguments")
	}
}

func TestSchemaCommand(t *testing.T) {
	dir := writeFixtures(t)

	out, err := execute(t, "schema", filepath.Join(dir, "defs.xml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"version: (none)", "0 HKR parser=parser.xml", "module 2 verbosity ERROR|FATAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	out, err = execute(t, "schema", "-o", "json", filepath.Join(dir, "parser.xml"))
	if err != nil {
		t.Fatal(err)
	}
	var report schemaReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if report.Version != "4" || report.Counts["Event"] != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestVerbosityNames(t *testing.T) {
	cases := map[int]string{0: "NONE", 0x4: "INFO", 0x30: "ERROR|FATAL", 0x3F: "VERBOSE|DEBUG|INFO|WARNING|ERROR|FATAL"}
	for mask, want := range cases {
		if got := verbosityNames(mask); got != want {
			t.Errorf("verbosityNames(%#x) = %q, want %q", mask, got, want)
		}
	}
}
