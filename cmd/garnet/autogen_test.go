package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"garnet/internal/driver"
)

func TestAutogenOptions(t *testing.T) {
	ag, err := autogenOptions([]string{"classlist", " Subclasses ", "msgpack"})
	if err != nil {
		t.Fatal(err)
	}
	if !ag.Classlist || !ag.Subclasses || !ag.Msgpack || ag.Strval {
		t.Fatalf("unexpected options %+v", ag)
	}
	if _, err := autogenOptions([]string{"dot"}); err == nil {
		t.Fatalf("unknown artifact accepted")
	}
}

func TestWriteAutogen(t *testing.T) {
	res := &driver.AutogenOutput{
		Strval:     []string{"# ParsedFile: a.rb\n"},
		Classlist:  []string{"A", "B"},
		Subclasses: map[string][]string{"Base": {"A", "B"}},
		Msgpack:    [][]byte{{0x80}, {0x81}},
	}
	var buf bytes.Buffer
	ag := driver.AutogenOptions{Strval: true, Classlist: true, Subclasses: true}
	if err := writeAutogen(&buf, res, ag, ""); err != nil {
		t.Fatal(err)
	}
	want := "# ParsedFile: a.rb\nA\nB\nBase\n A\n B\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if err := writeAutogen(&buf, res, driver.AutogenOptions{Msgpack: true}, dir); err != nil {
		t.Fatal(err)
	}
	blob, err := os.ReadFile(filepath.Join(dir, "0001.msgpack"))
	if err != nil || !bytes.Equal(blob, []byte{0x81}) {
		t.Fatalf("record 1 = %v, %v", blob, err)
	}
}
