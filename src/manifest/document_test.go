package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# deployed versions
platform:
  api:
    gitlab: false
    drone_repo: UKHomeOffice/cop/api
    tag: abc123
  workflow:
    engine:
      gitlab: true
      drone_repo: cop/engine
      tag: "000111"
owner: ops
ui:
  gitlab: false
  drone_repo: UKHomeOffice/ui
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	leaves := doc.Leaves()
	if len(leaves) != 3 {
		t.Fatalf("Leaves() = %d, want 3", len(leaves))
	}

	want := []Leaf{
		{GitLab: false, Repo: "UKHomeOffice/cop/api", Tag: "abc123"},
		{GitLab: true, Repo: "cop/engine", Tag: "000111"},
		{GitLab: false, Repo: "UKHomeOffice/ui"},
	}
	for i, w := range want {
		got := leaves[i]
		if got.GitLab != w.GitLab || got.Repo != w.Repo || got.Tag != w.Tag {
			t.Errorf("leaf %d = %+v, want %+v", i, *got, w)
		}
	}

	if len(doc.Root) != 2 || doc.Root[0].Key != "platform" || doc.Root[1].Key != "ui" {
		t.Errorf("scalar top-level entries should be skipped, got %d root nodes", len(doc.Root))
	}
}

func TestParse_LeafIsTerminal(t *testing.T) {
	doc, err := Parse([]byte(`
svc:
  gitlab: true
  drone_repo: a/b
  nested:
    gitlab: false
    drone_repo: c/d
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if leaves := doc.Leaves(); len(leaves) != 1 || leaves[0].Repo != "a/b" {
		t.Errorf("a marked entry must not be recursed into, got %d leaves", len(leaves))
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "a: [unclosed"},
		{"empty", ""},
		{"top-level list", "- a\n- b\n"},
		{"marker not bool", "x:\n  gitlab: maybe\n  drone_repo: a/b\n"},
		{"marker null", "x:\n  gitlab:\n  drone_repo: a/b\n"},
		{"marker tilde", "x:\n  gitlab: ~\n  drone_repo: a/b\n"},
		{"marker quoted", "x:\n  gitlab: \"true\"\n  drone_repo: a/b\n"},
		{"missing repo", "x:\n  gitlab: true\n"},
		{"tag mapping", "x:\n  gitlab: true\n  drone_repo: a/b\n  tag:\n    k: v\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("Parse() error = %v, want ErrInvalidManifest", err)
			}
		})
	}
}

func TestSetTag_PreservesLayout(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	leaves := doc.Leaves()
	leaves[0].SetTag("deadbeef")
	leaves[2].SetTag("123456")

	out, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	text := string(out)

	for _, want := range []string{"# deployed versions", "tag: deadbeef", "owner: ops", `tag: "123456"`} {
		if !strings.Contains(text, want) {
			t.Errorf("encoded manifest missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "platform:") > strings.Index(text, "ui:") {
		t.Errorf("key order not preserved:\n%s", text)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse() error = %v", err)
	}
	if got := again.Leaves()[2].Tag; got != "123456" {
		t.Errorf("numeric-looking tag round-tripped as %q", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.yml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Leaves()) != 3 {
		t.Errorf("Load() found %d leaves, want 3", len(doc.Leaves()))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestDiff(t *testing.T) {
	before := []byte("a:\n  tag: old\n")
	after := []byte("a:\n  tag: new\n")

	d, err := Diff("local.yml", before, after)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	for _, want := range []string{"--- local.yml", "-  tag: old", "+  tag: new"} {
		if !strings.Contains(d, want) {
			t.Errorf("diff missing %q:\n%s", want, d)
		}
	}

	if d, _ := Diff("local.yml", before, before); d != "" {
		t.Errorf("Diff() of equal input = %q, want empty", d)
	}
}
