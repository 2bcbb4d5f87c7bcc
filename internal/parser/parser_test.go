package parser

import (
	"reflect"
	"testing"

	"github.com/starford/propindex/internal/models"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\nstatus: Draft\ntags:\n  - go\n  - notes\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []models.Property{
		{Key: "status", Value: "Draft", Kind: models.KindText},
		{Key: "tags", Value: "go", Kind: models.KindText},
		{Key: "tags", Value: "notes", Kind: models.KindText},
	}
	if !reflect.DeepEqual(r.Properties, want) {
		t.Errorf("properties = %+v, want %+v", r.Properties, want)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Properties != nil {
		t.Errorf("expected no properties, got %v", r.Properties)
	}
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Properties != nil {
		t.Errorf("expected no properties on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("invalid YAML should leave the whole file as body")
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	r, _ := Parse([]byte("---\nstatus: x\nno closing\n"))
	if r.Properties != nil {
		t.Errorf("expected no properties, got %v", r.Properties)
	}
}

func TestParse_EmptyFrontmatter(t *testing.T) {
	r, _ := Parse([]byte("---\n---\nBody\n"))
	if r.Properties != nil {
		t.Errorf("expected no properties, got %v", r.Properties)
	}
	if r.Body != "Body\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_ScalarKinds(t *testing.T) {
	input := []byte(`---
done: true
forced: !!str false
quoted: "true"
count: 3
ratio: 0.5
due: 2024-01-02
empty:
tilde: ~
area: work/project
---
`)
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []models.Property{
		{Key: "done", Value: "true", Kind: models.KindBoolean},
		{Key: "forced", Value: "false", Kind: models.KindText},
		{Key: "quoted", Value: "true", Kind: models.KindText},
		{Key: "count", Value: "3", Kind: models.KindNumber},
		{Key: "ratio", Value: "0.5", Kind: models.KindNumber},
		{Key: "due", Value: "2024-01-02", Kind: models.KindDate},
		{Key: "empty"},
		{Key: "tilde"},
		{Key: "area", Value: "work/project", Kind: models.KindText},
	}
	if !reflect.DeepEqual(r.Properties, want) {
		t.Errorf("properties =\n%+v\nwant\n%+v", r.Properties, want)
	}
}

func TestParse_CollectionsAndAliases(t *testing.T) {
	input := []byte(`---
none: []
nested:
  a: 1
mixed:
  - x
  - [y]
  - {z: 1}
base: &b shared
copy: *b
---
`)
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []models.Property{
		{Key: "none", Kind: models.KindList},
		{Key: "nested", Kind: models.KindObject},
		{Key: "mixed", Value: "x", Kind: models.KindText},
		{Key: "mixed", Kind: models.KindList},
		{Key: "mixed", Kind: models.KindObject},
		{Key: "base", Value: "shared", Kind: models.KindText},
		{Key: "copy", Value: "shared", Kind: models.KindText},
	}
	if !reflect.DeepEqual(r.Properties, want) {
		t.Errorf("properties =\n%+v\nwant\n%+v", r.Properties, want)
	}
}

func TestParse_NonMappingFrontmatter(t *testing.T) {
	r, _ := Parse([]byte("---\n- a\n- b\n---\nBody\n"))
	if r.Properties != nil {
		t.Errorf("expected no properties for a list document, got %v", r.Properties)
	}
}
