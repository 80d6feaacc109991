package analyzer

import (
	"reflect"
	"testing"
)

func TestTokenizer_FoldsPlurals(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("Engineers build systems in clusters")
	want := []string{"engineer", "build", "system", "cluster"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_WithoutFolding(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("Engineers build systems")
	want := []string{"engineers", "build", "systems"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_KeepsTechnologyNames(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("Skills: C++, C#, Node.js and Go.")
	want := []string{"skill", "c++", "c#", "node.js", "go"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("seeking the backend engineer")
	want := []string{"backend", "engineer"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("a I go x")
	if !reflect.DeepEqual(tokens, []string{"go"}) {
		t.Errorf("expected [go], got %v", tokens)
	}
}

func TestTokenizer_KeepsAcronymPlurals(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("aws kubernetes status")
	want := []string{"aws", "kubernetes", "status"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}
