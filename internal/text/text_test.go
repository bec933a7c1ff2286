package text

import (
	"strings"
	"testing"
	"unicode"

	"github.com/ppiankov/brevis/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Article(t *testing.T) {
	n := NewNormalizer()

	got := n.Article(model.Article{Title: "Cat 123!", Content: "runs fast."})
	assert.Equal(t, "cat runs fast", got)
}

func TestNormalizer_EmptyFields(t *testing.T) {
	n := NewNormalizer()

	assert.Equal(t, "", n.Article(model.Article{}))
	assert.Equal(t, "only title", n.Article(model.Article{Title: "Only Title"}))
	assert.Equal(t, "only content", n.Article(model.Article{Content: "Only content"}))
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Hello,\tWorld!\n\nNew   line", "hello world new line"},
		{"2024 was the year", "was the year"},
		{"snake_case stays", "snake_case stays"},
		{"e-mail & co.", "email co"},
		{"Café DÉJÀ vu", "café déjà vu"},
		{"a1b2c3", "abc"},
		{"!!! ??? ...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizer_Properties(t *testing.T) {
	n := NewNormalizer()
	inputs := []string{
		"Cat 123! runs fast.",
		"  Leading and trailing  ",
		"Mixed non-breaking spaces 42",
		"İstanbul ŞEHİR",
		"Ⅻ chapters, ½ done",
		"tabs\t\tand\r\nnewlines",
		"١٢٣ arabic-indic digits",
	}

	for _, in := range inputs {
		out := n.Normalize(in)
		for _, r := range out {
			if unicode.IsDigit(r) {
				t.Errorf("Normalize(%q) = %q contains digit %q", in, out, r)
			}
		}
		if strings.Contains(out, "  ") {
			t.Errorf("Normalize(%q) = %q contains consecutive spaces", in, out)
		}
		if out != strings.TrimSpace(out) {
			t.Errorf("Normalize(%q) = %q has surrounding space", in, out)
		}
		if again := n.Normalize(out); again != out {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, out, again)
		}
	}
}

func TestNormalizer_Stopwords(t *testing.T) {
	n := NewNormalizer(WithStopwords())

	got := n.Article(model.Article{Title: "The Cat", Content: "and the dog don't run."})
	assert.Equal(t, "cat dog run", got)
	assert.Equal(t, got, n.Normalize(got))
}

func TestSegmenter_Words(t *testing.T) {
	s := NewSegmenter()

	assert.Equal(t, []string{"a", "b", "a"}, s.Words("a b a"))
	assert.Equal(t, []string{"cat", "runs", "fast"}, s.Words("cat runs fast"))
	assert.Empty(t, s.Words(""))
	assert.Empty(t, s.Words("   \t "))
	assert.Equal(t, []string{"Hello", "world"}, s.Words("Hello, world!"))
}

func TestSegmenter_Sentences(t *testing.T) {
	s := NewSegmenter()

	got := s.Sentences("One fish. Two fish! Red fish? Blue fish.")
	assert.Equal(t, []string{"One fish.", "Two fish!", "Red fish?", "Blue fish."}, got)
	assert.Empty(t, s.Sentences("  "))
}
