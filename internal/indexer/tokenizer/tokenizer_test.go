package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "sentence with periods",
			text: "The cat sat. The cat ran.",
			want: []string{"the", "cat", "sat", "the", "cat", "ran"},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
		{
			name: "only whitespace",
			text: " \t\n  ",
			want: []string{},
		},
		{
			name: "mixed whitespace",
			text: "dog\tdog\n\ndog   dog",
			want: []string{"dog", "dog", "dog", "dog"},
		},
		{
			name: "repeated edge punctuation",
			text: ",,Hello..., ..World,.",
			want: []string{"hello", "world"},
		},
		{
			name: "inner punctuation kept",
			text: "e.g. 1,000 a.b.c",
			want: []string{"e.g", "1,000", "a.b.c"},
		},
		{
			name: "other punctuation kept",
			text: "Hello! (world)",
			want: []string{"hello!", "(world)"},
		},
		{
			name: "punctuation only token",
			text: "end ... start",
			want: []string{"end", "", "start"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(tc.text))
		})
	}
}

func TestNormalizeTerm(t *testing.T) {
	require.Equal(t, "cat", NormalizeTerm("  CAT., "))
	require.Equal(t, "cat", NormalizeTerm("cat"))
	require.Equal(t, "", NormalizeTerm(".,.,"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, term := range Normalize("The QUICK, brown fox... jumped. Over,the lazy dog.") {
		require.Equal(t, term, NormalizeTerm(term))
	}
}

func BenchmarkNormalize(b *testing.B) {
	text := "Information retrieval systems form the backbone of modern search. " +
		"The inverted index maps each term to the documents containing it, along with frequencies."
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Normalize(text)
	}
}
