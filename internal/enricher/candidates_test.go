package enricher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kremlit/email-enricher/internal/enricher"
)

func TestGenerateCandidatesOrder(t *testing.T) {
	n := enricher.Name{First: "john", Last: "smith"}

	got := enricher.GenerateCandidates(n, "example.com")

	want := []string{
		"jsmith@example.com",
		"john@example.com",
		"john.smith@example.com",
		"smith@example.com",
		"js@example.com",
		"johnsmith@example.com",
		"johns@example.com",
		"smithj@example.com",
		"smith.j@example.com",
		"smithjohn@example.com",
		"john_smith@example.com",
	}

	assert.Equal(t, want, got)
}

func TestGenerateCandidatesWithMiddle(t *testing.T) {
	n := enricher.Name{First: "ann", Middle: "beth", Last: "carter"}

	got := enricher.GenerateCandidates(n, "example.com")

	want := []string{
		"acarter@example.com",
		"ann@example.com",
		"ann.carter@example.com",
		"carter@example.com",
		"ac@example.com",
		"anncarter@example.com",
		"annc@example.com",
		"cartera@example.com",
		"carter.a@example.com",
		"carterann@example.com",
		"ann_carter@example.com",
		"abc@example.com",
		"ann.b.carter@example.com",
		"abcarter@example.com",
	}

	assert.Equal(t, want, got)
	assert.Len(t, got, 14)
}

func TestGenerateCandidatesDeduplicates(t *testing.T) {
	// A single-token name makes first == last, which collapses several
	// patterns onto the same local-part.
	n := enricher.Name{First: "cher", Last: "cher"}

	got := enricher.GenerateCandidates(n, "example.com")

	want := []string{
		"ccher@example.com",
		"cher@example.com",
		"cher.cher@example.com",
		"cc@example.com",
		"chercher@example.com",
		"cherc@example.com",
		"cher.c@example.com",
		"cher_cher@example.com",
	}

	assert.Equal(t, want, got)

	seen := make(map[string]struct{})
	for _, c := range got {
		_, dup := seen[c]
		require.False(t, dup, "duplicate candidate %s", c)
		seen[c] = struct{}{}
	}
}

func TestGenerateCandidatesDeterministic(t *testing.T) {
	n := enricher.Name{First: "ann", Middle: "beth", Last: "carter"}

	first := enricher.GenerateCandidates(n, "example.com")
	second := enricher.GenerateCandidates(n, "example.com")

	assert.Equal(t, first, second)
}

func TestGenerateCandidatesEmptyDomain(t *testing.T) {
	n := enricher.Name{First: "john", Last: "smith"}

	assert.Nil(t, enricher.GenerateCandidates(n, ""))
}

func TestPatternIDs(t *testing.T) {
	ids := enricher.PatternIDs()

	assert.Len(t, ids, 14)
	assert.Equal(t, "f+last", ids[0])
	assert.Equal(t, "first_last", ids[10])
	assert.Equal(t, "f+m+last", ids[13])
}

func TestCandidateLocal(t *testing.T) {
	assert.Equal(t, "jsmith", enricher.CandidateLocal("jsmith@example.com"))
	assert.Equal(t, "noat", enricher.CandidateLocal("noat"))
}
