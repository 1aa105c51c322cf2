package enricher

import "strings"

// patternRule builds one candidate local-part from the name tokens.
// Rules that reference an absent token return "" and are skipped.
type patternRule struct {
	id    string
	build func(n Name) string
}

func initial(s string) string {
	if s == "" {
		return ""
	}
	return s[:1]
}

func require(local string, tokens ...string) string {
	for _, tok := range tokens {
		if tok == "" {
			return ""
		}
	}
	return local
}

// patternRules is the candidate rule table in priority order. Earlier
// entries match the most common corporate conventions and are probed
// first, which is what makes early stopping pay off.
var patternRules = []patternRule{
	{"f+last", func(n Name) string {
		return require(initial(n.First)+n.Last, initial(n.First), n.Last)
	}},
	{"first", func(n Name) string {
		return n.First
	}},
	{"first.last", func(n Name) string {
		return require(n.First+"."+n.Last, n.First, n.Last)
	}},
	{"last", func(n Name) string {
		return n.Last
	}},
	{"f+l", func(n Name) string {
		return require(initial(n.First)+initial(n.Last), initial(n.First), initial(n.Last))
	}},
	{"first+last", func(n Name) string {
		return require(n.First+n.Last, n.First, n.Last)
	}},
	{"first+l", func(n Name) string {
		return require(n.First+initial(n.Last), n.First, initial(n.Last))
	}},
	{"last+f", func(n Name) string {
		return require(n.Last+initial(n.First), n.Last, initial(n.First))
	}},
	{"last.f", func(n Name) string {
		return require(n.Last+"."+initial(n.First), n.Last, initial(n.First))
	}},
	{"last+first", func(n Name) string {
		return require(n.Last+n.First, n.Last, n.First)
	}},
	{"first_last", func(n Name) string {
		return require(n.First+"_"+n.Last, n.First, n.Last)
	}},
	{"f+m+l", func(n Name) string {
		return require(initial(n.First)+initial(n.Middle)+initial(n.Last),
			initial(n.First), initial(n.Middle), initial(n.Last))
	}},
	{"first.m.last", func(n Name) string {
		return require(n.First+"."+initial(n.Middle)+"."+n.Last,
			n.First, initial(n.Middle), n.Last)
	}},
	{"f+m+last", func(n Name) string {
		return require(initial(n.First)+initial(n.Middle)+n.Last,
			initial(n.First), initial(n.Middle), n.Last)
	}},
}

// GenerateCandidates produces the ordered, deduplicated candidate email
// list for a parsed name and canonical domain. Pure function: identical
// inputs always yield the identical ordered list.
func GenerateCandidates(n Name, domain string) []string {
	if domain == "" {
		return nil
	}

	seen := make(map[string]struct{}, len(patternRules))

	var candidates []string

	for _, rule := range patternRules {
		local := rule.build(n)
		if local == "" {
			continue
		}

		if _, ok := seen[local]; ok {
			continue
		}

		seen[local] = struct{}{}
		candidates = append(candidates, local+"@"+domain)
	}

	return candidates
}

// PatternIDs returns the rule identifiers in priority order, mainly for
// diagnostics and tests.
func PatternIDs() []string {
	ids := make([]string, 0, len(patternRules))
	for _, rule := range patternRules {
		ids = append(ids, rule.id)
	}

	return ids
}

// CandidateLocal returns the local-part of a generated candidate.
func CandidateLocal(email string) string {
	if idx := strings.Index(email, "@"); idx >= 0 {
		return email[:idx]
	}

	return email
}
