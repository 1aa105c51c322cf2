package ingest

import (
	"regexp"
	"sort"
	"strings"
)

// Field identifies a logical column the enricher consumes.
type Field string

const (
	FieldFirstName  Field = "firstname"
	FieldLastName   Field = "lastname"
	FieldCompanyURL Field = "company_url"
	FieldEmail      Field = "email"
	FieldFullName   Field = "full_name"
)

// header patterns per field. The first group is exact matches scored 90,
// the rest are loose matches scored 70.
var headerPatterns = map[Field][]*regexp.Regexp{
	FieldFirstName: {
		regexp.MustCompile(`^(first|fname|firstname|first_name|given|given_name|forename)$`),
		regexp.MustCompile(`^f_?name$`),
		regexp.MustCompile(`^(prenom|nome|vorname)$`),
		regexp.MustCompile(`first`),
	},
	FieldLastName: {
		regexp.MustCompile(`^(last|lname|lastname|last_name|surname|family|family_name)$`),
		regexp.MustCompile(`^l_?name$`),
		regexp.MustCompile(`^(nom|apellido|nachname)$`),
		regexp.MustCompile(`last|surname`),
	},
	FieldCompanyURL: {
		regexp.MustCompile(`^(url|website|site|domain|company_?url|company_?website)$`),
		regexp.MustCompile(`^(web|link|homepage|www)$`),
		regexp.MustCompile(`(company|corp|business).*(url|site|web)`),
		regexp.MustCompile(`website|domain|url`),
	},
	FieldEmail: {
		regexp.MustCompile(`^(email|mail|e_?mail|email_?address)$`),
		regexp.MustCompile(`mail|email`),
	},
	FieldFullName: {
		regexp.MustCompile(`^(name|full_?name|complete_?name|contact_?name)$`),
		regexp.MustCompile(`full.*name|complete.*name`),
	},
}

// anchored reports whether a pattern is an exact header match.
func anchored(re *regexp.Regexp) bool {
	return strings.HasPrefix(re.String(), "^")
}

// Candidate is one column considered for a field.
type Candidate struct {
	Column     string `json:"column"`
	Index      int    `json:"index"`
	Score      int    `json:"score"`
	ContentTyp string `json:"content_type"`
}

// Detection is the per-field outcome of column detection.
type Detection struct {
	Column     string      `json:"column"`
	Index      int         `json:"index"`
	Confidence int         `json:"confidence"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Mapping maps each logical field to the detected source column.
// Index is -1 when the field was not found.
type Mapping map[Field]Detection

// Resolved reports whether enough columns were found to build contacts:
// a company URL plus either first+last name or a full name.
func (m Mapping) Resolved() bool {
	if m[FieldCompanyURL].Index < 0 {
		return false
	}

	if m[FieldFirstName].Index >= 0 && m[FieldLastName].Index >= 0 {
		return true
	}

	return m[FieldFullName].Index >= 0
}

const sampleSize = 50

// contentProfile summarizes what a column's values look like.
type contentProfile struct {
	typ        string
	confidence int
}

// profileColumn classifies a column by sampling its values. Mirrors the
// heuristics users expect from messy lead exports: TLD-heavy columns are
// URLs, @-heavy columns are emails, short single words are names.
func profileColumn(values []string) contentProfile {
	var samples []string

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		samples = append(samples, v)
		if len(samples) == sampleSize {
			break
		}
	}

	if len(samples) == 0 {
		return contentProfile{typ: "unknown"}
	}

	var (
		totalLen      int
		hasSpaces     int
		hasDots       int
		hasAt         int
		hasHTTP       int
		hasCommonTLDs int
		singleWords   int
		multipleWords int
	)

	tlds := []string{".com", ".org", ".net", ".io", ".co", ".gov", ".edu"}

	for _, v := range samples {
		lower := strings.ToLower(v)
		totalLen += len(v)

		if strings.Contains(v, " ") {
			hasSpaces++
		}
		if strings.Contains(v, ".") {
			hasDots++
		}
		if strings.Contains(v, "@") {
			hasAt++
		}
		if strings.HasPrefix(lower, "http") || strings.HasPrefix(lower, "www") {
			hasHTTP++
		}
		for _, tld := range tlds {
			if strings.Contains(lower, tld) {
				hasCommonTLDs++
				break
			}
		}

		switch words := len(strings.Fields(v)); {
		case words == 1:
			singleWords++
		case words > 1:
			multipleWords++
		}
	}

	total := len(samples)
	pct := func(n int) int { return n * 100 / total }
	avgLen := totalLen / total

	switch {
	// Email wins over URL: addresses contain TLDs too, so the @ check
	// must run first.
	case pct(hasAt) > 70:
		conf := pct(hasAt)
		if conf > 95 {
			conf = 95
		}
		return contentProfile{typ: "email", confidence: conf}

	case pct(hasCommonTLDs) > 60 || pct(hasHTTP) > 30 || pct(hasDots) > 70:
		conf := pct(hasCommonTLDs) + pct(hasHTTP)
		if conf > 90 {
			conf = 90
		}
		return contentProfile{typ: "url", confidence: conf}

	case pct(singleWords) > 70 && avgLen < 15 && pct(hasSpaces) < 20:
		return contentProfile{typ: "name", confidence: 70}

	case pct(multipleWords) > 50 && pct(hasSpaces) > 40 && avgLen > 8:
		return contentProfile{typ: "full_name", confidence: 75}
	}

	return contentProfile{typ: "unknown"}
}

// contentBoost maps a field to the content type that raises its score.
var contentBoost = map[Field]string{
	FieldFirstName:  "name",
	FieldLastName:   "name",
	FieldCompanyURL: "url",
	FieldEmail:      "email",
	FieldFullName:   "full_name",
}

// DetectColumns matches every header against the per-field patterns and
// cross-checks with a content sample, then picks the highest-scoring
// column per field. Ties break toward the leftmost column.
func DetectColumns(t *Table) Mapping {
	mapping := make(Mapping, len(headerPatterns))
	for field := range headerPatterns {
		mapping[field] = Detection{Index: -1}
	}

	profiles := make([]contentProfile, len(t.Headers))
	for i := range t.Headers {
		profiles[i] = profileColumn(t.Column(i))
	}

	for field, patterns := range headerPatterns {
		det := Detection{Index: -1}

		for i, header := range t.Headers {
			headerLower := strings.ToLower(strings.TrimSpace(header))

			score := 0
			for _, re := range patterns {
				if re.MatchString(headerLower) {
					if anchored(re) {
						score = 90
					} else {
						score = 70
					}
					break
				}
			}

			if profiles[i].typ == contentBoost[field] && profiles[i].confidence > score {
				score = profiles[i].confidence
			}

			if score == 0 {
				continue
			}

			det.Candidates = append(det.Candidates, Candidate{
				Column:     header,
				Index:      i,
				Score:      score,
				ContentTyp: profiles[i].typ,
			})
		}

		if len(det.Candidates) > 0 {
			sort.SliceStable(det.Candidates, func(a, b int) bool {
				return det.Candidates[a].Score > det.Candidates[b].Score
			})

			best := det.Candidates[0]
			det.Column = best.Column
			det.Index = best.Index
			det.Confidence = best.Score
		}

		mapping[field] = det
	}

	disambiguate(mapping)

	return mapping
}

// disambiguate keeps firstname and lastname from landing on the same
// column when both matched it on content alone. The lastname field falls
// back to its next-best candidate.
func disambiguate(m Mapping) {
	first := m[FieldFirstName]
	last := m[FieldLastName]

	if first.Index < 0 || first.Index != last.Index {
		return
	}

	for _, cand := range last.Candidates {
		if cand.Index == first.Index {
			continue
		}

		last.Column = cand.Column
		last.Index = cand.Index
		last.Confidence = cand.Score
		m[FieldLastName] = last

		return
	}

	last.Column = ""
	last.Index = -1
	last.Confidence = 0
	m[FieldLastName] = last
}
