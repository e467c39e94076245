// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package rules decides which news items are material enough to report.
package rules

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"go.astrophena.name/newswatch/cmd/newswatch/internal/feed"
)

// Ruleset holds the keyword lists driving classification. All matching is
// case-insensitive and word-boundary aware.
type Ruleset struct {
	// Material maps a category label to keywords marking an item as material.
	Material map[string][]string
	// Noise lists terms that reject an item outright, no matter what else
	// matched.
	Noise []string
	// Verbs lists verbs that satisfy the strict-mode materiality gate.
	Verbs []string
	// OfficialDomains lists source domains that satisfy the strict-mode
	// materiality gate.
	OfficialDomains []string
	// Macro lists keywords for company-independent market-moving items.
	Macro []string
	// MacroQueries lists feed queries used to fetch macro items.
	MacroQueries []string
}

// Default returns the built-in ruleset. It is used when the operator supplies
// no rules.star file.
func Default() *Ruleset {
	return &Ruleset{
		Material: map[string][]string{
			"Funding":    {"funding", "raised", "series", "seed", "round", "investment", "investor"},
			"Contracts":  {"contract", "award", "awarded", "deal", "partnership", "agreement", "orders"},
			"Regulatory": {"regulatory", "approval", "approved", "license", "licensed", "permit", "fda"},
			"Product":    {"launch", "released", "unveiled", "product", "breakthrough", "prototype"},
			"Earnings":   {"earnings", "results", "quarter", "q1", "q2", "q3", "q4", "guidance"},
		},
		Noise: []string{
			"opinion", "rumor", "rumour", "speculation", "blog", "podcast",
			"interview", "sponsored", "advertisement", "promo", "review",
			"analysis", "explainer", "preview", "expect", "expects",
			"expected", "forecast", "forecasts", "prediction",
		},
		Verbs: []string{
			"awarded", "approved", "signed", "launched", "acquired", "raised",
			"won", "secured", "completed", "filed",
		},
		OfficialDomains: []string{
			"sec.gov", "fda.gov", "ftc.gov", "fcc.gov", "justice.gov",
			"europa.eu", "prnewswire.com", "businesswire.com", "globenewswire.com",
		},
		Macro: []string{
			"rate cut", "rate hike", "interest rate", "inflation", "tariff",
			"tariffs", "gdp", "federal reserve", "recession", "stimulus",
			"unemployment",
		},
		MacroQueries: []string{
			"stock market",
			"federal reserve",
			"inflation",
		},
	}
}

// Verdict is the filter's decision about a single item.
type Verdict struct {
	Item     feed.Item
	Company  string // empty for macro items
	Category string
	Keyword  string
	Reason   string
}

// Classify decides whether an item fetched for a company is material.
//
// In strict mode (broad = false) the company name must appear in the title, a
// material keyword must appear in the title, no noise term may appear in the
// title or summary, and the title must carry a numeric token, a material verb
// or come from an official source domain. In broad mode the name and keyword
// checks extend to the summary and the last gate is skipped.
func (r *Ruleset) Classify(item feed.Item, company string, aliases []string, broad bool) (Verdict, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return Verdict{}, false
	}

	names := append([]string{company}, aliases...)
	if !anyWordMatch(title, names) {
		if !broad || !anyWordMatch(item.Summary, names) {
			return Verdict{}, false
		}
	}

	category, keyword := r.materialMatch(title)
	if keyword == "" && broad {
		category, keyword = r.materialMatch(item.Summary)
	}
	if keyword == "" {
		return Verdict{}, false
	}

	if r.noisy(title) || r.noisy(item.Summary) {
		return Verdict{}, false
	}

	if !broad && !r.materialityGate(item) {
		return Verdict{}, false
	}

	return Verdict{
		Item:     item,
		Company:  company,
		Category: category,
		Keyword:  keyword,
		Reason:   fmt.Sprintf("%s keyword %q", category, keyword),
	}, true
}

// ClassifyMacro decides whether a company-independent item is a market mover.
// Macro classification ignores the broad/strict mode.
func (r *Ruleset) ClassifyMacro(item feed.Item) (Verdict, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return Verdict{}, false
	}

	var keyword string
	for _, k := range r.Macro {
		if containsWord(title, k) {
			keyword = k
			break
		}
	}
	if keyword == "" {
		return Verdict{}, false
	}

	if r.noisy(title) || r.noisy(item.Summary) {
		return Verdict{}, false
	}

	return Verdict{
		Item:     item,
		Category: "Macro",
		Keyword:  keyword,
		Reason:   fmt.Sprintf("macro keyword %q", keyword),
	}, true
}

// materialMatch returns the first matching category and keyword, trying
// categories in alphabetical order so results don't depend on map iteration.
func (r *Ruleset) materialMatch(text string) (category, keyword string) {
	if text == "" {
		return "", ""
	}
	categories := make([]string, 0, len(r.Material))
	for c := range r.Material {
		categories = append(categories, c)
	}
	slices.Sort(categories)
	for _, c := range categories {
		for _, k := range r.Material[c] {
			if containsWord(text, k) {
				return c, k
			}
		}
	}
	return "", ""
}

func (r *Ruleset) noisy(text string) bool {
	return anyWordMatch(text, r.Noise)
}

// materialityGate is the strict-mode requirement that an item carries some
// hard signal: a number in the title, a material verb, or an official source.
func (r *Ruleset) materialityGate(item feed.Item) bool {
	if strings.ContainsAny(item.Title, "0123456789") {
		return true
	}
	if anyWordMatch(item.Title, r.Verbs) {
		return true
	}
	if item.SourceDomain == "" {
		return false
	}
	src := strings.ToLower(item.SourceDomain)
	for _, d := range r.OfficialDomains {
		if src == d || strings.HasSuffix(src, "."+d) {
			return true
		}
	}
	return false
}

func anyWordMatch(text string, needles []string) bool {
	if text == "" {
		return false
	}
	for _, n := range needles {
		if containsWord(text, n) {
			return true
		}
	}
	return false
}

// containsWord reports whether needle occurs in text on word boundaries,
// ignoring case. The boundary check prevents false positives like "signed"
// matching inside "designed".
func containsWord(text, needle string) bool {
	if needle == "" {
		return false
	}
	text = strings.ToLower(text)
	needle = strings.ToLower(needle)

	for from := 0; ; {
		i := strings.Index(text[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		from = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	for _, r := range s[i:] {
		return !isWordRune(r)
	}
	return true
}

func lastRune(s string) rune {
	var r rune
	for _, c := range s {
		r = c
	}
	return r
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
