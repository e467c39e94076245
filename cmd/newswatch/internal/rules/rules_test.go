// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package rules

import (
	"testing"

	"go.astrophena.name/newswatch/cmd/newswatch/internal/feed"
	"go.astrophena.name/newswatch/internal/testutil"
)

func TestContainsWord(t *testing.T) {
	cases := map[string]struct {
		text, needle string
		want         bool
	}{
		"simple match":            {"Acme awarded contract", "awarded", true},
		"case insensitive":        {"ACME AWARDED CONTRACT", "awarded", true},
		"inside another word":     {"Acme designed a rocket", "signed", false},
		"prefix of another word":  {"previewing the launch", "preview", false},
		"at start":                {"awarded to Acme", "awarded", true},
		"at end":                  {"contract awarded", "awarded", true},
		"multi-word needle":       {"Fed signals rate cut soon", "rate cut", true},
		"multi-word partial":      {"corporate cutbacks", "rate cut", false},
		"punctuation boundary":    {"Acme's $50M contract, awarded.", "awarded", true},
		"empty needle":            {"anything", "", false},
		"empty text":              {"", "awarded", false},
		"unicode boundary":        {"Acmeприз awarded", "Acmeприз", true},
		"digit breaks boundary":   {"q25 results", "q2", false},
		"digit keyword standalone": {"q2 results", "q2", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := containsWord(tc.text, tc.needle); got != tc.want {
				t.Fatalf("containsWord(%q, %q) = %v, want %v", tc.text, tc.needle, got, tc.want)
			}
		})
	}
}

func item(title, summary, domain string) feed.Item {
	return feed.Item{Title: title, Summary: summary, SourceDomain: domain}
}

func TestClassifyStrict(t *testing.T) {
	rs := Default()

	cases := map[string]struct {
		item feed.Item
		want bool
	}{
		"material with numeric and verb": {
			item: item("Acme Corp awarded $50M contract", "Defense deal confirmed.", "acme.com"),
			want: true,
		},
		"noise term rejects": {
			item: item("Analysts expect Acme to rise", "A look ahead.", "example.com"),
			want: false,
		},
		"noise in summary rejects": {
			item: item("Acme signed $1M deal", "Read our full analysis of the deal.", "acme.com"),
			want: false,
		},
		"no company match": {
			item: item("Globex awarded $50M contract", "", "globex.com"),
			want: false,
		},
		"company only in summary": {
			item: item("Defense contract awarded for $50M", "Acme won the deal.", "acme.com"),
			want: false,
		},
		"no material keyword": {
			item: item("Acme opens new office in Berlin 2026", "", "acme.com"),
			want: false,
		},
		"gate fails without numeric verb or official source": {
			item: item("Acme nears licensing agreement", "", "randomblog.net"),
			want: false,
		},
		"gate passes via official domain": {
			item: item("Acme receives regulatory approval", "", "sec.gov"),
			want: true,
		},
		"gate passes via official subdomain": {
			item: item("Acme receives regulatory approval", "", "filings.sec.gov"),
			want: true,
		},
		"missing source domain does not satisfy gate": {
			item: item("Acme nears licensing agreement", "", ""),
			want: false,
		},
		"empty title": {
			item: item("", "Acme awarded $50M contract", "acme.com"),
			want: false,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, got := rs.Classify(tc.item, "Acme", nil, false)
			if got != tc.want {
				t.Fatalf("Classify(strict) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassifyBroad(t *testing.T) {
	rs := Default()

	// Company and keyword may match in the summary, gate is skipped.
	v, ok := rs.Classify(item("Defense contract news", "Acme won the partnership.", "randomblog.net"), "Acme", nil, true)
	if !ok {
		t.Fatal("broad mode must accept summary matches")
	}
	testutil.AssertEqual(t, v.Category, "Contracts")

	// Noise still rejects in broad mode.
	if _, ok := rs.Classify(item("Analysts expect Acme to rise", "", ""), "Acme", nil, true); ok {
		t.Fatal("broad mode must still reject noise")
	}
}

func TestClassifyAliases(t *testing.T) {
	rs := Default()

	_, ok := rs.Classify(item("ACME Robotics wins $2M award", "", ""), "Acme Corporation", []string{"ACME Robotics"}, false)
	if !ok {
		t.Fatal("alias in title must satisfy the company match")
	}
}

// Any item passing strict mode must also pass broad mode.
func TestStrictSubsetOfBroad(t *testing.T) {
	rs := Default()

	items := []feed.Item{
		item("Acme Corp awarded $50M contract", "Defense deal confirmed.", "acme.com"),
		item("Acme receives regulatory approval", "", "sec.gov"),
		item("Acme signed partnership agreement", "", "prnewswire.com"),
		item("Acme Q2 earnings beat guidance", "", "acme.com"),
		item("Analysts expect Acme to rise", "", "example.com"),
		item("Globex awarded $50M contract", "", "globex.com"),
		item("Acme opens new office", "", ""),
	}

	for _, it := range items {
		_, strict := rs.Classify(it, "Acme", nil, false)
		_, broad := rs.Classify(it, "Acme", nil, true)
		if strict && !broad {
			t.Fatalf("item %q passes strict but not broad mode", it.Title)
		}
	}
}

func TestClassifyMacro(t *testing.T) {
	rs := Default()

	v, ok := rs.ClassifyMacro(item("Fed signals rate cut", "", ""))
	if !ok {
		t.Fatal("macro keyword must be accepted")
	}
	testutil.AssertEqual(t, v.Keyword, "rate cut")
	testutil.AssertEqual(t, v.Company, "")

	if _, ok := rs.ClassifyMacro(item("Opinion: the coming rate cut", "", "")); ok {
		t.Fatal("noise must reject macro items")
	}
	if _, ok := rs.ClassifyMacro(item("Markets open higher", "", "")); ok {
		t.Fatal("items without macro keywords must be rejected")
	}
	if _, ok := rs.ClassifyMacro(item("", "rate cut", "")); ok {
		t.Fatal("empty title must be rejected")
	}
}

func TestVerdictReason(t *testing.T) {
	rs := Default()

	v, ok := rs.Classify(item("Acme Corp awarded $50M contract", "", "acme.com"), "Acme", nil, false)
	if !ok {
		t.Fatal("item must be accepted")
	}
	testutil.AssertEqual(t, v.Category, "Contracts")
	// Keywords are tried in list order, so "contract" wins over "awarded".
	testutil.AssertEqual(t, v.Keyword, "contract")
	testutil.AssertEqual(t, v.Reason, `Contracts keyword "contract"`)
}
