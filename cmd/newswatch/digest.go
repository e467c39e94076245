// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"fmt"
	"html"
	"strings"
	"time"

	"go.astrophena.name/newswatch/cmd/newswatch/internal/rules"
)

// digest accumulates filtered news and renders the Telegram message.
type digest struct {
	lookback      time.Duration
	maxPerCompany int

	// sections preserves insertion order; the macro bucket always renders
	// last.
	sections []section
	// advance maps a company (or bucket) to the watermark it should move to
	// after a successful delivery.
	advance map[string]time.Time
	// overview is an optional model-written paragraph shown under the header.
	overview string
}

type section struct {
	name     string
	verdicts []rules.Verdict
}

func newDigest(lookback time.Duration, maxPerCompany int) *digest {
	return &digest{
		lookback:      lookback,
		maxPerCompany: maxPerCompany,
		advance:       make(map[string]time.Time),
	}
}

// add appends a section. Sections with no verdicts are dropped, and each
// section is capped at maxPerCompany items.
func (d *digest) add(name string, verdicts []rules.Verdict) {
	if len(verdicts) == 0 {
		return
	}
	if len(verdicts) > d.maxPerCompany {
		verdicts = verdicts[:d.maxPerCompany]
	}
	d.sections = append(d.sections, section{name: name, verdicts: verdicts})
}

func (d *digest) empty() bool { return len(d.sections) == 0 }

// headlines returns "Company: headline" lines for the overview prompt.
func (d *digest) headlines() []string {
	var lines []string
	for _, s := range d.sections {
		for _, v := range s.verdicts {
			lines = append(lines, s.name+": "+v.Item.Title)
		}
	}
	return lines
}

// render produces the digest as Telegram HTML.
func (d *digest) render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📰 <b>Daily company brief</b> (last %dh)\n", int(d.lookback.Hours()))
	if d.overview != "" {
		sb.WriteString("\n<i>")
		sb.WriteString(html.EscapeString(d.overview))
		sb.WriteString("</i>\n")
	}

	for _, s := range d.sections {
		fmt.Fprintf(&sb, "\n<b>%s</b>\n", html.EscapeString(s.name))
		for _, v := range s.verdicts {
			sb.WriteString(renderItem(v))
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func renderItem(v rules.Verdict) string {
	var sb strings.Builder
	sb.WriteString("• ")
	if v.Category != "" {
		fmt.Fprintf(&sb, "[%s] ", html.EscapeString(v.Category))
	}
	fmt.Fprintf(&sb, `<a href="%s">%s</a>`, html.EscapeString(v.Item.Link), html.EscapeString(v.Item.Title))
	if v.Item.SourceDomain != "" {
		fmt.Fprintf(&sb, " (%s)", html.EscapeString(v.Item.SourceDomain))
	}
	sb.WriteString("\n")
	if v.Item.Summary != "" {
		sb.WriteString("  ")
		sb.WriteString(html.EscapeString(v.Item.Summary))
		sb.WriteString("\n")
	}
	return sb.String()
}
