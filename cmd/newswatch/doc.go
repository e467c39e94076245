// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Newswatch tracks company news and sends a curated digest via Telegram.

It is a one-shot program meant to be run on a schedule (for example, from
cron or a systemd timer). On each run it fetches Google News RSS search
results for every tracked company, filters them through a rule-based
relevance filter, and delivers anything new and material as a single digest
message to a Telegram chat.

# Usage

	$ newswatch [flags...] <command>

Available commands:

  - run: fetch news for all tracked companies and send the digest. If chat
    commands are enabled, pending commands are processed first.
  - commands: process pending chat commands and exit without fetching news.
  - watchlist: print the tracked companies.

# Environment Variables

The newswatch program relies on the following environment variables:

  - TELEGRAM_TOKEN: Telegram bot token for accessing the Telegram Bot API.
  - CHAT_ID: Telegram chat ID where the program sends digests and from which
    it accepts commands.
  - LOOKBACK_HOURS: how far back the program looks for news, in hours.
    Defaults to 24.
  - MAX_PER_COMPANY: maximum number of items reported per company in one
    digest. Defaults to 5.
  - ENABLE_COMMANDS: whether to process chat commands before fetching news.
    Defaults to true.
  - NEWS_LANG: Google News language code (for example, "en"). Defaults
    to "en".
  - NEWS_GEO: Google News region code (for example, "US"). Optional.
  - STATE_DIRECTORY: directory where the program stores its state. Defaults
    to $XDG_STATE_HOME/newswatch.
  - GIST_ID: GitHub Gist ID where the program stores its state instead of
    the local directory. Optional.
  - GITHUB_TOKEN: GitHub personal access token for accessing the GitHub
    API. Required if GIST_ID is set.
  - GEMINI_API_KEY: Gemini API key. If set, the digest opens with a short
    model-written overview of the day's headlines. Optional.
  - GEMINI_MODEL: Gemini model to use for the overview. Defaults to
    gemini-2.0-flash.

# Chat Commands

When ENABLE_COMMANDS is set, the bot understands these commands in its chat:

  - /add <company>: start tracking a company.
  - /list: show tracked companies.
  - /update: run a news update immediately.
  - /broad on|off|status: toggle or show broad mode, which relaxes the
    relevance filter.
  - /help: show this list.

Commands from any other chat than CHAT_ID are ignored.

# Filtering

An item is reported only if its headline mentions the company, matches a
material news category (funding, contracts, regulatory, product, earnings),
passes a materiality check (a number in the headline, a strong verb, or an
official source), and doesn't look like routine market noise. Broad mode
keeps the company mention and noise checks but relaxes the rest.

A separate "General Market Movers" section collects macro-level news
(rates, inflation, tariffs) regardless of the watchlist.

The filter can be customized with a rules.star file in the state directory
(or Gist). This file is written in Starlark and defines a ruleset, for
example:

	rules = ruleset(
	    material = {"Contracts": ["contract", "tender"]},
	    noise = ["rumor", "analyst"],
	)

Omitted fields keep their built-in defaults.

# State

Newswatch remembers, per company, the newest publication time it has
already reported, and never reports the same item twice, even across
restarts. State lives in watchlist.json and state.json, either in
STATE_DIRECTORY or on a GitHub Gist.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/newswatch/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
