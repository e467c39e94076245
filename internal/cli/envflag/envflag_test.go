// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package envflag

import (
	"flag"
	"testing"
)

func getenv(env map[string]string) func(string) string {
	return func(name string) string { return env[name] }
}

func TestValueDefault(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	hours := Value("lookback", "LOOKBACK_HOURS", 48, "Lookback window.", fs, getenv(nil))
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if *hours != 48 {
		t.Fatalf("got %d, want default 48", *hours)
	}
}

func TestValueEnvOverride(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	env := map[string]string{"LOOKBACK_HOURS": "12", "BROAD": "true", "LANG": "de"}

	hours := Value("lookback", "LOOKBACK_HOURS", 48, "Lookback window.", fs, getenv(env))
	broad := Value("broad", "BROAD", false, "Broad mode.", fs, getenv(env))
	lang := Value("lang", "LANG", "en", "Language.", fs, getenv(env))
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}

	if *hours != 12 {
		t.Fatalf("hours = %d, want 12", *hours)
	}
	if !*broad {
		t.Fatal("broad must be overridden to true")
	}
	if *lang != "de" {
		t.Fatalf("lang = %q, want de", *lang)
	}
}

func TestValueFlagBeatsEnv(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	env := map[string]string{"LOOKBACK_HOURS": "12"}

	hours := Value("lookback", "LOOKBACK_HOURS", 48, "Lookback window.", fs, getenv(env))
	if err := fs.Parse([]string{"-lookback", "6"}); err != nil {
		t.Fatal(err)
	}
	if *hours != 6 {
		t.Fatalf("hours = %d, want flag value 6", *hours)
	}
}

func TestValueBadEnvIgnored(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	env := map[string]string{"LOOKBACK_HOURS": "not-a-number"}

	hours := Value("lookback", "LOOKBACK_HOURS", 48, "Lookback window.", fs, getenv(env))
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if *hours != 48 {
		t.Fatalf("hours = %d, want default 48 when env value is malformed", *hours)
	}
}
