package eodhd

import (
	"testing"
	"time"
)

// === tickerMatches stress tests ===

func TestTickerMatches_ExactMatch(t *testing.T) {
	assert := func(expected bool, got bool, msg string) {
		t.Helper()
		if got != expected {
			t.Errorf("%s: expected %v, got %v", msg, expected, got)
		}
	}

	assert(true, tickerMatches("SPY.US", "SPY.US"), "exact match with suffix")
	assert(true, tickerMatches("SPY", "SPY"), "exact match no suffix")
	assert(true, tickerMatches("spy.us", "SPY.US"), "case-insensitive")
}

func TestTickerMatches_StrippedSuffix(t *testing.T) {
	if !tickerMatches("TLT.US", "TLT") {
		t.Error("TLT.US should match TLT (suffix stripped by API)")
	}
	if !tickerMatches("TLT", "TLT.US") {
		t.Error("TLT should match TLT.US (suffix added by API)")
	}
}

func TestTickerMatches_WrongExchange(t *testing.T) {
	if tickerMatches("GLD.US", "GLD.LSE") {
		t.Error("GLD.US should NOT match GLD.LSE")
	}
}

func TestTickerMatches_DifferentBase(t *testing.T) {
	if tickerMatches("SPY.US", "SPYG.US") {
		t.Error("SPY.US should NOT match SPYG.US")
	}
	if tickerMatches("", "SPY") {
		t.Error("empty ticker should not match")
	}
}

func TestTickerMatches_ClassSharesSameSpelling(t *testing.T) {
	if !tickerMatches("BRK.B.US", "BRK.B.US") {
		t.Error("identical class-share tickers should match")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter(""); got != DefaultRetryAfter {
		t.Errorf("empty header: expected %s, got %s", DefaultRetryAfter, got)
	}
	if got := parseRetryAfter("5"); got != 5*time.Second {
		t.Errorf("seconds header: expected 5s, got %s", got)
	}
	if got := parseRetryAfter("-3"); got != DefaultRetryAfter {
		t.Errorf("negative header: expected default, got %s", got)
	}
	if got := parseRetryAfter("garbage"); got != DefaultRetryAfter {
		t.Errorf("garbage header: expected default, got %s", got)
	}
}
