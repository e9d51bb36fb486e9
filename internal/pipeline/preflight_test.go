package pipeline

import "testing"

func TestPreflightOrderAndReasons(t *testing.T) {
	cases := []struct {
		name   string
		creds  Credentials
		ids    DatasetIDs
		ok     bool
		reason string
	}{
		{
			name:  "all valid",
			creds: Credentials{LLMKey: "sk-1", ScrapingKey: "bd-1"},
			ids:   DatasetIDs{Posts: "gd_abc123", Comments: "gd_def456"},
			ok:    true,
		},
		{
			name:   "missing llm key reported first",
			creds:  Credentials{ScrapingKey: "bd-1"},
			ids:    DatasetIDs{Posts: "bad", Comments: "bad"},
			reason: "missing LLM API key",
		},
		{
			name:   "missing scraping key",
			creds:  Credentials{LLMKey: "sk-1"},
			ids:    DatasetIDs{Posts: "gd_abc123", Comments: "gd_def456"},
			reason: "missing scraping API key",
		},
		{
			name:   "posts id without prefix",
			creds:  Credentials{LLMKey: "sk-1", ScrapingKey: "bd-1"},
			ids:    DatasetIDs{Posts: "abc123", Comments: "gd_def456"},
			reason: "posts dataset id missing or malformed",
		},
		{
			name:   "posts id too short",
			creds:  Credentials{LLMKey: "sk-1", ScrapingKey: "bd-1"},
			ids:    DatasetIDs{Posts: "gd_1", Comments: "gd_def456"},
			reason: "posts dataset id missing or malformed",
		},
		{
			name:   "comments id malformed",
			creds:  Credentials{LLMKey: "sk-1", ScrapingKey: "bd-1"},
			ids:    DatasetIDs{Posts: "gd_abc123", Comments: "xd_def456"},
			reason: "comments dataset id missing or malformed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Preflight(tc.creds, tc.ids)
			if res.OK != tc.ok {
				t.Fatalf("OK = %v, want %v (reason %q)", res.OK, tc.ok, res.Reason)
			}
			if res.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", res.Reason, tc.reason)
			}
		})
	}
}

func TestPlausibleDatasetID(t *testing.T) {
	for id, want := range map[string]bool{
		"gd_abc123": true,
		"gd_123":    true,
		"gd_12":     false,
		"gd_":       false,
		"":          false,
		"abc123xyz": false,
		"GD_abc123": false,
	} {
		if got := plausibleDatasetID(id); got != want {
			t.Fatalf("plausibleDatasetID(%q) = %v, want %v", id, got, want)
		}
	}
}
