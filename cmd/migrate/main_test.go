package main

import (
	"crypto/sha256"
	"fmt"
	"testing"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_accounts.sql", true, "0001", "create_accounts"},
		{"0002_create_transactions.sql", true, "0002", "create_transactions"},
		{"0010_add_budget_overrides.sql", true, "0010", "add_budget_overrides"},
		{"001_too_short.sql", false, "", ""},
		{"00001_too_long.sql", false, "", ""},
		{"0001-wrong-separator.sql", false, "", ""},
		{"0001_no_extension", false, "", ""},
		{"README.md", false, "", ""},
	}

	for _, tt := range tests {
		matches := migrationPattern.FindStringSubmatch(tt.filename)
		if tt.valid {
			if matches == nil {
				t.Errorf("%s: expected match, got none", tt.filename)
				continue
			}
			if matches[1] != tt.version || matches[2] != tt.name {
				t.Errorf("%s: got version=%s name=%s, want version=%s name=%s",
					tt.filename, matches[1], matches[2], tt.version, tt.name)
			}
		} else if matches != nil {
			t.Errorf("%s: expected no match, got %v", tt.filename, matches)
		}
	}
}

func TestMigrationChecksumConsistency(t *testing.T) {
	content := []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.accounts` (account_id STRING)")

	first := fmt.Sprintf("%x", sha256.Sum256(content))
	second := fmt.Sprintf("%x", sha256.Sum256(content))
	if first != second {
		t.Errorf("checksum not deterministic: %s != %s", first, second)
	}

	changed := fmt.Sprintf("%x", sha256.Sum256(append(content, '\n')))
	if first == changed {
		t.Error("checksum did not change with content")
	}
}
