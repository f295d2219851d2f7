package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
)

// Domain prefixes for content hashes. The version suffix leaves room for
// an algorithm change without colliding with stored values.
const (
	DomainArtifact = "skim/artifact/v1"
	DomainRuleSet  = "skim/ruleset/v1"
	DomainReport   = "skim/report/v1"
)

// ContentHash computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator keeps domain and data boundaries unambiguous.
func ContentHash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SHA256Hex is the plain, undomained SHA-256 of everything read from r.
// It is the value emitted under the "sha-256" key of artifact hashes.
func SHA256Hex(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RuleSetFingerprint identifies a set of rule descriptors together with the
// options that change what they report. Order of descriptors is irrelevant.
func RuleSetFingerprint(rules []ReportingDescriptor, salt string) (string, error) {
	ids := make([]ReportingDescriptor, len(rules))
	copy(ids, rules)
	slices.SortFunc(ids, func(a, b ReportingDescriptor) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	canonical, err := Canonicalize(struct {
		Rules []ReportingDescriptor `json:"rules"`
		Salt  string                `json:"salt"`
		Tool  string                `json:"tool"`
	}{ids, salt, ToolName + "/" + ToolVersion})
	if err != nil {
		return "", fmt.Errorf("RuleSetFingerprint: %w", err)
	}
	return ContentHash(DomainRuleSet, canonical), nil
}
