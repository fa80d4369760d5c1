package fetcher

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLen = 40

// Slugify folds a source name to a stable ASCII slug used inside
// source ids. Diacritics are decomposed and dropped so "Café Blog" and
// "Cafe Blog" produce the same id.
func Slugify(text string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, text); err == nil {
		text = folded
	}

	slug := slugPattern.ReplaceAllString(strings.ToLower(text), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug
}

// BlogSourceID builds the deterministic "blog:{slug}:{entry_hash}" id
// for a blog or sitemap entry. The hash covers a stable content
// fingerprint (entry GUID or normalized URL), never the fetch time.
func BlogSourceID(sourceName, fingerprint string) string {
	sum := md5.Sum([]byte(fingerprint))
	return "blog:" + Slugify(sourceName) + ":" + hex.EncodeToString(sum[:])[:12]
}
