package fetcher

import (
	"net/url"
	"sort"
	"strings"
)

// Query parameters that are tracking or cache-busting noise. Stripping
// them keeps source ids stable across repeated fetches of the same page.
var noiseParams = map[string]struct{}{
	// Cache busting
	"_": {}, "__": {}, "cb": {}, "t": {}, "ts": {}, "timestamp": {},
	"nocache": {}, "rand": {}, "random": {},
	// UTM tracking
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "utm_id": {},
	// Social / ad click tracking
	"fbclid": {}, "gclid": {}, "gclsrc": {}, "dclid": {}, "msclkid": {}, "twclid": {},
	// Email tracking
	"mc_cid": {}, "mc_eid": {}, "_hsenc": {}, "_hsmi": {},
	// Misc
	"oly_enc_id": {}, "oly_anon_id": {}, "_openstat": {}, "yclid": {}, "spm": {},
}

// NormalizeURL strips tracking query params and the fragment. Inputs
// that are not absolute URLs are returned unchanged.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return raw
	}

	values := parsed.Query()
	for key := range values {
		if _, noisy := noiseParams[strings.ToLower(key)]; noisy {
			values.Del(key)
		}
	}

	if len(values) == 0 {
		parsed.RawQuery = ""
	} else {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			for _, v := range values[k] {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		parsed.RawQuery = b.String()
	}

	parsed.Fragment = ""

	return parsed.String()
}
