package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strippedElements never survive into a feed description.
const strippedElements = "script, style, iframe, noscript, object, embed, form"

// SanitizeHTML returns the inner HTML of sel with active content removed and
// root-relative href/src attributes rewritten against base.
func SanitizeHTML(sel *goquery.Selection, base *url.URL) (string, error) {
	clone := sel.Clone()
	clone.Find(strippedElements).Remove()

	clone.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			var drop []string
			for _, attr := range node.Attr {
				key := strings.ToLower(attr.Key)
				if strings.HasPrefix(key, "on") {
					drop = append(drop, attr.Key)
					continue
				}
				if (key == "href" || key == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr.Val)), "javascript:") {
					drop = append(drop, attr.Key)
				}
			}
			for _, key := range drop {
				s.RemoveAttr(key)
			}
		}

		for _, attr := range []string{"href", "src"} {
			if val, ok := s.Attr(attr); ok {
				s.SetAttr(attr, absolutizeRootRelative(strings.TrimSpace(val), base))
			}
		}
	})

	out, err := clone.Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// absolutizeRootRelative rewrites "/path" links; protocol-relative, absolute and fragment links pass through.
func absolutizeRootRelative(val string, base *url.URL) string {
	if base == nil || !strings.HasPrefix(val, "/") || strings.HasPrefix(val, "//") {
		return val
	}
	return resolveURL(val, base)
}
