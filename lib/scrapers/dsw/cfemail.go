package dsw

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const emailProtectionPath = "/cdn-cgi/l/email-protection"

// DecodeCfEmail reverses Cloudflare's scrape-protection cipher: the
// payload is hex, the first byte is the XOR key for every following
// byte.
func DecodeCfEmail(payload string) (string, error) {
	payload = strings.TrimPrefix(payload, "#")
	if len(payload) < 4 || len(payload)%2 != 0 {
		return "", fmt.Errorf("cfemail payload too short: %q", payload)
	}
	raw, err := hex.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("cfemail payload is not hex: %w", err)
	}

	key := raw[0]
	decoded := make([]byte, len(raw)-1)
	for i, b := range raw[1:] {
		decoded[i] = b ^ key
	}
	return string(decoded), nil
}

// emailFromSelection tries every way the site hides an address:
// the data-cfemail attribute, an email-protection href, and finally
// plain visible text containing '@'.
func emailFromSelection(sel *goquery.Selection) string {
	if cf, ok := sel.Attr("data-cfemail"); ok && cf != "" {
		email, err := DecodeCfEmail(cf)
		if err == nil {
			return email
		}
	}
	if href, ok := sel.Attr("href"); ok {
		_, payload, found := strings.Cut(href, emailProtectionPath+"#")
		if found {
			email, err := DecodeCfEmail(payload)
			if err == nil {
				return email
			}
		}
	}
	if text := sel.Text(); strings.Contains(text, "@") {
		return strings.TrimSpace(text)
	}
	return ""
}
