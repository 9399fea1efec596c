package provider

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BorsaItalianaFetcher scrapes the Borsa Italiana equity pages. Prices
// and company names are extracted from the HTML of the instrument page,
// trying the Italian listing first and the global equity market second.
type BorsaItalianaFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewBorsaItalianaFetcher creates a fetcher with optional proxy support.
func NewBorsaItalianaFetcher(proxyURL string) *BorsaItalianaFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BorsaItalianaFetcher{
		BaseURL: "https://www.borsaitaliana.it",
		Client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

func (f *BorsaItalianaFetcher) Name() string { return "borsaitaliana" }

var (
	// The quoted price sits in a <strong> inside the -formatPrice block.
	priceRe = regexp.MustCompile(`(?i)-formatPrice[^>]*>\s*<strong[^>]*>([^<]+)</strong>`)
	// Fallback: any bold decimal number on the page, sanity-checked.
	strongNumRe = regexp.MustCompile(`<strong[^>]*>([0-9]+[,.][0-9]+)</strong>`)

	// Company name: the h1 headline anchor, then the bare headline class,
	// then the page title.
	nameRe      = regexp.MustCompile(`(?i)<h1[^>]*class="[^"]*t-text[^"]*-flola-bold[^"]*-size-xlg[^"]*-inherit[^"]*"[^>]*>\s*<a[^>]*>([^<]+)</a>\s*</h1>`)
	nameAltRe   = regexp.MustCompile(`(?i)class="[^"]*t-text[^"]*-flola-bold[^"]*-size-xlg[^"]*-inherit[^"]*"[^>]*>([^<]+)<`)
	nameTitleRe = regexp.MustCompile(`(?i)<title>Azioni\s+([^:]+):\s*quotazioni`)
)

// FetchQuote retrieves the current price and company name for an ISIN.
func (f *BorsaItalianaFetcher) FetchQuote(isin string) (*Quote, error) {
	paths := []string{
		fmt.Sprintf("/borsa/azioni/scheda/%s.html", url.PathEscape(isin)),
		fmt.Sprintf("/borsa/azioni/global-equity-market/scheda/%s.html", url.PathEscape(isin)),
	}

	var lastErr error
	for _, path := range paths {
		html, err := f.fetchPage(f.BaseURL + path)
		if err != nil {
			lastErr = err
			continue
		}
		price, ok := ExtractPrice(html)
		if !ok {
			lastErr = fmt.Errorf("no price found on %s", path)
			continue
		}
		return &Quote{
			Price:       price,
			CompanyName: ExtractCompanyName(html),
			FetchedAt:   time.Now(),
		}, nil
	}
	return nil, fmt.Errorf("fetch quote for %s: %w", isin, lastErr)
}

func (f *BorsaItalianaFetcher) fetchPage(u string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", u, err)
	}
	return string(body), nil
}

// ExtractPrice pulls the quoted price out of an instrument page.
func ExtractPrice(html string) (float64, bool) {
	if m := priceRe.FindStringSubmatch(html); m != nil {
		if price, ok := ParsePrice(m[1]); ok {
			return price, true
		}
	}
	for _, m := range strongNumRe.FindAllStringSubmatch(html, -1) {
		if price, ok := ParsePrice(m[1]); ok {
			return price, true
		}
	}
	return 0, false
}

// ExtractCompanyName pulls the company name out of an instrument page;
// empty when none of the known markers match.
func ExtractCompanyName(html string) string {
	for _, re := range []*regexp.Regexp{nameRe, nameAltRe, nameTitleRe} {
		if m := re.FindStringSubmatch(html); m != nil {
			name := strings.TrimSpace(m[1])
			if len(name) > 2 {
				return name
			}
		}
	}
	return ""
}

var nonPriceChars = regexp.MustCompile(`[^\d,.]`)

// ParsePrice converts a quoted price string to a float, handling both
// the Italian format (1.234,56) and the US format (1,234.56), and
// rejects values outside the 0.001-100000 sanity range.
func ParsePrice(s string) (float64, bool) {
	clean := nonPriceChars.ReplaceAllString(s, "")
	if clean == "" {
		return 0, false
	}

	comma, dot := strings.Contains(clean, ","), strings.Contains(clean, ".")
	switch {
	case comma && !dot:
		clean = strings.ReplaceAll(clean, ",", ".")
	case comma && dot:
		if strings.LastIndex(clean, ",") > strings.LastIndex(clean, ".") {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.ReplaceAll(clean, ",", ".")
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	}

	price, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	if price < 0.001 || price > 100000 {
		return 0, false
	}
	return price, true
}
