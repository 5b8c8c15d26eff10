package ingest

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// VendorSiteProfile summarizes what a vendor's public website says about them.
type VendorSiteProfile struct {
	URL           string   `json:"url"`
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	ContactEmails []string `json:"contact_emails,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// ProbeVendorSite visits a vendor website and scrapes basic profile data:
// page title, meta description, and any mailto contacts. It stays on the
// landing page; this is enrichment, not a crawl.
func ProbeVendorSite(siteURL string) (*VendorSiteProfile, error) {
	parsed, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	c := colly.NewCollector(
		colly.UserAgent("rfp-desk/1.0"),
		colly.MaxDepth(1),
		colly.MaxBodySize(2*1024*1024),
		colly.DetectCharset(),
		colly.AllowedDomains(parsed.Host),
	)
	c.SetRequestTimeout(20 * time.Second)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       time.Second,
	})

	profile := &VendorSiteProfile{URL: siteURL}

	c.OnHTML("title", func(e *colly.HTMLElement) {
		if profile.Title == "" {
			profile.Title = cleanText(e.Text)
		}
	})
	c.OnHTML(`meta[name="description"]`, func(e *colly.HTMLElement) {
		if profile.Description == "" {
			profile.Description = TruncateText(cleanText(e.Attr("content")), 500)
		}
	})
	c.OnHTML(`a[href^="mailto:"]`, func(e *colly.HTMLElement) {
		addr := strings.TrimPrefix(e.Attr("href"), "mailto:")
		if idx := strings.IndexByte(addr, '?'); idx >= 0 {
			addr = addr[:idx]
		}
		addr = ExtractAddress(addr)
		if strings.Contains(addr, "@") {
			profile.ContactEmails = appendUnique(profile.ContactEmails, addr)
		}
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(siteURL); err != nil {
		return nil, fmt.Errorf("visit failed: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("probe failed: %w", fetchErr)
	}

	profile.FetchedAt = time.Now().UTC()
	return profile, nil
}
