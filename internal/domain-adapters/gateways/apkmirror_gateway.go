package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
)

const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// APKMirrorGateway scrapes versions and variants from APKMirror pages
type APKMirrorGateway struct {
	client     *http.Client
	downloader *Downloader
	logger     interfaces.Logger
}

// NewAPKMirrorGateway creates a new APKMirror scraper.
// client may be nil to use a default client.
func NewAPKMirrorGateway(client *http.Client, downloader *Downloader, logger interfaces.Logger) *APKMirrorGateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &APKMirrorGateway{
		client:     client,
		downloader: downloader,
		logger:     interfaces.OrNoOp(logger),
	}
}

// ListVersions returns the versions listed on the catalog page, newest first
func (g *APKMirrorGateway) ListVersions(ctx context.Context, catalogURL string) ([]entities.Version, error) {
	doc, err := g.fetch(ctx, catalogURL)
	if err != nil {
		return nil, err
	}

	list := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, "listWidget")
	})
	if list == nil {
		return nil, fmt.Errorf("no version list on %s", catalogURL)
	}

	var versions []entities.Version
	for row := list.FirstChild; row != nil; row = row.NextSibling {
		if !isElement(row, "div") {
			continue
		}
		value := findFirst(row, func(n *html.Node) bool {
			return isElement(n, "span") && hasClass(n, "infoSlide-value")
		})
		link := findFirst(row, func(n *html.Node) bool {
			return isElement(n, "a") && hasClass(n, "fontBlack")
		})
		if value == nil || link == nil {
			continue
		}

		versions = append(versions, entities.Version{
			Link:    resolveURL(catalogURL, attr(link, "href")),
			Version: strings.TrimSpace(textContent(value)),
		})
	}

	g.logger.Debug("Listed catalog versions", interfaces.F("count", len(versions)))
	return versions, nil
}

// ListVariants returns the download variants of a version in page order
func (g *APKMirrorGateway) ListVariants(ctx context.Context, version entities.Version) ([]entities.Variant, error) {
	doc, err := g.fetch(ctx, version.Link)
	if err != nil {
		return nil, err
	}

	table := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, "variants-table")
	})
	if table == nil {
		return nil, fmt.Errorf("no variants table on %s", version.Link)
	}

	rows := findAll(table, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, "table-row") && hasClass(n, "headerFont")
	})

	var variants []entities.Variant
	for _, row := range rows {
		cells := findAll(row, func(n *html.Node) bool {
			return isElement(n, "div") && hasClass(n, "table-cell")
		})
		if len(cells) < 4 {
			continue
		}
		link := findFirst(cells[0], func(n *html.Node) bool {
			return isElement(n, "a") && hasClass(n, "accent_color")
		})
		if link == nil {
			// Header row
			continue
		}
		badge := findFirst(cells[0], func(n *html.Node) bool {
			return isElement(n, "span") && hasClass(n, "apkm-badge")
		})

		variants = append(variants, entities.Variant{
			Name:         strings.TrimSpace(textContent(link)),
			IsBundle:     badge != nil && strings.EqualFold(strings.TrimSpace(textContent(badge)), "bundle"),
			Architecture: strings.TrimSpace(textContent(cells[1])),
			MinAndroid:   strings.TrimSpace(textContent(cells[2])),
			DPI:          strings.TrimSpace(textContent(cells[3])),
			DownloadURL:  resolveURL(version.Link, attr(link, "href")),
		})
	}

	return variants, nil
}

// FetchBundle follows the variant's download pages and saves the file to dest
func (g *APKMirrorGateway) FetchBundle(ctx context.Context, variant entities.Variant, dest string) error {
	page, err := g.fetch(ctx, variant.DownloadURL)
	if err != nil {
		return err
	}
	button := findFirst(page, func(n *html.Node) bool {
		return isElement(n, "a") && hasClass(n, "downloadButton")
	})
	if button == nil {
		return fmt.Errorf("no download button on %s", variant.DownloadURL)
	}
	keyPage := resolveURL(variant.DownloadURL, attr(button, "href"))

	doc, err := g.fetch(ctx, keyPage)
	if err != nil {
		return err
	}
	direct := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "a") && attr(n, "rel") == "nofollow" && attr(n, "data-google-interstitial") == "false"
	})
	if direct == nil {
		return fmt.Errorf("no direct download link on %s", keyPage)
	}
	fileURL := resolveURL(keyPage, attr(direct, "href"))

	n, err := g.downloader.DownloadFile(ctx, fileURL, dest, map[string]string{
		"User-Agent": browserUserAgent,
		"Referer":    keyPage,
	})
	if err != nil {
		return fmt.Errorf("failed to download bundle: %w", err)
	}

	g.logger.Info("Downloaded bundle", interfaces.F("variant", variant.Name), interfaces.F("bytes", n))
	return nil
}

func (g *APKMirrorGateway) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// findFirst returns the first node in document order matching pred
func findFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every node matching pred in document order, without descending into matches
func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
