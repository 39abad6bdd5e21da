package source

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/vigilpt/vigil/internal/model"
)

// ParseSearchHTML extracts contract stubs from a portal search results
// page. It is the fallback for mirrors that serve HTML instead of the
// JSON API: detail links carry the contract id, the link text the
// description. Stubs have no value or date; only the registry lookups
// can use them.
func ParseSearchHTML(content string) ([]model.Contract, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var contracts []model.Contract
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if c, ok := contractFromAnchor(n); ok && !seen[c.ID] {
				seen[c.ID] = true
				contracts = append(contracts, c)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return contracts, nil
}

// contractFromAnchor recognizes detail links of the form
// /pt/detalhe/?type=contratos&id=12345
func contractFromAnchor(n *html.Node) (model.Contract, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
		}
	}
	if href == "" || !strings.Contains(href, "type=contratos") {
		return model.Contract{}, false
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return model.Contract{}, false
	}
	id := parsed.Query().Get("id")
	if id == "" {
		return model.Contract{}, false
	}

	return model.Contract{
		ID:          id,
		Description: nodeText(n),
	}, true
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
