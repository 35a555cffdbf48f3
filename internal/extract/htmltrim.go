package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// TrimToTable reduces a full filing page to the densest data table,
// flattened into pipe-delimited lines. Prompting on the whole page
// wastes tokens on navigation chrome; the transaction table is all the
// model needs.
func TrimToTable(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	table := densestTable(doc)
	if table == nil {
		return "", fmt.Errorf("no table found in document")
	}

	var lines []string
	var walkRows func(*html.Node)
	walkRows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if line := flattenRow(n); line != "" {
				lines = append(lines, line)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkRows(c)
		}
	}
	walkRows(table)

	if len(lines) == 0 {
		return "", fmt.Errorf("table has no rows")
	}
	return strings.Join(lines, "\n"), nil
}

// densestTable returns the table node with the most rows.
func densestTable(doc *html.Node) *html.Node {
	var best *html.Node
	bestRows := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			if rows := countRows(n); rows > bestRows {
				best, bestRows = n, rows
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return best
}

func countRows(table *html.Node) int {
	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return count
}

// flattenRow joins a row's cell texts with pipes.
func flattenRow(tr *html.Node) string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, strings.Join(strings.Fields(nodeText(c)), " "))
		}
	}
	return strings.Join(cells, " | ")
}

// nodeText collects the visible text under a node.
func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
