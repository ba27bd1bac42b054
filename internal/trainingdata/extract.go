package trainingdata

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"clmeval/internal/textnorm"
)

// ExtractSentences returns the sentences of every <p> element in page, with
// bracketed asides removed and empty sentences dropped.
func ExtractSentences(page string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	var sentences []string
	for _, paragraph := range paragraphs(doc) {
		for _, sentence := range SplitSentences(paragraph) {
			if cleaned := textnorm.StripAsides(sentence); cleaned != "" {
				sentences = append(sentences, cleaned)
			}
		}
	}
	return sentences, nil
}

func paragraphs(root *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			var b strings.Builder
			collectText(n, &b)
			out = append(out, b.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// SplitSentences breaks text after '.', '!' or '?' when followed by
// whitespace and an upper case letter, digit or quote. Abbreviations such as
// "e.g. the" therefore stay in one sentence.
func SplitSentences(text string) []string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
		default:
			continue
		}
		end := i + 1
		for end < len(runes) && strings.ContainsRune(`.!?"')]`, runes[end]) {
			end++
		}
		if end >= len(runes) {
			break
		}
		if runes[end] != ' ' || end+1 >= len(runes) {
			continue
		}
		next := runes[end+1]
		if !unicode.IsUpper(next) && !unicode.IsDigit(next) && next != '"' && next != '\'' {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end + 1
		i = end
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
