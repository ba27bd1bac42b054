// Package comprehend extracts nouns with Amazon Comprehend's DetectSyntax.
package comprehend

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscomprehend "github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"

	"clmeval/internal/keywords"
	"clmeval/internal/services"
)

// MaxTextBytes keeps each request under the 5000 byte DetectSyntax limit.
const MaxTextBytes = 4800

// SyntaxAPI is the subset of the Comprehend client used here.
type SyntaxAPI interface {
	DetectSyntax(ctx context.Context, params *awscomprehend.DetectSyntaxInput, optFns ...func(*awscomprehend.Options)) (*awscomprehend.DetectSyntaxOutput, error)
}

// Extractor implements keywords.Extractor.
type Extractor struct {
	client SyntaxAPI
}

// New wraps a Comprehend client built from aws.Config.
func New(awsCfg aws.Config) *Extractor {
	return &Extractor{client: awscomprehend.NewFromConfig(awsCfg)}
}

// NewWithClient uses the supplied client (for testing).
func NewWithClient(client SyntaxAPI) *Extractor {
	return &Extractor{client: client}
}

// ExtractNouns returns distinct NOUN and PROPN tokens in first-seen order.
func (e *Extractor) ExtractNouns(ctx context.Context, text string) ([]string, error) {
	seen := make(map[string]struct{})
	var nouns []string
	for _, chunk := range Chunk(text, MaxTextBytes) {
		out, err := e.client.DetectSyntax(ctx, &awscomprehend.DetectSyntaxInput{
			Text:         aws.String(chunk),
			LanguageCode: types.SyntaxLanguageCodeEn,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "keywords", "detect syntax", "comprehend request failed", err)
		}
		for _, token := range out.SyntaxTokens {
			if token.PartOfSpeech == nil {
				continue
			}
			switch token.PartOfSpeech.Tag {
			case types.PartOfSpeechTagTypeNoun, types.PartOfSpeechTagTypePropn:
			default:
				continue
			}
			word := strings.TrimSpace(aws.ToString(token.Text))
			if word == "" {
				continue
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			nouns = append(nouns, word)
		}
	}
	return nouns, nil
}

// Chunk splits text on whitespace into pieces of at most limit bytes. A single
// word longer than limit becomes its own chunk and is truncated at a rune
// boundary.
func Chunk(text string, limit int) []string {
	var chunks []string
	var b strings.Builder
	for _, word := range strings.Fields(text) {
		if len(word) > limit {
			word = truncate(word, limit)
		}
		if b.Len() > 0 && b.Len()+1+len(word) > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

func truncate(word string, limit int) string {
	cut := 0
	for i := range word {
		if i > limit {
			break
		}
		cut = i
	}
	if len(word) <= limit {
		return word
	}
	return word[:cut]
}

var _ keywords.Extractor = (*Extractor)(nil)
