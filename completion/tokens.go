package completion

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// tokenEncoder counts prompt tokens for observability. Counting is best
// effort: for models tiktoken does not know, the encoder degrades to a
// whitespace-free character estimate rather than failing the request path.
type tokenEncoder struct {
	encoding *tiktoken.Tiktoken
}

func newTokenEncoder(model string, logger *zap.Logger) *tokenEncoder {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("no token encoding for model, falling back to estimate",
			zap.String("model", model),
			zap.Error(err),
		)
		return &tokenEncoder{}
	}
	return &tokenEncoder{encoding: encoding}
}

// count returns the number of tokens in text, or a length-based estimate
// when no encoding is available.
func (e *tokenEncoder) count(text string) int {
	if e.encoding == nil {
		// Rough heuristic: around four characters per token for English.
		return (len(text) + 3) / 4
	}
	return len(e.encoding.Encode(text, nil, nil))
}
