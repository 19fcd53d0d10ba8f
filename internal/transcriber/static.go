package transcriber

import (
	"context"
	"iter"
	"strings"
)

// StaticRecognizer "recognizes" every recording as the same text. It
// yields the text word by word as partial results before the final one,
// which makes it useful offline and in tests.
type StaticRecognizer struct {
	Text string
}

func (r StaticRecognizer) Recognize(ctx context.Context, audio []byte) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		words := strings.Fields(r.Text)
		for i := 1; i < len(words); i++ {
			if err := ctx.Err(); err != nil {
				yield(Result{}, err)
				return
			}
			if !yield(Result{Text: strings.Join(words[:i], " ")}, nil) {
				return
			}
		}
		yield(Result{Text: r.Text, Final: true}, nil)
	}
}
