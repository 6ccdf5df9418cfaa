package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstParagraphWikipediaLayout(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<div id="mw-content-text">
			<p>   </p>
			<p class="mw-empty-elt"></p>
			<p>Go is a statically typed language.</p>
			<p>It was designed at Google.</p>
		</div>
	</body></html>`

	got, err := FirstParagraph(html)
	require.NoError(t, err)
	require.Equal(t, "Go is a statically typed language.", got)
}

func TestFirstParagraphFallsBackToAnyParagraph(t *testing.T) {
	t.Parallel()

	html := `<html><body><article><p>Plain page content.</p></article></body></html>`

	got, err := FirstParagraph(html)
	require.NoError(t, err)
	require.Equal(t, "Plain page content.", got)
}

func TestFirstParagraphSkipsWhitespaceOnly(t *testing.T) {
	t.Parallel()

	html := `<html><body><p>
	</p><p>Second one counts.</p></body></html>`

	got, err := FirstParagraph(html)
	require.NoError(t, err)
	require.Equal(t, "Second one counts.", got)
}

func TestFirstParagraphNoContent(t *testing.T) {
	t.Parallel()

	html := `<html><body><div>no paragraphs here</div></body></html>`

	_, err := FirstParagraph(html)
	require.ErrorIs(t, err, ErrNoParagraph)
}
