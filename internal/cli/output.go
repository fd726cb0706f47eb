// Package cli provides output formatting for the Recall CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/studyforge/recall/internal/models"
	"github.com/studyforge/recall/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, result := range response.Results {
			title := ""
			if result.Document != nil {
				title = result.Document.Title
			}
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%d\t%s\n",
				result.Rank, result.Similarity, result.DocumentID, result.ChunkIndex, title)
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d matching chunks in %dms (showing %d)\n\n",
		response.Total, response.QueryTime, len(response.Results))
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Similarity: %.4f | Chunk: %d\n",
			result.Rank, result.Similarity, result.ChunkIndex)
		fmt.Fprintf(w, "Document: %s\n", result.DocumentID)
		if result.Document != nil {
			if result.Document.Title != "" {
				fmt.Fprintf(w, "Title: %s\n", result.Document.Title)
			}
			if result.Document.Subject != "" {
				fmt.Fprintf(w, "Subject: %s\n", result.Document.Subject)
			}
		}
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Text, 200))
		fmt.Fprintln(w)
	}
}
