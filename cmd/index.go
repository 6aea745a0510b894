package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdoc/askdoc/internal/document"
)

var indexCmd = &cobra.Command{
	Use:   "index <file.pdf>",
	Short: "Parse a PDF and build the vector index",
	Long: `Parse a PDF, split it into overlapping chunks, embed each chunk and
build the vector index. Rebuilding replaces the previous index content.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(args[0])
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(path string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	doc, err := document.ParsePDF(path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	chunker, err := document.NewChunker(a.Config.ChunkSize, a.Config.ChunkOverlap)
	if err != nil {
		return err
	}
	chunks, err := chunker.Chunk(doc)
	if err != nil {
		return fmt.Errorf("chunking %s: %w", path, err)
	}

	count, err := a.Index.Build(ctx, chunks)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	if flagJSON {
		return printJSON(indexResult{
			File:       path,
			Pages:      len(doc.Pages),
			Chunks:     count,
			Collection: a.Index.Collection(),
		})
	}

	fmt.Printf("Indexed %s: %d pages, %d chunks (collection %q)\n",
		path, len(doc.Pages), count, a.Index.Collection())
	return nil
}

// indexResult is the JSON shape for a successful build.
type indexResult struct {
	File       string `json:"file"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
	Collection string `json:"collection"`
}
