package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdoc/askdoc/internal/index"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus() error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	exists, err := a.Index.Exists(ctx)
	if err != nil {
		return fmt.Errorf("checking index: %w", err)
	}

	var count int
	if exists {
		count, err = a.Index.Count(ctx)
		if err != nil && !errors.Is(err, index.ErrIndexNotFound) {
			return fmt.Errorf("counting records: %w", err)
		}
	}

	if flagJSON {
		return printJSON(statusResult{
			Store:      a.Config.Store,
			Collection: a.Index.Collection(),
			Exists:     exists,
			Chunks:     count,
		})
	}

	fmt.Printf("Store:      %s\n", a.Config.Store)
	fmt.Printf("Collection: %s\n", a.Index.Collection())
	if !exists {
		fmt.Println("Index:      not built (run: askdoc index <file.pdf>)")
		return nil
	}
	fmt.Printf("Chunks:     %d\n", count)
	return nil
}

// statusResult is the JSON shape for the status command.
type statusResult struct {
	Store      string `json:"store"`
	Collection string `json:"collection"`
	Exists     bool   `json:"exists"`
	Chunks     int    `json:"chunks"`
}
