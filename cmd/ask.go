package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdoc/askdoc/internal/pipeline"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question grounded in the indexed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(args[0])
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(question string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	st := a.Ask(ctx, question)

	if st.Stage == pipeline.StageError {
		if flagJSON {
			if err := printJSON(askError{Error: string(st.ErrorKind), Message: st.Message}); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(os.Stderr, st.Message)
		}
		return fmt.Errorf("answering failed: %s", st.ErrorKind)
	}

	if flagJSON {
		return printJSON(st.Answer)
	}
	printAnswer(st.Answer)
	return nil
}

// askError is the JSON shape for failed runs.
type askError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

func printAnswer(answer *pipeline.Answer) {
	fmt.Println(answer.Text)

	if len(answer.Citations) > 0 {
		pages := make([]string, len(answer.Citations))
		for i, p := range answer.Citations {
			pages[i] = strconv.Itoa(p)
		}
		fmt.Println()
		fmt.Printf("Sources: page %s\n", strings.Join(pages, ", "))
	}
	fmt.Printf("Confidence: %s (%.2f)\n", answer.Label, answer.Confidence)
}
