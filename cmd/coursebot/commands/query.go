package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/coursebot-go/internal/logging"
	"github.com/54b3r/coursebot-go/internal/tools"
)

// NewQueryCmd constructs the `coursebot query` command, which answers a single
// question and prints the answer followed by its sources.
func NewQueryCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question about the course materials",
		Long: `Ask a question about the indexed course materials.

Without --session a new session is created and its id is printed, so a
follow-up question can reuse the conversation history.

Examples:
  coursebot query "What is covered in lesson 2 of the MCP course?"
  coursebot query --session 6f1c... "and in lesson 3?"
  COURSEBOT_CORPUS=./courses.yaml coursebot query "Who teaches the RAG course?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			a, err := buildApp(ctx, log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer a.Close()

			if sessionID == "" {
				sessionID, err = a.system.NewSession(ctx)
				if err != nil {
					return fmt.Errorf("query: %w", err)
				}
			}

			answer, sources, err := a.system.Query(ctx, strings.Join(args, " "), sessionID)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			printAnswer(cmd.OutOrStdout(), answer, sources, sessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to continue (default: new session)")

	return cmd
}

// printAnswer writes the answer, a numbered source list and the session id.
func printAnswer(w io.Writer, answer string, sources []tools.Source, sessionID string) {
	fmt.Fprintln(w, answer)
	if len(sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, src := range sources {
			if src.Link != "" {
				fmt.Fprintf(w, "  %d. %s <%s>\n", i+1, src.Title, src.Link)
			} else {
				fmt.Fprintf(w, "  %d. %s\n", i+1, src.Title)
			}
		}
	}
	fmt.Fprintf(w, "\nsession: %s\n", sessionID)
}
