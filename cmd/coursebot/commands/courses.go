package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/coursebot-go/internal/logging"
)

// NewCoursesCmd constructs the `coursebot courses` command, which lists the
// indexed course catalog.
func NewCoursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List the indexed courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			a, err := buildApp(ctx, log)
			if err != nil {
				return fmt.Errorf("courses: %w", err)
			}
			defer a.Close()

			stats, err := a.system.Analytics(ctx)
			if err != nil {
				return fmt.Errorf("courses: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d courses\n", stats.TotalCourses)
			for _, title := range stats.CourseTitles {
				fmt.Fprintf(out, "  - %s\n", title)
			}
			return nil
		},
	}
}
