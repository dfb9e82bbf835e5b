package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewSessionCommand creates the session command.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Mint a fresh session id for a NATS job",
		Long: `Print a random session id. Every rank of one job must use the same id;
it namespaces the job's link subjects and rank-claim bucket.

Example:
  SESSION=$(scenepart session)
  scenepart run --session $SESSION --size 4 --groups 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return NewExitError(ExitCommandError, "--count must be positive")
			}

			ids := make([]string, count)
			for i := range ids {
				ids[i] = uuid.NewString()
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return out.json(map[string][]string{"sessions": ids})
			}
			for _, id := range ids {
				if _, err := fmt.Fprintln(out.Writer, id); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of ids to print")

	return cmd
}
