package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phanxgames/cardstack"
	"github.com/phanxgames/cardstack/internal/stackfile"
)

func newNewCmd(app *App) *cobra.Command {
	var cards int
	var force bool
	cmd := &cobra.Command{
		Use:   "new <stack-file>",
		Short: "Create an empty stack file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			s := cardstack.NewStack(cardstack.Options{Editing: true, Logger: app.log})
			for i := 1; i < cards; i++ {
				s.AddCard()
			}
			if err := stackfile.Save(path, s.Root()); err != nil {
				return err
			}
			app.log.Info("stack created", "path", path, "cards", len(s.Cards()))
			return nil
		},
	}
	cmd.Flags().IntVar(&cards, "cards", 1, "Number of cards")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
