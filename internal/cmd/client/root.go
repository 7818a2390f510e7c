package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the queue client.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "queues-demo",
		Short: "Queue client commands",
	}
	root.AddCommand(NewTaskCommand(baseURL))
	return root
}
