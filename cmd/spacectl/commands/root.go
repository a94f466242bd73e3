package commands

import (
	"context"
	"os"
	"time"

	"spacebook/pkg/client"
	"spacebook/pkg/middleware"

	"github.com/spf13/cobra"
)

const (
	EnvServerURL     = "SPACEBOOK_URL"
	DefaultServerURL = "http://localhost:8080"
	requestTimeout   = 15 * time.Second
)

type options struct {
	server  string
	ownerID string
	out     printer
}

func (o *options) reservations() *client.ReservationClient {
	httpClient := client.NewHttpClient(o.server)
	if o.ownerID != "" {
		httpClient.Headers[middleware.OwnerIDHeader] = o.ownerID
	}
	return client.NewReservationClient(httpClient)
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

// NewRootCommand builds the spacectl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "spacectl",
		Short: "Book spaces and inspect availability",
		Long: `spacectl talks to the Spacebook reservation API.

It books, reschedules and cancels reservations, prints the
available slots of a space for a given day and manages spaces.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.out = printer{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	server := os.Getenv(EnvServerURL)
	if server == "" {
		server = DefaultServerURL
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "Spacebook API base URL (env "+EnvServerURL+")")
	root.PersistentFlags().StringVar(&opts.ownerID, "owner", "", "Owner id sent as "+middleware.OwnerIDHeader)

	root.AddCommand(
		newBookCommand(opts),
		newRescheduleCommand(opts),
		newCancelCommand(opts),
		newShowCommand(opts),
		newListCommand(opts),
		newAvailabilityCommand(opts),
		newSpacesCommand(opts),
	)
	return root
}

func Execute() error {
	root := NewRootCommand()
	cmd, err := root.ExecuteC()
	if err != nil {
		printer{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}.failure(err)
	}
	return err
}
