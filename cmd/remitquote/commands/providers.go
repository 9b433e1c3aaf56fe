package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect registered provider adapters",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered provider and its enable state",
	RunE:  runProvidersList,
}

var providersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one provider's details, including supported corridors",
	Args:  cobra.ExactArgs(1),
	RunE:  runProvidersShow,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersShowCmd)
}

type providerListing struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Enabled     bool   `json:"enabled"`
}

func runProvidersList(cmd *cobra.Command, args []string) error {
	rt, closeRuntime, err := buildRuntime()
	if err != nil {
		return err
	}
	defer closeRuntime()

	ids := rt.registry.ListIDs()
	listings := make([]providerListing, 0, len(ids))
	for _, id := range ids {
		adapter, err := rt.registry.Build(id, rt.adapterCtx)
		if err != nil {
			rt.logger.WithError(err).WithField("provider_id", id).Warn("failed to build adapter for listing")
			continue
		}
		listings = append(listings, providerListing{
			ID:          adapter.ID(),
			DisplayName: adapter.DisplayName(),
			Enabled:     rt.registry.IsEnabled(id),
		})
	}

	return printJSON(listings)
}

type providerDetail struct {
	providerListing
	SupportedCorridors []corridorListing `json:"supported_corridors"`
}

type corridorListing struct {
	SourceCountry string `json:"source_country"`
	DestCountry   string `json:"dest_country"`
}

func runProvidersShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	rt, closeRuntime, err := buildRuntime()
	if err != nil {
		return err
	}
	defer closeRuntime()

	adapter, err := rt.registry.Build(id, rt.adapterCtx)
	if err != nil {
		return &ExitCode{Code: 2, Err: fmt.Errorf("unknown provider: %s", id)}
	}

	corridors := adapter.SupportedCorridors()
	views := make([]corridorListing, len(corridors))
	for i, c := range corridors {
		views[i] = corridorListing{SourceCountry: c.SourceCountry, DestCountry: c.DestCountry}
	}

	return printJSON(providerDetail{
		providerListing: providerListing{
			ID:          adapter.ID(),
			DisplayName: adapter.DisplayName(),
			Enabled:     rt.registry.IsEnabled(id),
		},
		SupportedCorridors: views,
	})
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
