package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/remitquote/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Invalidate cached aggregate results and corridor-support metadata",
}

var cacheInvalidateAllCmd = &cobra.Command{
	Use:   "invalidate-all",
	Short: "Drop every quote cache entry",
	RunE:  runCacheInvalidateAll,
}

var cacheInvalidateCorridorCmd = &cobra.Command{
	Use:   "invalidate-corridor <source_country> <dest_country>",
	Short: "Drop cached quotes and corridor-support metadata for one corridor",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheInvalidateCorridor,
}

var cacheInvalidateProviderCmd = &cobra.Command{
	Use:   "invalidate-provider <id>",
	Short: "Drop the cached health record for one provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheInvalidateProvider,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInvalidateAllCmd)
	cacheCmd.AddCommand(cacheInvalidateCorridorCmd)
	cacheCmd.AddCommand(cacheInvalidateProviderCmd)
}

func runCacheInvalidateAll(cmd *cobra.Command, args []string) error {
	rt, closeRuntime, err := buildRuntime()
	if err != nil {
		return err
	}
	defer closeRuntime()

	ctx, cancel := timeoutContext()
	defer cancel()

	if err := rt.store.InvalidatePrefix(ctx, "v1:fee:"); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	fmt.Println("quote cache cleared")
	return nil
}

func runCacheInvalidateCorridor(cmd *cobra.Command, args []string) error {
	source, dest := strings.ToUpper(args[0]), strings.ToUpper(args[1])

	rt, closeRuntime, err := buildRuntime()
	if err != nil {
		return err
	}
	defer closeRuntime()

	ctx, cancel := timeoutContext()
	defer cancel()

	if err := rt.coordinator.InvalidateCorridorSupport(ctx, source, dest); err != nil {
		return fmt.Errorf("invalidate corridor support: %w", err)
	}
	quotePrefix := fmt.Sprintf("v1:fee:%s:%s:", source, dest)
	if err := rt.store.InvalidatePrefix(ctx, quotePrefix); err != nil {
		return fmt.Errorf("invalidate corridor quote cache: %w", err)
	}
	fmt.Printf("cache cleared for corridor %s->%s\n", source, dest)
	return nil
}

func runCacheInvalidateProvider(cmd *cobra.Command, args []string) error {
	id := args[0]

	rt, closeRuntime, err := buildRuntime()
	if err != nil {
		return err
	}
	defer closeRuntime()

	ctx, cancel := timeoutContext()
	defer cancel()

	if err := rt.store.Delete(ctx, cache.ProviderKey(id)); err != nil {
		return fmt.Errorf("invalidate provider cache: %w", err)
	}
	fmt.Printf("provider health cache cleared for %s\n", id)
	return nil
}
