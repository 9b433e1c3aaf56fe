package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/remitquote/internal/domain"
)

var (
	quoteSourceCountry  string
	quoteDestCountry    string
	quoteSourceCurrency string
	quoteDestCurrency   string
	quoteAmount         string
	quotePaymentMethod  string
	quoteDeliveryMethod string
	quoteSortBy         string
	quoteIncludeRaw     bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Fetch one aggregate quote and print it as JSON",
	Long: `Runs a single GetAllQuotes call against every active provider and
prints the AggregateResult as JSON, the CLI mirror of GET /api/quotes/.

Exit codes (§6): 0 on success (including partial provider
failures), 2 on InvalidParameter, 3 when no providers are active.

Example:
  remitquote quote --source-country US --dest-country MX \
    --source-currency USD --dest-currency MXN --amount 500`,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteSourceCountry, "source-country", "", "ISO-3166-1 alpha-2 source country (required)")
	quoteCmd.Flags().StringVar(&quoteDestCountry, "dest-country", "", "ISO-3166-1 alpha-2 destination country (required)")
	quoteCmd.Flags().StringVar(&quoteSourceCurrency, "source-currency", "", "ISO-4217 source currency (required)")
	quoteCmd.Flags().StringVar(&quoteDestCurrency, "dest-currency", "", "ISO-4217 destination currency; defaults to the destination country's default currency")
	quoteCmd.Flags().StringVar(&quoteAmount, "amount", "", "amount to send, exact decimal (required)")
	quoteCmd.Flags().StringVar(&quotePaymentMethod, "payment-method", "", "one of bank_account, debit_card, credit_card, balance, open_banking, card, cash, mobile_wallet, unknown")
	quoteCmd.Flags().StringVar(&quoteDeliveryMethod, "delivery-method", "", "one of bank_deposit, cash_pickup, mobile_wallet, debit_card_deposit, home_delivery, unknown")
	quoteCmd.Flags().StringVar(&quoteSortBy, "sort-by", "best_rate", "one of best_rate, lowest_fee, fastest_time, best_value")
	quoteCmd.Flags().BoolVar(&quoteIncludeRaw, "include-raw", false, "include each adapter's raw payload in the response")
}

func runQuote(cmd *cobra.Command, args []string) error {
	req, err := buildQuoteRequestFromFlags()
	if err != nil {
		return &ExitCode{Code: 2, Err: err}
	}

	rt, closeRuntime, err := buildRuntime()
	if err != nil {
		return err
	}
	defer closeRuntime()

	if len(rt.registry.ActiveIDs(nil, nil)) == 0 {
		return &ExitCode{Code: 3, Err: fmt.Errorf("no providers active")}
	}

	ctx, cancel := timeoutContext()
	defer cancel()

	result := rt.coordinator.GetAllQuotes(ctx, req)
	if !result.Success {
		if failure, ok := result.Errors["request"]; ok && failure.ErrorKind == domain.ErrorKindInvalidParameter {
			return &ExitCode{Code: 2, Err: fmt.Errorf("%s", failure.ErrorMessage)}
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func buildQuoteRequestFromFlags() (domain.QuoteRequest, error) {
	if quoteSourceCountry == "" || quoteDestCountry == "" || quoteSourceCurrency == "" {
		return domain.QuoteRequest{}, fmt.Errorf("--source-country, --dest-country and --source-currency are required")
	}
	if quoteAmount == "" {
		return domain.QuoteRequest{}, fmt.Errorf("--amount is required")
	}
	amount, err := decimal.NewFromString(quoteAmount)
	if err != nil {
		return domain.QuoteRequest{}, fmt.Errorf("--amount is not a valid decimal: %w", err)
	}

	req := domain.QuoteRequest{
		SourceCountry:  strings.ToUpper(quoteSourceCountry),
		DestCountry:    strings.ToUpper(quoteDestCountry),
		SourceCurrency: strings.ToUpper(quoteSourceCurrency),
		DestCurrency:   strings.ToUpper(quoteDestCurrency),
		Amount:         amount,
		Options: domain.QuoteOptions{
			SortBy:     domain.SortBy(quoteSortBy),
			IncludeRaw: quoteIncludeRaw,
		},
	}

	if quotePaymentMethod != "" {
		pm := domain.PaymentMethod(quotePaymentMethod)
		if !pm.Valid() {
			return domain.QuoteRequest{}, fmt.Errorf("unrecognized --payment-method: %s", quotePaymentMethod)
		}
		req.PaymentMethod = pm
	}
	if quoteDeliveryMethod != "" {
		dm := domain.DeliveryMethod(quoteDeliveryMethod)
		if !dm.Valid() {
			return domain.QuoteRequest{}, fmt.Errorf("unrecognized --delivery-method: %s", quoteDeliveryMethod)
		}
		req.DeliveryMethod = dm
	}
	if !req.Options.SortBy.Valid() {
		return domain.QuoteRequest{}, fmt.Errorf("unrecognized --sort-by: %s", quoteSortBy)
	}

	return req, nil
}
