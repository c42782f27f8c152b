package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gateway/internal/config"
	"gateway/internal/logger"
	"gateway/internal/routing"
	"gateway/pkg/cel"
	"gateway/pkg/logging"
)

func routesCmd() *cobra.Command {
	var examples bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the effective routing table and consumer routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if examples {
				return printExpressionExamples(cmd.OutOrStdout())
			}
			cfg, err := loadConfig(logging.NewEarlyLog())
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().BoolVar(&examples, "examples", false, "print sample routing rule expressions instead")
	return cmd
}

func printExpressionExamples(out io.Writer) error {
	names := make([]string, 0, len(cel.RoutingExpressionExamples))
	for name := range cel.RoutingExpressionExamples {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXAMPLE\tEXPRESSION")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\n", name, cel.RoutingExpressionExamples[name])
	}
	return w.Flush()
}

func printRoutes(out io.Writer, cfg *config.Config) error {
	router, err := routing.Build(cfg.Routing, logger.NopLogger())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tMATCH\tDESTINATION")
	for _, rule := range router.Rules() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", rule.Name(), describeMatch(rule), rule.Destination())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROUTE\tTOPIC\tTARGET\tAUTO START")
	for _, rc := range cfg.Routes {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%t\n", rc.ID, rc.Topic, rc.Method, rc.TargetURL, rc.StartsAutomatically())
	}
	return w.Flush()
}

func describeMatch(rule routing.Rule) string {
	switch r := rule.(type) {
	case routing.PrefixRule:
		return "prefix " + r.Prefix()
	case routing.ExpressionRule:
		return "expr " + r.Expression()
	default:
		return "*"
	}
}
