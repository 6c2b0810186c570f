package main

import (
	"sort"

	"github.com/spf13/cobra"
)

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Read and change platform settings"}

	set := &cobra.Command{
		Use:     "set KEY VALUE",
		Short:   "Store a setting such as a price or the Gemini API key",
		Example: "  jbcctl settings set gemini_api_key $GEMINI_API_KEY\n  jbcctl settings set price_ngo_pro_usd 2900",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, b, err := c.services(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if _, err := svc.Admin.PutSettings(cmd.Context(), map[string]string{args[0]: args[1]}); err != nil {
				return err
			}
			c.printf("%s updated\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every setting with defaults applied; secrets are masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, b, err := c.services(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			all, err := svc.Admin.Settings(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				c.printf("%s=%s\n", k, all[k])
			}
			return nil
		},
	}

	cmd.AddCommand(set, list)
	return cmd
}
