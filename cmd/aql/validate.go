package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/everydev1618/aql/dsl"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.aql>...",
		Short: "Check AQL files for syntax and dependency errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := dsl.NewParser()
			failed := 0
			for _, path := range args {
				q, err := parser.ParseFile(path)
				if err == nil {
					err = q.Validate()
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed++
					continue
				}

				ops := 0
				q.Walk(func(*dsl.Operation) bool {
					ops++
					return true
				})
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (query %s, %d parameters, %d operations)\n",
					path, q.Name, len(q.Parameters), ops)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}
}
