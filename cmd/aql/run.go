package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/everydev1618/aql/dsl"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file.aql>",
		Short: "Execute an AQL query",
		Example: `  aql run review.aql --var code="$(cat main.go)"
  aql run pipeline.aql --vars inputs.json --parallel --output json`,
		Args: cobra.ExactArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().StringArray("var", nil, "Variable as name=value (repeatable)")
	cmd.Flags().String("vars", "", "JSON file containing variables")
	cmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().Bool("parallel", false, "Run parallel groups concurrently")
	cmd.Flags().Bool("cache", false, "Reuse results of identical agent prompts")
	cmd.Flags().Bool("templating", false, "Fill {{name}} placeholders in prompts, roles and tasks")
	cmd.Flags().Duration("timeout", 0, "Maximum execution time (overrides config)")
	cmd.Flags().Int("retries", -1, "Retries per failing agent call (overrides config)")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	q, err := dsl.NewParser().ParseFile(args[0])
	if err != nil {
		return err
	}

	vars, err := loadVariables(cmd, q)
	if err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine(cmd.Context())
	if err != nil {
		return err
	}

	if on, _ := cmd.Flags().GetBool("parallel"); on {
		engine.SetParallel(true)
	}
	if on, _ := cmd.Flags().GetBool("cache"); on {
		engine.SetCaching(true)
	}
	if on, _ := cmd.Flags().GetBool("templating"); on {
		engine.SetTemplating(true)
	}
	if cmd.Flags().Changed("timeout") {
		d, _ := cmd.Flags().GetDuration("timeout")
		engine.SetTimeout(d)
	}
	if n, _ := cmd.Flags().GetInt("retries"); n >= 0 {
		engine.SetRetries(n)
	}

	result, runErr := engine.Execute(cmd.Context(), q, vars)
	if result != nil {
		if err := writeResult(cmd.OutOrStdout(), output, result); err != nil {
			return err
		}
	}
	return runErr
}

// loadVariables merges the --vars file with --var flags. Flag values are
// read as AQL literals, so numbers and booleans keep their types, except
// for parameters declared as String, which always receive text.
func loadVariables(cmd *cobra.Command, q *dsl.Query) (map[string]any, error) {
	vars := make(map[string]any)

	if path, _ := cmd.Flags().GetString("vars"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read vars file: %w", err)
		}
		if err := json.Unmarshal(data, &vars); err != nil {
			return nil, fmt.Errorf("parse vars file %s: %w", path, err)
		}
	}

	pairs, _ := cmd.Flags().GetStringArray("var")
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", pair)
		}
		name = strings.TrimPrefix(strings.TrimSpace(name), "$")
		v := dsl.ParseLiteral(value)
		if p, ok := q.Parameter(name); ok && p.Type.Kind == dsl.KindPrimitive && p.Type.Name == "String" {
			if _, isText := v.(string); !isText {
				v = strings.TrimSpace(value)
			}
		}
		vars[name] = v
	}
	return vars, nil
}

func writeResult(w io.Writer, format string, result *dsl.ExecutionResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(result)
	}

	keys := make([]string, 0, len(result.Results))
	for k := range result.Results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "── %s ──\n%v\n\n", k, result.Results[k])
	}
	fmt.Fprintf(w, "%s %s: %d operations, ~%d tokens in %s\n",
		result.Query, result.Status,
		result.Metadata.OperationsExecuted,
		result.Metadata.TotalTokens,
		result.Metadata.TotalTime.Round(time.Millisecond),
	)
	for _, e := range result.Metadata.Errors {
		fmt.Fprintf(w, "error: %s\n", e.Message)
	}
	return nil
}
