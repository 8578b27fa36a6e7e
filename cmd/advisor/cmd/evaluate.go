package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solatis/advisor/internal/core/api"
	"github.com/solatis/advisor/internal/rules"
	"github.com/solatis/advisor/internal/types"
)

// ErrThresholdReached is returned when --fail-on matches an advisory.
var ErrThresholdReached = errors.New("advisory at or above failure severity")

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a request file and print the result as JSON",
	Long: `Evaluate reads {"rules": [...], "context": {...}} from a JSON or YAML file
(or stdin with --input -), runs one evaluation pass and prints the result.
With --remote the pass runs on an advisor gRPC server instead of in-process.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringP("input", "i", "", "request file (.json, .yaml, .yml, or - for stdin)")
	evaluateCmd.Flags().String("remote", "", "evaluate on the gRPC server at this address")
	evaluateCmd.Flags().String("fail-on", "", "exit non-zero when an advisory has at least this severity")
	evaluateCmd.Flags().Int("workers", 1, "rules matched concurrently")
	evaluateCmd.Flags().Duration("timeout", 30*time.Second, "evaluation deadline")
	_ = evaluateCmd.MarkFlagRequired("input")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	input, _ := cmd.Flags().GetString("input")
	remote, _ := cmd.Flags().GetString("remote")
	failOnFlag, _ := cmd.Flags().GetString("fail-on")

	var failOn types.Severity
	if failOnFlag != "" {
		failOn = types.Severity(strings.ToLower(failOnFlag))
		if !failOn.Valid() {
			return fmt.Errorf("%w: %q", types.ErrInvalidSeverity, failOnFlag)
		}
	}

	req, err := readRequest(input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	var result *types.EvaluationResult
	if remote != "" {
		client, conn, err := api.Dial(remote)
		if err != nil {
			return err
		}
		defer conn.Close()
		result, err = client.Evaluate(ctx, req)
		if err != nil {
			return fmt.Errorf("remote evaluation failed: %w", err)
		}
	} else {
		engine := rules.NewEngine(rules.WithWorkers(cfg.Workers), rules.WithLogger(logger))
		service, err := api.NewEvaluatorService(engine, cfg, logger)
		if err != nil {
			return err
		}
		result, err = service.Evaluate(ctx, req)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if failOn != "" {
		for _, adv := range result.Advisories {
			if adv.Severity.Rank() >= failOn.Rank() {
				return fmt.Errorf("%w: rule %s raised %s", ErrThresholdReached, adv.RuleID, adv.Severity)
			}
		}
	}
	return nil
}

// readRequest decodes an evaluation request. Files ending in .yaml or .yml are
// YAML; stdin is YAML unless it starts with '{'; everything else is JSON.
func readRequest(path string, stdin io.Reader) (*api.EvaluateRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	req := new(api.EvaluateRequest)
	if isYAML(path, data) {
		err = yaml.Unmarshal(data, req)
	} else {
		err = json.Unmarshal(data, req)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode request %s: %w", path, err)
	}
	if req.Context == nil {
		return nil, fmt.Errorf("request %s has no context", path)
	}
	return req, nil
}

func isYAML(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	case ".json":
		return false
	}
	return path == "-" && !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{"))
}
