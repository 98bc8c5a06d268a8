package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/firefly-engineering/harbor-ctl/internal/errors"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
	"github.com/firefly-engineering/harbor-ctl/internal/tui"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect installed container runtimes",
	Long: `Searches for Docker and Podman, checks their versions and probes whether
their engines answer.

Results are cached for cache_ttl_secs; use --refresh to bypass the cache.`,
	RunE: runDetect,
}

var (
	detectKinds   []string
	detectRefresh bool
	detectOutput  string
)

func init() {
	detectCmd.Flags().StringSliceVar(&detectKinds, "kind", nil, "Only detect these runtime kinds (docker, podman)")
	detectCmd.Flags().BoolVar(&detectRefresh, "refresh", false, "Ignore cached results")
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	kinds, err := parseKinds(detectKinds)
	if err != nil {
		return err
	}
	switch detectOutput {
	case "text", "json", "yaml":
	default:
		return errors.ValidationError(fmt.Sprintf("unknown output format %q (expected text, json or yaml)", detectOutput))
	}

	if detectRefresh {
		application.ClearDetectionCache(kinds...)
	}

	ctx := cmd.Context()
	var result runtime.DetectionResult
	if len(kinds) == 0 {
		result = application.DetectRuntimes(ctx)
	} else {
		for _, k := range kinds {
			result = result.Merge(application.Detector.DetectKind(ctx, k))
		}
	}

	out := cmd.OutOrStdout()
	switch detectOutput {
	case "json":
		err = writeJSON(out, result)
	case "yaml":
		err = writeYAML(out, result)
	default:
		err = writeDetectionText(out, result)
	}
	if err != nil {
		return err
	}

	if len(result.Runtimes) == 0 {
		return errors.NoRuntimeFound()
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return enc.Close()
}

func writeDetectionText(w io.Writer, result runtime.DetectionResult) error {
	if len(result.Runtimes) > 0 {
		if err := writeRuntimeTable(w, result.Runtimes); err != nil {
			return err
		}
	} else {
		logWarning("No container runtimes found")
	}

	for _, e := range result.Errors {
		logWarning("%s", e.Error())
	}
	for _, rt := range result.Runtimes {
		if rt.VersionWarning {
			logWarning("%s %s is older than the supported minimum %s",
				rt.Kind.DisplayName(), rt.Version, runtime.MinimumVersion(rt.Kind))
		}
	}
	return nil
}

func writeRuntimeTable(w io.Writer, runtimes []runtime.Runtime) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tVERSION\tMODE\tPATH\tSTATUS")
	fmt.Fprintln(tw, "--\t----\t-------\t----\t----\t------")

	for _, rt := range runtimes {
		mode := string(rt.Mode)
		switch {
		case mode == "":
			mode = "-"
		case rt.ModeAssumed:
			mode += "?"
		}
		path := rt.Path
		if rt.IsWSL {
			path += " (wsl)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rt.ID, rt.Kind, rt.Version, mode, path, tui.FormatStatus(rt.Status))
	}

	return tw.Flush()
}
