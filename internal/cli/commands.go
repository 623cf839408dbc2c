package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	tutor "github.com/haowjy/meridian-tutor"
	"github.com/haowjy/meridian-tutor/internal/config"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tutor web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(flags, func(cfg *config.Config) {
				if addr != "" {
					cfg.Server.Addr = addr
				}
			})
			if err != nil {
				return err
			}
			return container.Server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, "+config.EnvAddr+")")
	return cmd
}

func newExplainCommand(flags *globalFlags) *cobra.Command {
	var (
		language string
		model    string
		question string
	)

	cmd := &cobra.Command{
		Use:   "explain [FILE|-]",
		Short: "Explain a code file (or stdin) and stream the answer to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, ok := tutor.ParseLanguage(language)
			if !ok {
				return fmt.Errorf("unsupported language %q (expected python, c or javascript)", language)
			}

			code, err := readSource(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			container, err := buildContainer(flags, nil)
			if err != nil {
				return err
			}

			req := tutor.ExplanationRequest{
				Language:         lang,
				Code:             code,
				FollowUpQuestion: question,
				Model:            tutor.ParseProviderID(model),
			}
			if model == "" {
				req.Model = tutor.ParseProviderID(container.Config.Server.DefaultModel)
			}

			x, err := container.Explainer.Explain(cmd.Context(), req)
			if err != nil {
				return err
			}
			return streamExplanation(cmd.OutOrStdout(), x)
		},
	}

	cmd.Flags().StringVarP(&language, "lang", "l", string(tutor.LanguagePython), "Source language: python, c or javascript")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model: GPT, Claude, Llama (default from config)")
	cmd.Flags().StringVarP(&question, "question", "q", "", "Follow-up question about the code")
	return cmd
}

func newModelsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List model variants and whether they are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(flags, nil)
			if err != nil {
				return err
			}
			return renderModels(cmd.OutOrStdout(), container.Explainer.Models())
		},
	}
}

func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(b), nil
}

// streamExplanation writes fragments as they arrive. Partial output stays on
// stdout when the provider fails mid-stream.
func streamExplanation(out io.Writer, x *tutor.Explanation) error {
	for snap, err := range x.Snapshots() {
		if err != nil {
			if snap.Text != "" {
				fmt.Fprintln(out)
			}
			if tutor.IsProviderUnavailable(err) {
				return fmt.Errorf("explanation interrupted: %w", err)
			}
			return err
		}
		if _, werr := io.WriteString(out, snap.Fragment); werr != nil {
			return werr
		}
	}
	fmt.Fprintln(out)
	return nil
}

func renderModels(out io.Writer, models []tutor.ModelInfo) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tID\tBACKEND\tSTATUS")
	for _, m := range models {
		status := "available"
		if !m.Available {
			status = "unavailable: " + m.Reason
		}
		backend := m.Model
		if backend == "" {
			backend = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Label, m.ID, backend, status)
	}
	return tw.Flush()
}
