package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alucardeht/ghostnote/internal/store"
	"github.com/alucardeht/ghostnote/internal/tools/signal"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		file    string
		clean   bool
		record  bool
		consume bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Classify the tone of a transcript",
		Long: `Analyze prints word count, emotion, tone and virality score for a
transcript given as arguments, on stdin, or with --file.

--consume spends one free-tier action first and fails once the limit is reached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]interface{}{
				"clean":   clean,
				"record":  record,
				"consume": consume,
			}
			if file != "" {
				if len(args) > 0 {
					return fmt.Errorf("--file and text arguments are mutually exclusive")
				}
				req["path"] = file
			} else {
				text, err := inputText(cmd, args)
				if err != nil {
					return err
				}
				req["text"] = text
			}

			raw, err := opts.runTool(cmd.Context(), "analyze_text", req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), raw)
			}

			var resp signal.AnalyzeResponse
			if err := json.Unmarshal(raw, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Emotion:   %s\n", resp.Signal.Emotion)
			fmt.Fprintf(out, "Tone:      %s\n", resp.Signal.Tone)
			fmt.Fprintf(out, "Words:     %d\n", resp.Signal.WordCount)
			fmt.Fprintf(out, "Virality:  %d\n", resp.Signal.ViralityScore)
			if resp.Encoding != "" {
				fmt.Fprintf(out, "Encoding:  %s\n", resp.Encoding)
			}
			if resp.RecordID != "" {
				fmt.Fprintf(out, "Recorded:  %s\n", resp.RecordID)
			}
			if resp.Usage != nil {
				printStatus(out, *resp.Usage)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the transcript from a file")
	cmd.Flags().BoolVar(&clean, "clean", false, "remove filler words before analysis")
	cmd.Flags().BoolVar(&record, "record", false, "store the result in the signal journal")
	cmd.Flags().BoolVar(&consume, "consume", false, "spend one free-tier action")

	return cmd
}

func newCleanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [text...]",
		Short: "Remove filler words from a transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			raw, err := opts.runTool(cmd.Context(), "clean_transcript", map[string]interface{}{"text": text})
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), raw)
			}

			var resp struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded signals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := opts.runTool(cmd.Context(), "signal_history", map[string]interface{}{"limit": limit})
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), raw)
			}

			var resp struct {
				Signals []store.SignalRecord `json:"signals"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Signals) == 0 {
				fmt.Fprintln(out, "No recorded signals")
				return nil
			}
			for _, rec := range resp.Signals {
				fmt.Fprintf(out, "%s  %-8s %-11s %4d words  %s\n",
					rec.CreatedAt.Local().Format("2006-01-02 15:04"),
					rec.Signal.Emotion, rec.Signal.Tone, rec.Signal.WordCount, preview(rec.Text, 40))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")
	return cmd
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-1]) + "…"
}
